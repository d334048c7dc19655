package handlers

import (
	"context"
	"net/http"
	"time"

	"civicreport/internal/access"
	"civicreport/internal/middleware"
	"civicreport/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationHandler struct {
	notificationCollection *mongo.Collection
	userCollection         *mongo.Collection
}

func NewNotificationHandler(notificationCollection, userCollection *mongo.Collection) *NotificationHandler {
	return &NotificationHandler{
		notificationCollection: notificationCollection,
		userCollection:         userCollection,
	}
}

// GetNotifications lists the authenticated user's notifications, newest
// first, with the unread count.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	unreadOnly := c.Query("unread") == "true"

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	query := bson.M{"recipient": actor.ID}
	if unreadOnly {
		query["read"] = false
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(atoiDefault(c.Query("limit"), 50)))

	cursor, err := h.notificationCollection.Find(ctx, query, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error fetching notifications",
		})
		return
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error decoding notifications",
		})
		return
	}

	unreadCount, err := h.notificationCollection.CountDocuments(ctx, bson.M{
		"recipient": actor.ID,
		"read":      false,
	})
	if err != nil {
		logrus.WithError(err).WithField("recipient", actor.ID.Hex()).
			Warn("failed to count unread notifications")
		unreadCount = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unread_count":  unreadCount,
	})
}

// MarkAsRead flips one notification's read flag. Recipient or admin only.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid notification ID",
		})
		return
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	var notification models.Notification
	err = h.notificationCollection.FindOne(ctx, bson.M{"_id": notificationID}).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Notification not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error fetching notification",
		})
		return
	}

	if !access.CanAccessNotification(actor, &notification, access.ActionUpdate) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "You do not have access to this notification",
		})
		return
	}

	// ReadAt is only stamped on the first transition to read.
	if !notification.Read {
		now := time.Now().UTC()
		_, err = h.notificationCollection.UpdateOne(ctx,
			bson.M{"_id": notificationID},
			bson.M{"$set": bson.M{"read": true, "read_at": now}},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Error updating notification",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification marked as read",
	})
}

// MarkAllAsRead flips every unread notification of the authenticated user.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	now := time.Now().UTC()
	result, err := h.notificationCollection.UpdateMany(ctx,
		bson.M{"recipient": actor.ID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": now}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error updating notifications",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All notifications marked as read",
		"updated": result.ModifiedCount,
	})
}

// DeleteNotification removes one notification and its back-reference on the
// user record.
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid notification ID",
		})
		return
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	var notification models.Notification
	err = h.notificationCollection.FindOne(ctx, bson.M{"_id": notificationID}).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Notification not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error fetching notification",
		})
		return
	}

	if !access.CanAccessNotification(actor, &notification, access.ActionDelete) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "You do not have access to this notification",
		})
		return
	}

	if _, err := h.notificationCollection.DeleteOne(ctx, bson.M{"_id": notificationID}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error deleting notification",
		})
		return
	}

	if _, err := h.userCollection.UpdateOne(ctx,
		bson.M{"_id": notification.Recipient},
		bson.M{"$pull": bson.M{"notifications": notificationID}},
	); err != nil {
		// The record is gone; only the back-reference lingers.
		logrus.WithError(err).WithField("recipient", notification.Recipient.Hex()).
			Warn("failed to unlink notification from user")
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification deleted successfully",
	})
}
