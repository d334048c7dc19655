package handlers

import (
	"context"
	"net/http"
	"time"

	"civicreport/internal/models"
	"civicreport/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AdminHandler groups the admin-only endpoints: platform stats, user
// listings and manual notification dispatch. Routes are mounted behind
// RequireAdmin.
type AdminHandler struct {
	userCollection      *mongo.Collection
	statsService        *services.StatsService
	notificationService *services.NotificationService
}

func NewAdminHandler(userCollection *mongo.Collection, statsService *services.StatsService, notificationService *services.NotificationService) *AdminHandler {
	return &AdminHandler{
		userCollection:      userCollection,
		statsService:        statsService,
		notificationService: notificationService,
	}
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	stats, err := h.statsService.Platform(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetUsers lists users with optional role filtering.
func (h *AdminHandler) GetUsers(c *gin.Context) {
	query := bson.M{}
	if role := c.Query("role"); role != "" {
		parsed, ok := models.RoleFromString(role)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid role",
			})
			return
		}
		query["role"] = parsed
	}

	page := atoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := atoiDefault(c.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	total, err := h.userCollection.CountDocuments(ctx, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Database error",
		})
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := h.userCollection.Find(ctx, query, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error fetching users",
		})
		return
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error decoding users",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateUserRole changes a user's role.
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID",
		})
		return
	}

	var req UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	role, ok := models.RoleFromString(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid role",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	result, err := h.userCollection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error updating user role",
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User role updated successfully",
		"role":    role,
	})
}

type SendNotificationRequest struct {
	// RecipientType is one of "user", "role", "all".
	RecipientType string `json:"recipient_type" binding:"required,oneof=user role all"`

	// UserID targets a single user when RecipientType is "user".
	UserID string `json:"user_id,omitempty"`
	// Email is an alternative single-user target.
	Email string `json:"email,omitempty"`
	// Role targets every holder of a role when RecipientType is "role".
	Role string `json:"role,omitempty"`

	Title   string `json:"title" binding:"required,min=1,max=200"`
	Message string `json:"message" binding:"required,min=1,max=1000"`
}

// SendNotification dispatches an admin alert to the selected recipients and
// reports the partial-failure result.
func (h *AdminHandler) SendNotification(c *gin.Context) {
	var req SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	var selector services.RecipientSelector
	switch req.RecipientType {
	case "user":
		if req.UserID != "" {
			userID, err := primitive.ObjectIDFromHex(req.UserID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid user ID",
				})
				return
			}
			selector = services.Single(userID)
		} else if req.Email != "" {
			selector = services.SingleEmail(req.Email)
		} else {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "user_id or email is required for recipient_type user",
			})
			return
		}
	case "role":
		role, ok := models.RoleFromString(req.Role)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid role",
			})
			return
		}
		selector = services.ByRole(role)
	case "all":
		selector = services.All()
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	result, err := h.notificationService.Dispatch(ctx, selector,
		models.NotificationAdminAlert, req.Title, req.Message, nil, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification dispatched",
		"result":  result,
	})
}
