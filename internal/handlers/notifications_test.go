package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func notificationContext(w *httptest.ResponseRecorder, userID primitive.ObjectID, req *http.Request) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("user_id", userID.Hex())
	c.Set("role", "citizen")
	return c
}

func notificationDoc(id, recipient primitive.ObjectID, read bool) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "recipient", Value: recipient},
		{Key: "type", Value: "admin_alert"},
		{Key: "title", Value: "Maintenance"},
		{Key: "message", Value: "Planned downtime tonight"},
		{Key: "read", Value: read},
		{Key: "created_at", Value: time.Now().UTC()},
	}
}

func TestMarkAllAsReadFlipsEveryUnread(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("reports modified count", func(mt *mtest.T) {
		h := NewNotificationHandler(mt.DB.Collection("notifications"), mt.DB.Collection("users"))

		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 3},
			bson.E{Key: "nModified", Value: 3},
		))

		w := httptest.NewRecorder()
		c := notificationContext(w, primitive.NewObjectID(),
			httptest.NewRequest(http.MethodPut, "/notifications/read-all", nil))

		h.MarkAllAsRead(c)

		assert.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, w.Body.String(), `"updated":3`)

		// The update targets only the caller's unread records.
		for _, evt := range mt.GetAllStartedEvents() {
			if evt.CommandName != "update" {
				continue
			}
			updates := evt.Command.Lookup("updates").Array()
			values, err := updates.Values()
			if assert.NoError(mt, err) && assert.Len(mt, values, 1) {
				filter := values[0].Document().Lookup("q").Document()
				assert.Equal(mt, false, filter.Lookup("read").Boolean())
			}
		}
	})
}

func TestGetNotificationsCountFailure(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unread count falls back to zero", func(mt *mtest.T) {
		h := NewNotificationHandler(mt.DB.Collection("notifications"), mt.DB.Collection("users"))

		recipient := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "civicreport.notifications", mtest.FirstBatch,
				notificationDoc(primitive.NewObjectID(), recipient, false)),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    8000,
				Message: "count unavailable",
				Name:    "HostUnreachable",
			}),
		)

		w := httptest.NewRecorder()
		c := notificationContext(w, recipient,
			httptest.NewRequest(http.MethodGet, "/notifications", nil))

		h.GetNotifications(c)

		// The listing still succeeds; the count degrades to zero.
		assert.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, w.Body.String(), "Maintenance")
		assert.Contains(mt, w.Body.String(), `"unread_count":0`)
	})
}

func TestDeleteNotificationStaleBackReference(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("delete succeeds when unlink fails", func(mt *mtest.T) {
		h := NewNotificationHandler(mt.DB.Collection("notifications"), mt.DB.Collection("users"))

		recipient := primitive.NewObjectID()
		notificationID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "civicreport.notifications", mtest.FirstBatch,
				notificationDoc(notificationID, recipient, true)),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}), // delete
			// The $pull of the back-reference fails; the delete stands.
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    8000,
				Message: "write unavailable",
			}),
		)

		w := httptest.NewRecorder()
		c := notificationContext(w, recipient,
			httptest.NewRequest(http.MethodDelete, "/notifications/"+notificationID.Hex(), nil))
		c.Params = gin.Params{{Key: "id", Value: notificationID.Hex()}}

		h.DeleteNotification(c)

		assert.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, w.Body.String(), "deleted successfully")
	})
}
