package services

import (
	"context"
	"testing"

	"civicreport/internal/errs"
	"civicreport/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func userDoc(id primitive.ObjectID, name, email string, role models.Role) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "email", Value: email},
		{Key: "role", Value: string(role)},
	}
}

func newDispatchService(mt *mtest.T) *NotificationService {
	return NewNotificationService(mt.DB.Collection("users"), mt.DB.Collection("notifications"))
}

func TestDispatchEmptyRecipientSet(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("role with no holders", func(mt *mtest.T) {
		svc := newDispatchService(mt)

		// The recipient query matches nobody.
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "civicreport.users", mtest.FirstBatch))

		result, err := svc.Dispatch(context.Background(), ByRole(models.RoleAdmin),
			models.NotificationAdminAlert, "New Report Submitted", "A report came in", nil, nil)

		require.Error(mt, err)
		assert.Nil(mt, result)
		assert.Equal(mt, errs.KindNotFound, errs.KindOf(err))

		// An empty set creates zero records: no insert ever leaves the client.
		for _, evt := range mt.GetAllStartedEvents() {
			assert.NotEqual(mt, "insert", evt.CommandName)
		}
	})
}

func TestDispatchFanOut(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("one record per recipient", func(mt *mtest.T) {
		svc := newDispatchService(mt)

		first := primitive.NewObjectID()
		second := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "civicreport.users", mtest.FirstBatch,
				userDoc(first, "Ann", "ann@example.com", models.RoleAdmin),
				userDoc(second, "Bob", "bob@example.com", models.RoleAdmin)),
			mtest.CreateSuccessResponse(), // insert for first
			mtest.CreateSuccessResponse(), // back-reference push for first
			mtest.CreateSuccessResponse(), // insert for second
			mtest.CreateSuccessResponse(), // back-reference push for second
		)

		result, err := svc.Dispatch(context.Background(), ByRole(models.RoleAdmin),
			models.NotificationAdminAlert, "New Report Submitted", "A report came in", nil, nil)

		require.NoError(mt, err)
		require.NotNil(mt, result)
		assert.Equal(mt, 2, result.Created)
		assert.Empty(mt, result.Failed)
	})
}

func TestDispatchPartialFailure(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("failed recipient recorded, others still created", func(mt *mtest.T) {
		svc := newDispatchService(mt)

		first := primitive.NewObjectID()
		second := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "civicreport.users", mtest.FirstBatch,
				userDoc(first, "Ann", "ann@example.com", models.RoleCitizen),
				userDoc(second, "Bob", "bob@example.com", models.RoleCitizen)),
			// First insert fails; the loop moves on to the next recipient.
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    8000,
				Message: "write unavailable",
			}),
			mtest.CreateSuccessResponse(), // insert for second
			mtest.CreateSuccessResponse(), // back-reference push for second
		)

		result, err := svc.Dispatch(context.Background(), All(),
			models.NotificationAdminAlert, "Maintenance", "Planned downtime tonight", nil, nil)

		require.NoError(mt, err)
		require.NotNil(mt, result)
		assert.Equal(mt, 1, result.Created)
		assert.Equal(mt, []primitive.ObjectID{first}, result.Failed)
	})
}

func TestDispatchRejectsBlankPayload(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("empty title or message", func(mt *mtest.T) {
		svc := newDispatchService(mt)

		_, err := svc.Dispatch(context.Background(), All(),
			models.NotificationAdminAlert, "", "body", nil, nil)
		require.Error(mt, err)
		assert.Equal(mt, errs.KindValidation, errs.KindOf(err))

		_, err = svc.Dispatch(context.Background(), All(),
			models.NotificationAdminAlert, "title", "", nil, nil)
		require.Error(mt, err)
		assert.Equal(mt, errs.KindValidation, errs.KindOf(err))
	})
}

func TestDispatchRejectsUnknownType(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("invalid notification type", func(mt *mtest.T) {
		svc := newDispatchService(mt)

		_, err := svc.Dispatch(context.Background(), All(),
			models.NotificationType("carrier_pigeon"), "title", "body", nil, nil)
		require.Error(mt, err)
		assert.Equal(mt, errs.KindValidation, errs.KindOf(err))
	})
}
