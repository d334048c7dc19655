package services

import (
	"testing"

	"civicreport/internal/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecipientSelectorFilter(t *testing.T) {
	userID := primitive.NewObjectID()

	tests := []struct {
		name     string
		selector RecipientSelector
		want     bson.M
	}{
		{"single by id", Single(userID), bson.M{"_id": userID}},
		{"single by email", SingleEmail("a@b.com"), bson.M{"email": "a@b.com"}},
		{"by role", ByRole(models.RoleAdmin), bson.M{"role": models.RoleAdmin}},
		{"all users", All(), bson.M{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.selector.filter())
		})
	}
}

func TestRecipientSelectorDescribe(t *testing.T) {
	userID := primitive.NewObjectID()

	assert.Equal(t, "user "+userID.Hex(), Single(userID).describe())
	assert.Equal(t, "user a@b.com", SingleEmail("a@b.com").describe())
	assert.Equal(t, "role admin", ByRole(models.RoleAdmin).describe())
	assert.Equal(t, "all users", All().describe())
}
