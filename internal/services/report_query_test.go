package services

import (
	"testing"

	"civicreport/internal/errs"
	"civicreport/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestListFilterQuery(t *testing.T) {
	submitter := primitive.NewObjectID()

	t.Run("empty filter matches everything", func(t *testing.T) {
		query, err := ListFilter{}.query()
		require.NoError(t, err)
		assert.Equal(t, bson.M{}, query)
	})

	t.Run("status and category", func(t *testing.T) {
		query, err := ListFilter{
			Status:   models.StatusInProgress,
			Category: models.CategoryPothole,
		}.query()
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, query["status"])
		assert.Equal(t, models.CategoryPothole, query["category"])
	})

	t.Run("submitted by", func(t *testing.T) {
		query, err := ListFilter{SubmittedBy: &submitter}.query()
		require.NoError(t, err)
		assert.Equal(t, submitter, query["submitted_by"])
	})

	t.Run("search builds case-insensitive or", func(t *testing.T) {
		query, err := ListFilter{Search: "pothole"}.query()
		require.NoError(t, err)

		or, ok := query["$or"].([]bson.M)
		require.True(t, ok)
		require.Len(t, or, 2)
		pattern := or[0]["title"].(primitive.Regex)
		assert.Equal(t, "pothole", pattern.Pattern)
		assert.Equal(t, "i", pattern.Options)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		_, err := ListFilter{Status: "archived"}.query()
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})

	t.Run("invalid category rejected", func(t *testing.T) {
		_, err := ListFilter{Category: "noise"}.query()
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	})
}

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         Page
		wantNumber int
		wantLimit  int
	}{
		{"defaults", Page{}, 1, 20},
		{"negative page", Page{Number: -3, Limit: 10}, 1, 10},
		{"limit clamped", Page{Number: 2, Limit: 500}, 2, 100},
		{"valid untouched", Page{Number: 4, Limit: 25}, 4, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.normalize()
			assert.Equal(t, tt.wantNumber, got.Number)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestEscapeRegex(t *testing.T) {
	assert.Equal(t, `broken lamp`, escapeRegex("broken lamp"))
	assert.Equal(t, `a\.b\*c`, escapeRegex("a.b*c"))
	assert.Equal(t, `\(\[\{\}\]\)`, escapeRegex("([{}])"))
	assert.Equal(t, `\^\$\|\?\+\\`, escapeRegex(`^$|?+\`))
}

func TestCreateReportInputValidate(t *testing.T) {
	valid := CreateReportInput{
		Title:       "Broken light",
		Description: "The street lamp is out",
		Category:    models.CategoryStreetlight,
		Latitude:    50.45,
		Longitude:   30.52,
	}

	t.Run("valid input defaults priority", func(t *testing.T) {
		in := valid
		require.NoError(t, in.validate())
		assert.Equal(t, models.PriorityMedium, in.Priority)
	})

	t.Run("missing title", func(t *testing.T) {
		in := valid
		in.Title = "   "
		assert.Error(t, in.validate())
	})

	t.Run("missing description", func(t *testing.T) {
		in := valid
		in.Description = ""
		assert.Error(t, in.validate())
	})

	t.Run("bad category", func(t *testing.T) {
		in := valid
		in.Category = "noise"
		assert.Error(t, in.validate())
	})

	t.Run("bad priority", func(t *testing.T) {
		in := valid
		in.Priority = "asap"
		assert.Error(t, in.validate())
	})

	t.Run("coordinates out of range", func(t *testing.T) {
		in := valid
		in.Latitude = 91
		assert.Error(t, in.validate())
	})
}
