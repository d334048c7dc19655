package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Polygon is a GeoJSON Polygon: a list of linear rings, each a list of
// [longitude, latitude] positions.
type Polygon struct {
	Type        string        `bson:"type" json:"type"`
	Coordinates [][][]float64 `bson:"coordinates" json:"coordinates"`
}

type Department struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	// Categories this department is responsible for.
	Categories []ReportCategory `bson:"categories" json:"categories"`

	ContactEmail string `bson:"contact_email,omitempty" json:"contact_email,omitempty"`
	ContactPhone string `bson:"contact_phone,omitempty" json:"contact_phone,omitempty"`

	Supervisors []primitive.ObjectID `bson:"supervisors" json:"supervisors"`

	ResponsibleArea *Polygon `bson:"responsible_area,omitempty" json:"responsible_area,omitempty"`

	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// HandlesCategory reports whether the department covers the given category.
func (d *Department) HandlesCategory(category ReportCategory) bool {
	for _, c := range d.Categories {
		if c == category {
			return true
		}
	}
	return false
}
