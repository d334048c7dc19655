package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location is a GeoJSON Point. Coordinates are [longitude, latitude].
type Location struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewPoint(lng, lat float64) Location {
	return Location{Type: "Point", Coordinates: []float64{lng, lat}}
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) == 2 {
		return l.Coordinates[0]
	}
	return 0
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) == 2 {
		return l.Coordinates[1]
	}
	return 0
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`

	// Ids of notifications created for this user, newest appended last.
	Notifications []primitive.ObjectID `bson:"notifications" json:"notifications,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role.IsAdmin()
}
