package utils

import (
	"math"
	"testing"

	"civicreport/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lng  float64
		want bool
	}{
		{"origin", 0, 0, true},
		{"kyiv", 50.45, 30.52, true},
		{"poles", 90, 180, true},
		{"negative extremes", -90, -180, true},
		{"latitude too high", 90.1, 0, false},
		{"latitude too low", -90.1, 0, false},
		{"longitude too high", 0, 180.1, false},
		{"longitude too low", 0, -180.1, false},
		{"NaN latitude", math.NaN(), 0, false},
		{"NaN longitude", 0, math.NaN(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCoordinates(tt.lat, tt.lng))
		})
	}
}

func TestDistanceMeters(t *testing.T) {
	kyiv := models.NewPoint(30.5234, 50.4501)
	lviv := models.NewPoint(24.0297, 49.8397)

	// Kyiv to Lviv is roughly 468 km great-circle.
	distance := DistanceMeters(kyiv, lviv)
	assert.InDelta(t, 468000, distance, 5000)
}

func TestDistanceMetersZero(t *testing.T) {
	p := models.NewPoint(30.5, 50.4)
	assert.InDelta(t, 0, DistanceMeters(p, p), 0.001)
}

func TestDistanceMetersSymmetry(t *testing.T) {
	a := models.NewPoint(30.5, 50.4)
	b := models.NewPoint(30.6, 50.5)
	assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 0.001)
}
