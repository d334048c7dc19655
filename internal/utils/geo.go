package utils

import (
	"math"

	"civicreport/internal/models"
)

const earthRadiusMeters = 6371000

// ValidCoordinates reports whether lat/lng fall in the WGS84 ranges.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DistanceMeters computes the haversine distance between two points.
func DistanceMeters(a, b models.Location) float64 {
	lat1 := toRadians(a.Latitude())
	lat2 := toRadians(b.Latitude())
	dLat := toRadians(b.Latitude() - a.Latitude())
	dLng := toRadians(b.Longitude() - a.Longitude())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}
