package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// GeocodeService resolves coordinates to a human-readable address through a
// Nominatim-compatible endpoint. It is optional: a nil *GeocodeService is a
// valid "geocoding disabled" value for its callers.
type GeocodeService struct {
	client  *resty.Client
	baseURL string
}

func NewGeocodeService(baseURL string) *GeocodeService {
	if baseURL == "" {
		return nil
	}
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetHeader("User-Agent", "civicreport/1.0")
	return &GeocodeService{client: client, baseURL: baseURL}
}

type reverseGeocodeResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// ReverseGeocode returns the display address for a coordinate pair.
func (g *GeocodeService) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	var result reverseGeocodeResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":    fmt.Sprintf("%f", lat),
			"lon":    fmt.Sprintf("%f", lng),
			"format": "json",
		}).
		SetResult(&result).
		Get(g.baseURL + "/reverse")
	if err != nil {
		return "", fmt.Errorf("reverse geocode request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("reverse geocode returned status %d", resp.StatusCode())
	}
	if result.Error != "" {
		return "", fmt.Errorf("reverse geocode: %s", result.Error)
	}
	return result.DisplayName, nil
}
