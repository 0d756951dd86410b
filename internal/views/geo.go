package views

import "github.com/coldchain-twin/dashboard/internal/models"

// LatLng is a map coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultMapCenter is used when no truck reports a position (Los Angeles).
var DefaultMapCenter = LatLng{Latitude: 34.0522, Longitude: -118.2437}

// MapCenter centers the fleet map on the first truck with a position.
func MapCenter(assets []models.Asset) LatLng {
	trucks := TrucksWithLocation(assets)
	if len(trucks) == 0 {
		return DefaultMapCenter
	}
	return LatLng{
		Latitude:  trucks[0].Location.Latitude,
		Longitude: trucks[0].Location.Longitude,
	}
}
