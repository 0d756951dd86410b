// Package views derives display data from a snapshot. Every function is pure:
// inputs are never modified and the same inputs always give the same output.
package views

import (
	"strings"

	"github.com/coldchain-twin/dashboard/internal/models"
)

// Filter narrows an asset list. Zero-valued fields do not constrain.
type Filter struct {
	State  models.AssetState `json:"state,omitempty"`
	Type   models.AssetType  `json:"type,omitempty"`
	Search string            `json:"search,omitempty"`
}

// IsEmpty reports whether f matches every asset.
func (f Filter) IsEmpty() bool {
	return f.State == "" && f.Type == "" && f.Search == ""
}

// Matches reports whether a passes all constraints of f.
func (f Filter) Matches(a models.Asset) bool {
	if f.State != "" && a.State != f.State {
		return false
	}
	if f.Type != "" && a.AssetType != f.Type {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(a.AssetID), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// FilterAssets returns the assets matching f, in their original order.
func FilterAssets(assets []models.Asset, f Filter) []models.Asset {
	out := make([]models.Asset, 0, len(assets))
	for _, a := range assets {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}

// Trucks returns the refrigerated trucks.
func Trucks(assets []models.Asset) []models.Asset {
	return FilterAssets(assets, Filter{Type: models.AssetTypeTruck})
}

// TrucksWithLocation returns the trucks that can be placed on a map.
func TrucksWithLocation(assets []models.Asset) []models.Asset {
	out := make([]models.Asset, 0)
	for _, a := range assets {
		if a.IsTruck() && a.HasLocation() {
			out = append(out, a)
		}
	}
	return out
}

// FindAsset looks an asset up by id.
func FindAsset(assets []models.Asset, id string) (models.Asset, bool) {
	for _, a := range assets {
		if a.AssetID == id {
			return a, true
		}
	}
	return models.Asset{}, false
}
