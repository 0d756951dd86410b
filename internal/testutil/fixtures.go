package testutil

import "github.com/coldchain-twin/dashboard/internal/models"

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Truck builds a refrigerated truck asset.
func Truck(id string, state models.AssetState, tempC float64) models.Asset {
	return models.Asset{
		AssetID:           id,
		AssetType:         models.AssetTypeTruck,
		State:             state,
		Reasons:           []string{},
		TemperatureC:      Float(tempC),
		HumidityPct:       Float(55),
		CompressorRunning: true,
		Location:          &models.Location{Latitude: 34.1, Longitude: -118.3},
		UpdatedAt:         "2024-05-01T10:00:00",
	}
}

// ColdRoom builds a cold room asset.
func ColdRoom(id string, state models.AssetState, tempC float64) models.Asset {
	return models.Asset{
		AssetID:           id,
		AssetType:         models.AssetTypeColdRoom,
		State:             state,
		Reasons:           []string{},
		TemperatureC:      Float(tempC),
		HumidityPct:       Float(70),
		CompressorRunning: true,
		UpdatedAt:         "2024-05-01T10:00:00",
	}
}

// Fleet returns a small mixed fleet in a stable order.
func Fleet() []models.Asset {
	return []models.Asset{
		Truck("TRUCK-001", models.AssetStateNormal, -18),
		Truck("TRUCK-002", models.AssetStateCritical, -2),
		ColdRoom("ROOM-001", models.AssetStateWarning, -16),
		ColdRoom("ROOM-002", models.AssetStateNormal, -20),
	}
}

// StatsFor returns a Stats value consistent with assets.
func StatsFor(assets []models.Asset, activeAlerts int) models.Stats {
	stats := models.Stats{
		TotalAssets: len(assets),
		StateCounts: map[models.AssetState]int{
			models.AssetStateNormal:   0,
			models.AssetStateWarning:  0,
			models.AssetStateCritical: 0,
		},
		AssetTypes: map[models.AssetType]int{
			models.AssetTypeTruck:    0,
			models.AssetTypeColdRoom: 0,
		},
		ActiveAlerts: activeAlerts,
		UpdatedAt:    "2024-05-01T10:00:00",
	}
	for _, a := range assets {
		stats.StateCounts[a.State]++
		stats.AssetTypes[a.AssetType]++
	}
	return stats
}
