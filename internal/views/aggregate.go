package views

import (
	"github.com/coldchain-twin/dashboard/internal/models"
)

// AverageTemperature returns the mean Celsius temperature of the assets that report one.
// ok is false when no asset has a reading.
func AverageTemperature(assets []models.Asset) (avg float64, ok bool) {
	var sum float64
	var n int
	for _, a := range assets {
		if a.TemperatureC == nil {
			continue
		}
		sum += *a.TemperatureC
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// FormatAverage renders the mean temperature in unit, or the placeholder for an empty subset.
func FormatAverage(assets []models.Asset, unit models.TemperatureUnit) string {
	avg, ok := AverageTemperature(assets)
	if !ok {
		return Placeholder
	}
	return FormatTemperature(&avg, unit)
}

// CountByState tallies assets per state. The three standard states are always present.
func CountByState(assets []models.Asset) map[models.AssetState]int {
	counts := map[models.AssetState]int{
		models.AssetStateNormal:   0,
		models.AssetStateWarning:  0,
		models.AssetStateCritical: 0,
	}
	for _, a := range assets {
		counts[a.State]++
	}
	return counts
}

// CountByType tallies assets per type. Both standard types are always present.
func CountByType(assets []models.Asset) map[models.AssetType]int {
	counts := map[models.AssetType]int{
		models.AssetTypeTruck:    0,
		models.AssetTypeColdRoom: 0,
	}
	for _, a := range assets {
		counts[a.AssetType]++
	}
	return counts
}

// TypeSummary aggregates one asset type.
type TypeSummary struct {
	Type               models.AssetType          `json:"type"`
	Label              string                    `json:"label"`
	Count              int                       `json:"count"`
	AverageTemperature string                    `json:"average_temperature"`
	ByState            map[models.AssetState]int `json:"by_state"`
}

// Analytics is the aggregate view of one snapshot.
type Analytics struct {
	Shown              int                       `json:"shown"`
	Total              int                       `json:"total"`
	ByState            map[models.AssetState]int `json:"by_state"`
	ByType             map[models.AssetType]int  `json:"by_type"`
	Types              []TypeSummary             `json:"types"`
	AverageTemperature string                    `json:"average_temperature"`
	ActiveAlerts       int                       `json:"active_alerts"`
	Unit               models.TemperatureUnit    `json:"unit"`
	Thresholds         models.Thresholds         `json:"thresholds"`
	ThresholdsDisplay  bool                      `json:"thresholds_display_only"`
}

// BuildAnalytics computes aggregates over the filtered assets of snap.
func BuildAnalytics(snap *models.Snapshot, f Filter, s models.Settings) Analytics {
	var all []models.Asset
	var alerts int
	if snap != nil {
		all = snap.Assets
		alerts = len(snap.Alerts)
	}
	shown := FilterAssets(all, f)

	types := make([]TypeSummary, 0, 2)
	for _, t := range []models.AssetType{models.AssetTypeTruck, models.AssetTypeColdRoom} {
		subset := FilterAssets(shown, Filter{Type: t})
		types = append(types, TypeSummary{
			Type:               t,
			Label:              t.Label(),
			Count:              len(subset),
			AverageTemperature: FormatAverage(subset, s.TemperatureUnit),
			ByState:            CountByState(subset),
		})
	}

	return Analytics{
		Shown:              len(shown),
		Total:              len(all),
		ByState:            CountByState(shown),
		ByType:             CountByType(shown),
		Types:              types,
		AverageTemperature: FormatAverage(shown, s.TemperatureUnit),
		ActiveAlerts:       alerts,
		Unit:               s.TemperatureUnit,
		Thresholds:         s.Thresholds,
		ThresholdsDisplay:  true,
	}
}
