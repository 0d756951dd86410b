package views

import (
	"time"

	"github.com/coldchain-twin/dashboard/internal/models"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ChartPoint is one sample of a temperature chart.
type ChartPoint struct {
	Label        string   `json:"label"`
	Timestamp    string   `json:"timestamp"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	HumidityPct  *float64 `json:"humidity_pct,omitempty"`
	DoorOpen     bool     `json:"door_open"`
}

// Chronological returns the points oldest first. The backend serves them newest first.
func Chronological(points []models.TelemetryPoint) []models.TelemetryPoint {
	out := make([]models.TelemetryPoint, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}

// ChartSeries turns a history window into chart points, oldest first, labelled HH:MM.
func ChartSeries(history *models.AssetHistory, unit models.TemperatureUnit) []ChartPoint {
	if history == nil {
		return []ChartPoint{}
	}
	points := Chronological(history.Telemetry)
	out := make([]ChartPoint, 0, len(points))
	for _, p := range points {
		out = append(out, ChartPoint{
			Label:        timeLabel(p.Timestamp),
			Timestamp:    p.Timestamp,
			TemperatureC: p.TemperatureC,
			Temperature:  ConvertTemperature(p.TemperatureC, unit),
			HumidityPct:  p.HumidityPct,
			DoorOpen:     p.DoorOpen,
		})
	}
	return out
}

func timeLabel(ts string) string {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("15:04")
		}
	}
	return ts
}
