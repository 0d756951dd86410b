package views

import "github.com/coldchain-twin/dashboard/internal/models"

// AssetView is an asset with its display strings resolved for one unit.
type AssetView struct {
	models.Asset
	TypeLabel   string `json:"type_label"`
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
	Door        string `json:"door"`
	Compressor  string `json:"compressor"`
}

// DisplayAsset resolves the display strings of a.
func DisplayAsset(a models.Asset, unit models.TemperatureUnit) AssetView {
	return AssetView{
		Asset:       a,
		TypeLabel:   a.AssetType.Label(),
		Temperature: FormatTemperature(a.TemperatureC, unit),
		Humidity:    FormatHumidity(a.HumidityPct),
		Door:        DoorLabel(a.DoorOpen),
		Compressor:  CompressorLabel(a.CompressorRunning),
	}
}

// DisplayAssets resolves every asset, preserving order.
func DisplayAssets(assets []models.Asset, unit models.TemperatureUnit) []AssetView {
	out := make([]AssetView, 0, len(assets))
	for _, a := range assets {
		out = append(out, DisplayAsset(a, unit))
	}
	return out
}

// DoorLabel renders the door flag for detail views.
func DoorLabel(open bool) string {
	if open {
		return "Open"
	}
	return "Closed"
}

// CompressorLabel renders the compressor flag.
func CompressorLabel(running bool) string {
	if running {
		return "Running"
	}
	return "Off"
}
