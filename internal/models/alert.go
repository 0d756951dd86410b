package models

// Alert is an active alert raised by the backend.
// AssetID is a weak reference and may name an asset missing from the current snapshot.
type Alert struct {
	AssetID      string     `json:"asset_id"`
	State        AssetState `json:"state"`
	Reasons      []string   `json:"reasons"`
	TemperatureC *float64   `json:"temperature_c,omitempty"`
	CreatedAt    string     `json:"created_at"`
}

// ActiveAlerts is the envelope returned by the active alerts endpoint.
type ActiveAlerts struct {
	Count  int     `json:"count"`
	Alerts []Alert `json:"alerts"`
}
