package models

// TelemetryPoint is one historical sample for an asset.
type TelemetryPoint struct {
	Timestamp    string   `json:"timestamp"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	HumidityPct  *float64 `json:"humidity_pct,omitempty"`
	DoorOpen     bool     `json:"door_open"`
	CreatedAt    string   `json:"created_at"`
}

// AssetHistory is the telemetry window for one asset, newest sample first as served by the backend.
type AssetHistory struct {
	AssetID   string           `json:"asset_id"`
	Hours     int              `json:"hours"`
	Count     int              `json:"count"`
	Telemetry []TelemetryPoint `json:"telemetry"`
}

// HealthStatus is the backend's own health report.
type HealthStatus struct {
	Status        string `json:"status"`
	Redis         bool   `json:"redis"`
	MongoDB       bool   `json:"mongodb"`
	KafkaConsumer bool   `json:"kafka_consumer"`
	Timestamp     string `json:"timestamp"`
}
