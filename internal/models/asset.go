package models

// AssetType identifies the kind of monitored asset.
type AssetType string

const (
	AssetTypeTruck    AssetType = "refrigerated_truck"
	AssetTypeColdRoom AssetType = "cold_room"
)

// Label returns the display label used in grids and exports.
func (t AssetType) Label() string {
	switch t {
	case AssetTypeTruck:
		return "Truck"
	case AssetTypeColdRoom:
		return "Cold Room"
	default:
		return string(t)
	}
}

// AssetState is the health state computed by the backend state engine.
type AssetState string

const (
	AssetStateNormal   AssetState = "NORMAL"
	AssetStateWarning  AssetState = "WARNING"
	AssetStateCritical AssetState = "CRITICAL"
	AssetStateUnknown  AssetState = "UNKNOWN"
)

// Location is the last reported GPS fix of a truck.
type Location struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	SpeedKmh  *float64 `json:"speed_kmh,omitempty"`
}

// Asset is the current state of one truck or cold room.
// Assets are replaced wholesale on every sync cycle and never patched.
type Asset struct {
	AssetID           string     `json:"asset_id"`
	AssetType         AssetType  `json:"asset_type"`
	State             AssetState `json:"state"`
	Reasons           []string   `json:"reasons"`
	TemperatureC      *float64   `json:"temperature_c,omitempty"`
	HumidityPct       *float64   `json:"humidity_pct,omitempty"`
	DoorOpen          bool       `json:"door_open"`
	CompressorRunning bool       `json:"compressor_running"`
	Location          *Location  `json:"location,omitempty"`
	UpdatedAt         string     `json:"updated_at"`
}

// IsTruck reports whether the asset is a refrigerated truck.
func (a Asset) IsTruck() bool {
	return a.AssetType == AssetTypeTruck
}

// HasLocation reports whether the asset carries a usable GPS fix.
func (a Asset) HasLocation() bool {
	return a.Location != nil && a.Location.Latitude != 0 && a.Location.Longitude != 0
}
