package models

import (
	"fmt"
	"time"
)

// TemperatureUnit selects how temperatures are displayed.
type TemperatureUnit string

const (
	UnitCelsius    TemperatureUnit = "celsius"
	UnitFahrenheit TemperatureUnit = "fahrenheit"
)

// Valid reports whether u is a known unit.
func (u TemperatureUnit) Valid() bool {
	return u == UnitCelsius || u == UnitFahrenheit
}

// Settings defaults.
const (
	DefaultRefreshIntervalMs = 5000
	MinRefreshIntervalMs     = 1000

	DefaultTruckWarningC  = -10.0
	DefaultTruckCriticalC = -5.0
	DefaultRoomWarningC   = -15.0
	DefaultRoomCriticalC  = -10.0
)

// Thresholds are reference temperatures shown to operators.
// They do not change how the backend computes asset state.
type Thresholds struct {
	TruckWarningC  float64 `json:"truck_warning_c"`
	TruckCriticalC float64 `json:"truck_critical_c"`
	RoomWarningC   float64 `json:"room_warning_c"`
	RoomCriticalC  float64 `json:"room_critical_c"`
}

// Settings is the per-dashboard preference record.
type Settings struct {
	RefreshIntervalMs int             `json:"refresh_interval_ms"`
	TemperatureUnit   TemperatureUnit `json:"temperature_unit"`
	Thresholds
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		RefreshIntervalMs: DefaultRefreshIntervalMs,
		TemperatureUnit:   UnitCelsius,
		Thresholds: Thresholds{
			TruckWarningC:  DefaultTruckWarningC,
			TruckCriticalC: DefaultTruckCriticalC,
			RoomWarningC:   DefaultRoomWarningC,
			RoomCriticalC:  DefaultRoomCriticalC,
		},
	}
}

// RefreshInterval returns the refresh period as a duration.
func (s Settings) RefreshInterval() time.Duration {
	return time.Duration(s.RefreshIntervalMs) * time.Millisecond
}

// Validate checks field ranges.
func (s Settings) Validate() error {
	if s.RefreshIntervalMs < MinRefreshIntervalMs {
		return fmt.Errorf("refresh_interval_ms must be at least %d", MinRefreshIntervalMs)
	}
	if !s.TemperatureUnit.Valid() {
		return fmt.Errorf("temperature_unit must be %q or %q", UnitCelsius, UnitFahrenheit)
	}
	return nil
}
