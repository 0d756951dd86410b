package views

import (
	"fmt"

	"github.com/coldchain-twin/dashboard/internal/models"
)

// Placeholder is shown wherever a value is undefined.
const Placeholder = "--"

// ToFahrenheit converts Celsius to Fahrenheit.
func ToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// ToCelsius converts Fahrenheit to Celsius.
func ToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// ConvertTemperature converts a Celsius reading to unit. nil stays nil.
func ConvertTemperature(c *float64, unit models.TemperatureUnit) *float64 {
	if c == nil {
		return nil
	}
	v := *c
	if unit == models.UnitFahrenheit {
		v = ToFahrenheit(v)
	}
	return &v
}

// Symbol returns the display suffix for unit.
func Symbol(unit models.TemperatureUnit) string {
	if unit == models.UnitFahrenheit {
		return "°F"
	}
	return "°C"
}

// FormatTemperature renders a Celsius reading in unit with one decimal, or the placeholder.
func FormatTemperature(c *float64, unit models.TemperatureUnit) string {
	v := ConvertTemperature(c, unit)
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.1f%s", *v, Symbol(unit))
}

// FormatHumidity renders a relative humidity with one decimal, or the placeholder.
func FormatHumidity(h *float64) string {
	if h == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.1f%%", *h)
}
