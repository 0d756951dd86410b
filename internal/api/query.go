package api

import (
	"strconv"
	"strings"

	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/coldchain-twin/dashboard/internal/views"
	"github.com/labstack/echo/v4"
)

// filterFromQuery reads state, type, and q. Empty values leave the dimension unconstrained.
func filterFromQuery(c echo.Context) (views.Filter, error) {
	f := views.Filter{
		State:  models.AssetState(strings.ToUpper(strings.TrimSpace(c.QueryParam("state")))),
		Type:   models.AssetType(strings.TrimSpace(c.QueryParam("type"))),
		Search: strings.TrimSpace(c.QueryParam("q")),
	}

	switch f.State {
	case "", models.AssetStateNormal, models.AssetStateWarning, models.AssetStateCritical, models.AssetStateUnknown:
	default:
		return views.Filter{}, NewValidationError("state")
	}

	switch f.Type {
	case "", models.AssetTypeTruck, models.AssetTypeColdRoom:
	default:
		return views.Filter{}, NewValidationError("type")
	}

	return f, nil
}

// unitFromQuery lets a request override the stored temperature unit.
func unitFromQuery(c echo.Context, fallback models.TemperatureUnit) (models.TemperatureUnit, error) {
	raw := strings.ToLower(strings.TrimSpace(c.QueryParam("unit")))
	if raw == "" {
		return fallback, nil
	}
	unit := models.TemperatureUnit(raw)
	if !unit.Valid() {
		return "", NewValidationError("unit")
	}
	return unit, nil
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewValidationError(name)
	}
	return v, nil
}
