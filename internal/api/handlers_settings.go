// handlers_settings.go - Dashboard preference handlers
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/coldchain-twin/dashboard/internal/settings"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SettingsHandlerImpl implements the SettingsHandler interface
type SettingsHandlerImpl struct {
	store  SettingsStore
	engine SyncEngine
	logger *zap.Logger
}

// NewSettingsHandler creates a new settings handler. Saved and reset intervals are applied to engine.
func NewSettingsHandler(store SettingsStore, engine SyncEngine, logger *zap.Logger) SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsHandlerImpl{
		store:  store,
		engine: engine,
		logger: logger,
	}
}

type settingsResponse struct {
	models.Settings
	ThresholdsDisplayOnly bool   `json:"thresholds_display_only"`
	Notice                string `json:"notice"`
}

func newSettingsResponse(s models.Settings) settingsResponse {
	return settingsResponse{
		Settings:              s,
		ThresholdsDisplayOnly: true,
		Notice:                settings.DisplayOnlyNotice,
	}
}

// HandleGetSettings returns the current settings
func (h *SettingsHandlerImpl) HandleGetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, newSettingsResponse(h.store.Current()))
}

// HandleUpdateSettings saves settings. Fields absent from the body keep their current value.
func (h *SettingsHandlerImpl) HandleUpdateSettings(c echo.Context) error {
	next := h.store.Current()
	if err := json.NewDecoder(c.Request().Body).Decode(&next); err != nil {
		return NewBadRequestError("invalid settings body", err)
	}

	if err := h.store.Save(c.Request().Context(), next); err != nil {
		if errors.Is(err, settings.ErrInvalidSettings) {
			return NewBadRequestError("invalid settings", err)
		}
		return NewInternalError("failed to save settings", err)
	}

	h.applyInterval(next)
	return c.JSON(http.StatusOK, newSettingsResponse(next))
}

// HandleResetSettings restores defaults in memory without persisting them
func (h *SettingsHandlerImpl) HandleResetSettings(c echo.Context) error {
	s := h.store.Reset()
	h.applyInterval(s)
	return c.JSON(http.StatusOK, newSettingsResponse(s))
}

func (h *SettingsHandlerImpl) applyInterval(s models.Settings) {
	if err := h.engine.SetInterval(s.RefreshInterval()); err != nil {
		h.logger.Warn("failed to apply refresh interval",
			zap.Int("refresh_interval_ms", s.RefreshIntervalMs),
			zap.Error(err),
		)
	}
}
