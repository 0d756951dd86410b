// handlers_health.go - Health check handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	engine  SyncEngine
	backend BackendClient
	now     func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, engine SyncEngine, backend BackendClient) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		engine:  engine,
		backend: backend,
		now:     time.Now,
	}
}

// HandleHealth returns server health status. The last sync failing degrades, but never fails, the check.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	state := h.engine.State()

	status := "ok"
	if state.HasError() {
		status = "degraded"
	}

	resp := map[string]interface{}{
		"status":      status,
		"version":     h.version,
		"syncing":     h.engine.Running(),
		"loading":     state.Loading,
		"error":       state.Error,
		"subscribers": h.engine.SubscriberCount(),
	}
	if snap := state.Snapshot; snap != nil {
		resp["last_sync"] = snap.FetchedAt
		resp["snapshot_age_seconds"] = h.now().Sub(snap.FetchedAt).Seconds()
		resp["cycle"] = snap.Cycle
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleBackendHealth relays the backend's own health report
func (h *HealthHandlerImpl) HandleBackendHealth(c echo.Context) error {
	health, err := h.backend.FetchHealth(c.Request().Context())
	if err != nil {
		return NewBadGatewayError("backend health check failed", err)
	}
	return c.JSON(http.StatusOK, health)
}
