// handlers_dashboard.go - Synchronized state and derived view handlers
package api

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/coldchain-twin/dashboard/internal/client"
	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/coldchain-twin/dashboard/internal/syncer"
	"github.com/coldchain-twin/dashboard/internal/views"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackContentType is the media type of binary state responses.
const MsgpackContentType = "application/msgpack"

// DashboardHandlerImpl implements the DashboardHandler interface
type DashboardHandlerImpl struct {
	engine       SyncEngine
	settings     SettingsStore
	backend      BackendClient
	historyHours int
}

// NewDashboardHandler creates a new dashboard handler.
// historyHours is the default history window; zero selects client.DefaultHistoryHours.
func NewDashboardHandler(engine SyncEngine, settings SettingsStore, backend BackendClient, historyHours int) DashboardHandler {
	if historyHours == 0 {
		historyHours = client.DefaultHistoryHours
	}
	return &DashboardHandlerImpl{
		engine:       engine,
		settings:     settings,
		backend:      backend,
		historyHours: historyHours,
	}
}

// Response types

type assetListResponse struct {
	Assets    []views.AssetView      `json:"assets"`
	Shown     int                    `json:"shown"`
	Total     int                    `json:"total"`
	Filter    views.Filter           `json:"filter"`
	Unit      models.TemperatureUnit `json:"unit"`
	Loading   bool                   `json:"loading"`
	Error     *string                `json:"error"`
	FetchedAt *time.Time             `json:"fetched_at,omitempty"`
}

type assetHistoryResponse struct {
	AssetID   string                  `json:"asset_id"`
	Hours     int                     `json:"hours"`
	Count     int                     `json:"count"`
	Unit      models.TemperatureUnit  `json:"unit"`
	Telemetry []models.TelemetryPoint `json:"telemetry"`
	Series    []views.ChartPoint      `json:"series"`
}

type truckMapResponse struct {
	Trucks []views.AssetView `json:"trucks"`
	Center views.LatLng      `json:"center"`
}

// HandleGetState returns the current SyncState
func (h *DashboardHandlerImpl) HandleGetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.State())
}

// HandleGetStateMsgpack returns the current SyncState encoded as MessagePack
func (h *DashboardHandlerImpl) HandleGetStateMsgpack(c echo.Context) error {
	data, err := EncodeStateMsgpack(h.engine.State())
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, MsgpackContentType, data)
}

// HandleRefresh asks the engine for an extra cycle
func (h *DashboardHandlerImpl) HandleRefresh(c echo.Context) error {
	if err := h.engine.Refresh(); err != nil {
		if errors.Is(err, syncer.ErrNotRunning) || errors.Is(err, syncer.ErrEngineStopped) {
			return NewServiceUnavailableError("sync engine is not running")
		}
		return NewInternalError("refresh failed", err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "refresh requested"})
}

// HandleListAssets returns the filtered asset table with display values
func (h *DashboardHandlerImpl) HandleListAssets(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	unit, err := unitFromQuery(c, h.settings.Current().TemperatureUnit)
	if err != nil {
		return err
	}

	state := h.engine.State()
	resp := assetListResponse{
		Assets:  []views.AssetView{},
		Filter:  f,
		Unit:    unit,
		Loading: state.Loading,
		Error:   state.Error,
	}
	if snap := state.Snapshot; snap != nil {
		shown := views.FilterAssets(snap.Assets, f)
		resp.Assets = views.DisplayAssets(shown, unit)
		resp.Shown = len(shown)
		resp.Total = len(snap.Assets)
		fetchedAt := snap.FetchedAt
		resp.FetchedAt = &fetchedAt
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetAsset returns one asset from the current snapshot
func (h *DashboardHandlerImpl) HandleGetAsset(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	unit, err := unitFromQuery(c, h.settings.Current().TemperatureUnit)
	if err != nil {
		return err
	}

	snap := h.engine.State().Snapshot
	if snap == nil {
		return NewNotFoundError("asset", id)
	}
	asset, ok := views.FindAsset(snap.Assets, id)
	if !ok {
		return NewNotFoundError("asset", id)
	}
	return c.JSON(http.StatusOK, views.DisplayAsset(asset, unit))
}

// HandleGetAssetHistory fetches an asset's telemetry window and returns it oldest first
func (h *DashboardHandlerImpl) HandleGetAssetHistory(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	hours, err := intQuery(c, "hours", h.historyHours)
	if err != nil {
		return err
	}
	unit, err := unitFromQuery(c, h.settings.Current().TemperatureUnit)
	if err != nil {
		return err
	}

	history, err := h.backend.FetchAssetHistory(c.Request().Context(), id, hours)
	if err != nil {
		return historyError(id, err)
	}

	return c.JSON(http.StatusOK, assetHistoryResponse{
		AssetID:   history.AssetID,
		Hours:     history.Hours,
		Count:     history.Count,
		Unit:      unit,
		Telemetry: views.Chronological(history.Telemetry),
		Series:    views.ChartSeries(history, unit),
	})
}

func historyError(id string, err error) error {
	if errors.Is(err, client.ErrInvalidHours) {
		return NewBadRequestError("hours out of range", err)
	}
	var te *client.TransportError
	if errors.As(err, &te) && te.Kind == client.KindStatus && te.StatusCode == http.StatusNotFound {
		return NewNotFoundError("asset", id)
	}
	return NewBadGatewayError("failed to fetch asset history", err)
}

// HandleGetAlerts returns the active alerts of the current snapshot
func (h *DashboardHandlerImpl) HandleGetAlerts(c echo.Context) error {
	alerts := []models.Alert{}
	if snap := h.engine.State().Snapshot; snap != nil {
		alerts = snap.Alerts
	}
	return c.JSON(http.StatusOK, models.ActiveAlerts{Count: len(alerts), Alerts: alerts})
}

// HandleGetTrucks returns the trucks that have a location, plus the map center
func (h *DashboardHandlerImpl) HandleGetTrucks(c echo.Context) error {
	unit, err := unitFromQuery(c, h.settings.Current().TemperatureUnit)
	if err != nil {
		return err
	}

	var assets []models.Asset
	if snap := h.engine.State().Snapshot; snap != nil {
		assets = snap.Assets
	}
	return c.JSON(http.StatusOK, truckMapResponse{
		Trucks: views.DisplayAssets(views.TrucksWithLocation(assets), unit),
		Center: views.MapCenter(assets),
	})
}

// HandleGetAnalytics returns aggregates over the filtered snapshot
func (h *DashboardHandlerImpl) HandleGetAnalytics(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	s := h.settings.Current()
	if s.TemperatureUnit, err = unitFromQuery(c, s.TemperatureUnit); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views.BuildAnalytics(h.engine.State().Snapshot, f, s))
}

// EncodeStateMsgpack encodes state with the same field names as its JSON form.
func EncodeStateMsgpack(state models.SyncState) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
