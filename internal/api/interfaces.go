// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"time"

	"github.com/coldchain-twin/dashboard/internal/client"
	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the synchronized state and the views derived from it
type DashboardHandler interface {
	HandleGetState(c echo.Context) error
	HandleGetStateMsgpack(c echo.Context) error
	HandleRefresh(c echo.Context) error
	HandleListAssets(c echo.Context) error
	HandleGetAsset(c echo.Context) error
	HandleGetAssetHistory(c echo.Context) error
	HandleGetAlerts(c echo.Context) error
	HandleGetTrucks(c echo.Context) error
	HandleGetAnalytics(c echo.Context) error
}

// StreamHandler pushes state changes to connected clients
type StreamHandler interface {
	HandleStateStream(c echo.Context) error
	HandleWebSocket(c echo.Context) error
}

// ExportHandler produces downloadable snapshots of the asset table
type ExportHandler interface {
	HandleExportCSV(c echo.Context) error
	HandleExportXLSX(c echo.Context) error
}

// SettingsHandler handles dashboard preference operations
type SettingsHandler interface {
	HandleGetSettings(c echo.Context) error
	HandleUpdateSettings(c echo.Context) error
	HandleResetSettings(c echo.Context) error
}

// ProxyHandler relays raw requests to the backend
type ProxyHandler interface {
	HandleProxy(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
	HandleBackendHealth(c echo.Context) error
}

// SyncEngine is the part of the sync engine the handlers depend on.
// This allows mocking in tests
type SyncEngine interface {
	State() models.SyncState
	Refresh() error
	SetInterval(d time.Duration) error
	Subscribe() (id string, updates <-chan models.SyncState, cancel func())
	SubscriberCount() int
	Running() bool
}

// SettingsStore defines the interface for settings persistence
type SettingsStore interface {
	Current() models.Settings
	Save(ctx context.Context, s models.Settings) error
	Reset() models.Settings
}

// BackendClient defines the direct backend reads that bypass the snapshot
type BackendClient interface {
	FetchAssetHistory(ctx context.Context, assetID string, hours int) (*models.AssetHistory, error)
	FetchHealth(ctx context.Context) (*models.HealthStatus, error)
	Forward(ctx context.Context, path, rawQuery string) (*client.Forwarded, error)
}
