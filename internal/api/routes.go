// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Engine       SyncEngine
	Settings     SettingsStore
	Backend      BackendClient
	ProductName  string
	HistoryHours int // default history window when a request omits hours
	Version      string
	Logger       *zap.Logger
	Now          func() time.Time
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Dashboard DashboardHandler
	Stream    StreamHandler
	Export    ExportHandler
	Settings  SettingsHandler
	Proxy     ProxyHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Engine, deps.Backend),
		Dashboard: NewDashboardHandler(deps.Engine, deps.Settings, deps.Backend, deps.HistoryHours),
		Stream:    NewStreamHandler(deps.Engine, deps.Logger),
		Export:    NewExportHandler(deps.Engine, deps.ProductName, deps.Now),
		Settings:  NewSettingsHandler(deps.Settings, deps.Engine, deps.Logger),
		Proxy:     NewProxyHandler(deps.Backend, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)
	apiGroup.GET("/health/backend", handlers.Health.HandleBackendHealth)

	// Synchronized state and views
	dashboard := apiGroup.Group("/dashboard")
	dashboard.GET("/state", handlers.Dashboard.HandleGetState)
	dashboard.GET("/state/msgpack", handlers.Dashboard.HandleGetStateMsgpack)
	dashboard.POST("/refresh", handlers.Dashboard.HandleRefresh)
	dashboard.GET("/assets", handlers.Dashboard.HandleListAssets)
	dashboard.GET("/assets/:id", handlers.Dashboard.HandleGetAsset)
	dashboard.GET("/assets/:id/history", handlers.Dashboard.HandleGetAssetHistory)
	dashboard.GET("/alerts", handlers.Dashboard.HandleGetAlerts)
	dashboard.GET("/trucks", handlers.Dashboard.HandleGetTrucks)
	dashboard.GET("/analytics", handlers.Dashboard.HandleGetAnalytics)

	// Push channels
	dashboard.GET("/stream", handlers.Stream.HandleStateStream)
	dashboard.GET("/ws", handlers.Stream.HandleWebSocket)

	// Export
	dashboard.GET("/export/csv", handlers.Export.HandleExportCSV)
	dashboard.GET("/export/xlsx", handlers.Export.HandleExportXLSX)

	// Settings
	apiGroup.GET("/settings", handlers.Settings.HandleGetSettings)
	apiGroup.PUT("/settings", handlers.Settings.HandleUpdateSettings)
	apiGroup.POST("/settings/reset", handlers.Settings.HandleResetSettings)

	// Backend passthrough
	apiGroup.GET("/backend/*", handlers.Proxy.HandleProxy)
}

// IsStreamPath reports whether path is a long-lived push endpoint.
// Timeouts, compression, and request logging skip these.
func IsStreamPath(path string) bool {
	return strings.HasSuffix(path, "/stream") || strings.HasSuffix(path, "/ws")
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, development bool) {
	// Use custom error handler
	e.HTTPErrorHandler = NewErrorHandler(development)
}

// RequestLogger logs every request through zap.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/health" || IsStreamPath(path)
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.RequestID != "" {
				fields = append(fields, zap.String("request_id", v.RequestID))
			}
			if v.Error != nil {
				logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
