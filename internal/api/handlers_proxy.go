// handlers_proxy.go - Passthrough to the backend API
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProxyHandlerImpl implements the ProxyHandler interface
type ProxyHandlerImpl struct {
	backend BackendClient
	logger  *zap.Logger
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(backend BackendClient, logger *zap.Logger) ProxyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyHandlerImpl{
		backend: backend,
		logger:  logger,
	}
}

// HandleProxy forwards the wildcard path and query string to the backend and relays its response.
// Responses are never cached.
func (h *ProxyHandlerImpl) HandleProxy(c echo.Context) error {
	path := "/" + c.Param("*")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")

	fwd, err := h.backend.Forward(c.Request().Context(), path, c.Request().URL.RawQuery)
	if err != nil {
		h.logger.Error("proxy request failed", zap.String("path", path), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "API request failed"})
	}

	contentType := fwd.ContentType
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	return c.Blob(fwd.StatusCode, contentType, fwd.Body)
}
