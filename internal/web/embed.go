// Package web serves the dashboard frontend embedded in the binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed dist/*
var staticFiles embed.FS

// GetFileSystem returns the embedded filesystem with the dist folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "dist")
}

// HasEmbeddedFiles returns true if a frontend build has been embedded.
func HasEmbeddedFiles() bool {
	staticFS, err := GetFileSystem()
	if err != nil {
		return false
	}
	return hasIndex(staticFS)
}

// RegisterStaticRoutes serves the embedded frontend for every path not claimed by the API.
// The API routes should be registered before calling this function.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}
	RegisterFS(e, staticFS)
	return nil
}

// RegisterFS serves staticFS with single-page-app fallback: unknown paths get index.html
// so the frontend router can resolve them. /api paths are never rewritten.
func RegisterFS(e *echo.Echo, staticFS fs.FS) {
	fileServer := http.FileServer(http.FS(staticFS))

	e.GET("/*", func(c echo.Context) error {
		requestPath := path.Clean("/" + c.Param("*"))
		if strings.HasPrefix(requestPath, "/api/") || requestPath == "/api" {
			return echo.ErrNotFound
		}

		name := strings.TrimPrefix(requestPath, "/")
		if name == "" {
			return serveIndexHTML(c, staticFS)
		}

		stat, err := fs.Stat(staticFS, name)
		if err != nil || stat.IsDir() {
			return serveIndexHTML(c, staticFS)
		}

		if strings.HasPrefix(name, "assets/") {
			c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=31536000, immutable")
		}
		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})
}

// serveIndexHTML serves the main index.html for SPA routing
func serveIndexHTML(c echo.Context, staticFS fs.FS) error {
	content, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "index.html not found")
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return c.HTMLBlob(http.StatusOK, content)
}

func hasIndex(staticFS fs.FS) bool {
	stat, err := fs.Stat(staticFS, "index.html")
	return err == nil && !stat.IsDir()
}
