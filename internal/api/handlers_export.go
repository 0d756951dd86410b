// handlers_export.go - Asset table export handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/coldchain-twin/dashboard/internal/views"
	"github.com/labstack/echo/v4"
)

// ExportHandlerImpl implements the ExportHandler interface
type ExportHandlerImpl struct {
	engine  SyncEngine
	product string
	now     func() time.Time
}

// NewExportHandler creates a new export handler. product prefixes the download file name.
func NewExportHandler(engine SyncEngine, product string, now func() time.Time) ExportHandler {
	if now == nil {
		now = time.Now
	}
	return &ExportHandlerImpl{
		engine:  engine,
		product: product,
		now:     now,
	}
}

// HandleExportCSV downloads the filtered asset table as CSV.
// quoted=true escapes fields; by default values are written as-is.
func (h *ExportHandlerImpl) HandleExportCSV(c echo.Context) error {
	assets, err := h.exportAssets(c)
	if err != nil {
		return err
	}

	var body string
	if quoted, _ := strconv.ParseBool(c.QueryParam("quoted")); quoted {
		if body, err = views.ExportCSVQuoted(assets); err != nil {
			return NewInternalError("failed to build CSV", err)
		}
	} else {
		body = views.ExportCSV(assets)
	}

	setAttachment(c, views.ExportFilename(h.product, h.now(), "csv"))
	return c.Blob(http.StatusOK, views.CSVContentType, []byte(body))
}

// HandleExportXLSX downloads the filtered asset table as an Excel workbook
func (h *ExportHandlerImpl) HandleExportXLSX(c echo.Context) error {
	assets, err := h.exportAssets(c)
	if err != nil {
		return err
	}

	data, err := views.ExportXLSX(assets)
	if err != nil {
		return NewInternalError("failed to build workbook", err)
	}

	setAttachment(c, views.ExportFilename(h.product, h.now(), "xlsx"))
	return c.Blob(http.StatusOK, views.XLSXContentType, data)
}

func (h *ExportHandlerImpl) exportAssets(c echo.Context) ([]models.Asset, error) {
	f, err := filterFromQuery(c)
	if err != nil {
		return nil, err
	}
	snap := h.engine.State().Snapshot
	if snap == nil {
		return []models.Asset{}, nil
	}
	return views.FilterAssets(snap.Assets, f), nil
}

func setAttachment(c echo.Context, filename string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
}
