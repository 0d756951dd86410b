package views

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coldchain-twin/dashboard/internal/models"
)

// Export content types.
const (
	CSVContentType  = "text/csv"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportColumns is the fixed column order of every export.
var ExportColumns = []string{
	"asset_id",
	"type",
	"temperature_c",
	"humidity_pct",
	"door_open",
	"compressor",
	"state",
}

// ExportRow returns the export fields of a in column order. Missing values are empty.
func ExportRow(a models.Asset) []string {
	return []string{
		a.AssetID,
		a.AssetType.Label(),
		formatNumber(a.TemperatureC),
		formatNumber(a.HumidityPct),
		yesNo(a.DoorOpen),
		CompressorLabel(a.CompressorRunning),
		string(a.State),
	}
}

// ExportCSV renders assets in snapshot order, one line per asset after the header.
// Fields are joined with commas as-is: values containing commas or quotes are not escaped.
// Use ExportCSVQuoted when escaping is needed.
func ExportCSV(assets []models.Asset) string {
	lines := make([]string, 0, len(assets)+1)
	lines = append(lines, strings.Join(ExportColumns, ","))
	for _, a := range assets {
		lines = append(lines, strings.Join(ExportRow(a), ","))
	}
	return strings.Join(lines, "\n")
}

// ExportCSVQuoted renders the same rows with RFC 4180 quoting.
func ExportCSVQuoted(assets []models.Asset) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ExportColumns); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	for _, a := range assets {
		if err := w.Write(ExportRow(a)); err != nil {
			return "", fmt.Errorf("writing row %s: %w", a.AssetID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// ExportFilename returns "<product>-export-<YYYY-MM-DD>.<ext>" using the UTC date of at.
func ExportFilename(product string, at time.Time, ext string) string {
	return fmt.Sprintf("%s-export-%s.%s", product, at.UTC().Format("2006-01-02"), ext)
}

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
