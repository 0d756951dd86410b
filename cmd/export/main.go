// Command export fetches one snapshot from the backend and writes the asset table to a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coldchain-twin/dashboard/internal/client"
	"github.com/coldchain-twin/dashboard/internal/config"
	"github.com/coldchain-twin/dashboard/internal/logger"
	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/coldchain-twin/dashboard/internal/syncer"
	"github.com/coldchain-twin/dashboard/internal/views"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	format     string
	outDir     string
	quoted     bool
	filter     views.Filter
}

func main() {
	var opts options
	var state, assetType string
	flag.StringVar(&opts.configPath, "config", "coldchain.yaml", "path to the YAML config file")
	flag.StringVar(&opts.format, "format", "csv", "output format: csv or xlsx")
	flag.StringVar(&opts.outDir, "out", ".", "output directory")
	flag.BoolVar(&opts.quoted, "quoted", false, "quote CSV fields that contain commas or quotes")
	flag.StringVar(&state, "state", "", "only export assets in this state (NORMAL, WARNING, CRITICAL)")
	flag.StringVar(&assetType, "type", "", "only export this asset type (refrigerated_truck, cold_room)")
	flag.StringVar(&opts.filter.Search, "q", "", "only export assets whose id contains this text")
	flag.Parse()

	opts.filter.State = models.AssetState(state)
	opts.filter.Type = models.AssetType(assetType)

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.format != "csv" && opts.format != "xlsx" {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, "coldchain-export")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := client.New(cfg.Backend.APIURL, cfg.BackendTimeout(), client.WithLogger(log.Named("client")))
	engine := syncer.New(backend, syncer.WithLogger(log.Named("syncer")))
	defer engine.Stop()

	if err := engine.RunCycle(ctx); err != nil {
		return fmt.Errorf("fetching snapshot: %w", err)
	}
	snap := engine.State().Snapshot
	assets := views.FilterAssets(snap.Assets, opts.filter)

	data, err := render(assets, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(opts.outDir, views.ExportFilename(cfg.Export.ProductName, time.Now(), opts.format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	log.Info("export written",
		zap.String("path", path),
		zap.Int("rows", len(assets)),
		zap.Int("total", len(snap.Assets)),
	)
	return nil
}

func render(assets []models.Asset, opts options) ([]byte, error) {
	switch {
	case opts.format == "xlsx":
		return views.ExportXLSX(assets)
	case opts.quoted:
		s, err := views.ExportCSVQuoted(assets)
		return []byte(s), err
	default:
		return []byte(views.ExportCSV(assets)), nil
	}
}
