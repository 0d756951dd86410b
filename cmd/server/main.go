package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coldchain-twin/dashboard/internal/api"
	"github.com/coldchain-twin/dashboard/internal/client"
	"github.com/coldchain-twin/dashboard/internal/config"
	"github.com/coldchain-twin/dashboard/internal/logger"
	"github.com/coldchain-twin/dashboard/internal/settings"
	"github.com/coldchain-twin/dashboard/internal/storage"
	"github.com/coldchain-twin/dashboard/internal/syncer"
	"github.com/coldchain-twin/dashboard/internal/web"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "coldchain.yaml", "path to the YAML config file (created with defaults if missing)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, "coldchain-dashboard")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal("failed to create directories", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Settings
	records, closeRecords, err := openRecordStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open settings storage", zap.String("backend", cfg.Settings.Backend), zap.Error(err))
	}
	defer closeRecords()

	settingsStore := settings.NewStore(records, cfg.Settings.RecordName, log.Named("settings"))
	prefs := settingsStore.Load(ctx)

	// Backend client and sync engine
	backend := client.New(cfg.Backend.APIURL, cfg.BackendTimeout(), client.WithLogger(log.Named("client")))
	engine := syncer.New(backend,
		syncer.WithInterval(prefs.RefreshInterval()),
		syncer.WithLogger(log.Named("syncer")),
	)
	if cfg.Sync.Enabled {
		if err := engine.Start(ctx); err != nil {
			log.Fatal("failed to start sync engine", zap.Error(err))
		}
	}

	// Check if running in embedded mode (frontend built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.SetupMiddleware(e, cfg.Server.Development)
	configureMiddleware(e, cfg, log, embeddedMode)

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Engine:       engine,
		Settings:     settingsStore,
		Backend:      backend,
		ProductName:  cfg.Export.ProductName,
		HistoryHours: cfg.Backend.HistoryHours,
		Version:      Version,
		Logger:       log.Named("api"),
	}))

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			log.Warn("failed to register static routes", zap.Error(err))
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, *configPath, embeddedMode)

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	engine.Stop()
	engine.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openRecordStore returns the settings record store selected by config.
func openRecordStore(ctx context.Context, cfg *config.AppConfig) (storage.RecordStore, func(), error) {
	switch cfg.Settings.Backend {
	case "redis":
		rdb := storage.NewRedisClient(storage.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := storage.Ping(ctx, rdb); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return storage.NewRedisStore(rdb, cfg.Redis.KeyPrefix), func() { _ = rdb.Close() }, nil
	default:
		store, err := storage.NewLocalStore(cfg.GetDataDir())
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func configureMiddleware(e *echo.Echo, cfg *config.AppConfig, log *zap.Logger, embeddedMode bool) {
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	if cfg.Logging.EnableRequestLogging {
		e.Use(api.RequestLogger(log.Named("http")))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return api.IsStreamPath(c.Request().URL.Path) ||
				c.Request().Header.Get("Accept") == "text/event-stream"
		},
		ErrorMessage: "Request timeout - backend took too long",
	}))

	// Compression middleware
	if cfg.Server.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Server.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return api.IsStreamPath(c.Request().URL.Path) ||
					c.Request().Header.Get("Accept") == "text/event-stream"
			},
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := []string{"*"}
		if !embeddedMode && cfg.Server.Development {
			// Development mode - only allow the frontend dev server
			origins = []string{
				"http://localhost:5173", "http://127.0.0.1:5173",
				"http://localhost:3000", "http://127.0.0.1:3000",
			}
		} else if cfg.Server.AllowOrigins != "" {
			origins = strings.Split(cfg.Server.AllowOrigins, ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

func printBanner(cfg *config.AppConfig, configPath string, embeddedMode bool) {
	mode := "API only"
	if embeddedMode {
		mode = "Embedded frontend"
	}
	settingsAt := cfg.GetDataDir()
	if cfg.Settings.Backend == "redis" {
		settingsAt = "redis://" + cfg.Redis.Addr
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Cold-Chain Dashboard Server                     ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Backend:   %-46s║\n", cfg.Backend.APIURL)
	fmt.Printf("║  Settings:  %-46s║\n", settingsAt)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
