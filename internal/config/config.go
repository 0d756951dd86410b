// Package config provides YAML and environment based configuration for the dashboard server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/coldchain-twin/dashboard/internal/client"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of structured environment overrides, e.g. COLDCHAIN_SERVER_PORT.
const EnvPrefix = "COLDCHAIN"

// DefaultAPIURL is the in-cluster address of the state engine.
const DefaultAPIURL = "http://state-engine.coldchain.svc.cluster.local"

// AppConfig is the root configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Backend  BackendConfig  `mapstructure:"backend" yaml:"backend"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Settings SettingsConfig `mapstructure:"settings" yaml:"settings"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Export   ExportConfig   `mapstructure:"export" yaml:"export"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port              int    `mapstructure:"port" yaml:"port"`
	BindAddress       string `mapstructure:"bind_address" yaml:"bind_address"`
	EnableCORS        bool   `mapstructure:"enable_cors" yaml:"enable_cors"`
	AllowOrigins      string `mapstructure:"allow_origins" yaml:"allow_origins"`
	ReadTimeout       int    `mapstructure:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeout      int    `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	IdleTimeout       int    `mapstructure:"idle_timeout_seconds" yaml:"idle_timeout_seconds"`
	BodyLimit         string `mapstructure:"body_limit" yaml:"body_limit"`
	EnableCompression bool   `mapstructure:"enable_compression" yaml:"enable_compression"`
	CompressionLevel  int    `mapstructure:"compression_level" yaml:"compression_level"`
	Development       bool   `mapstructure:"development" yaml:"development"`
}

// BackendConfig locates the state engine API.
type BackendConfig struct {
	APIURL         string `mapstructure:"api_url" yaml:"api_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	HistoryHours   int    `mapstructure:"history_hours" yaml:"history_hours"`
}

// SyncConfig controls the polling engine.
type SyncConfig struct {
	// Enabled starts the engine with the server. Disable to serve only the proxy.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// SettingsConfig selects where dashboard settings are persisted.
type SettingsConfig struct {
	Backend       string `mapstructure:"backend" yaml:"backend"` // "file" or "redis"
	DataDirectory string `mapstructure:"data_directory" yaml:"data_directory"`
	RecordName    string `mapstructure:"record_name" yaml:"record_name"`
}

// RedisConfig is used when settings.backend is "redis".
type RedisConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	Password  string `mapstructure:"password" yaml:"password"`
	DB        int    `mapstructure:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// ExportConfig names export artifacts.
type ExportConfig struct {
	ProductName string `mapstructure:"product_name" yaml:"product_name"`
}

// LoggingConfig configures zap and request logging.
type LoggingConfig struct {
	Level                string `mapstructure:"level" yaml:"level"`
	Format               string `mapstructure:"format" yaml:"format"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging" yaml:"enable_request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:              3000,
			BindAddress:       "0.0.0.0",
			EnableCORS:        true,
			AllowOrigins:      "*",
			ReadTimeout:       30,
			WriteTimeout:      30,
			IdleTimeout:       120,
			BodyLimit:         "1M",
			EnableCompression: true,
			CompressionLevel:  5,
			Development:       false,
		},
		Backend: BackendConfig{
			APIURL:         DefaultAPIURL,
			TimeoutSeconds: 10,
			HistoryHours:   client.DefaultHistoryHours,
		},
		Sync: SyncConfig{
			Enabled: true,
		},
		Settings: SettingsConfig{
			Backend:       "file",
			DataDirectory: "./data",
			RecordName:    "coldchain-settings",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			DB:        0,
			KeyPrefix: "coldchain:",
		},
		Export: ExportConfig{
			ProductName: "coldchain",
		},
		Logging: LoggingConfig{
			Level:                "info",
			Format:               "json",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file, environment, and an optional .env file.
// A missing config file is created with defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := DefaultConfig().Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &AppConfig{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file.
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.bind_address", d.Server.BindAddress)
	v.SetDefault("server.enable_cors", d.Server.EnableCORS)
	v.SetDefault("server.allow_origins", d.Server.AllowOrigins)
	v.SetDefault("server.read_timeout_seconds", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout_seconds", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout_seconds", d.Server.IdleTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.enable_compression", d.Server.EnableCompression)
	v.SetDefault("server.compression_level", d.Server.CompressionLevel)
	v.SetDefault("server.development", d.Server.Development)

	v.SetDefault("backend.api_url", d.Backend.APIURL)
	v.SetDefault("backend.timeout_seconds", d.Backend.TimeoutSeconds)
	v.SetDefault("backend.history_hours", d.Backend.HistoryHours)

	v.SetDefault("sync.enabled", d.Sync.Enabled)

	v.SetDefault("settings.backend", d.Settings.Backend)
	v.SetDefault("settings.data_directory", d.Settings.DataDirectory)
	v.SetDefault("settings.record_name", d.Settings.RecordName)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("export.product_name", d.Export.ProductName)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.enable_request_logging", d.Logging.EnableRequestLogging)
}

// Save writes the configuration as YAML.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Cold-chain dashboard configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides honours the plain variable names used by existing deployments.
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if apiURL := os.Getenv("API_URL"); apiURL != "" {
		c.Backend.APIURL = apiURL
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Settings.DataDirectory = dataDir
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Settings.DataDirectory) {
		c.Settings.DataDirectory = filepath.Join(configDir, c.Settings.DataDirectory)
	}
}

// Validate checks values that would otherwise fail late.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Backend.APIURL == "" {
		return errors.New("backend.api_url is required")
	}
	if c.Backend.HistoryHours < client.MinHistoryHours || c.Backend.HistoryHours > client.MaxHistoryHours {
		return fmt.Errorf("invalid backend.history_hours: %d (want %d..%d)",
			c.Backend.HistoryHours, client.MinHistoryHours, client.MaxHistoryHours)
	}
	switch c.Settings.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("invalid settings.backend %q (want file or redis)", c.Settings.Backend)
	}
	if c.Settings.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when settings.backend is redis")
	}
	if c.Export.ProductName == "" {
		return errors.New("export.product_name is required")
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Settings.DataDirectory
}

// BackendTimeout returns the per-request timeout for the state engine.
func (c *AppConfig) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	if c.Settings.Backend != "file" {
		return nil
	}
	if err := os.MkdirAll(c.Settings.DataDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.Settings.DataDirectory, err)
	}
	return nil
}
