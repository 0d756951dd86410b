package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, DefaultAPIURL, cfg.Backend.APIURL)
	assert.Equal(t, "file", cfg.Settings.Backend)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.GetDataDir())
	assert.Equal(t, "coldchain", cfg.Export.ProductName)
}

func TestLoadConfig_FileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8085
backend:
  api_url: http://localhost:8000
  timeout_seconds: 3
  history_hours: 24
settings:
  backend: redis
redis:
  addr: redis:6379
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.BindAddress)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.APIURL)
	assert.Equal(t, 24, cfg.Backend.HistoryHours)
	assert.Equal(t, "redis", cfg.Settings.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "0.0.0.0:8085", cfg.GetServerAddr())
	assert.Equal(t, int64(3), int64(cfg.BackendTimeout().Seconds()))
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")

	t.Setenv("PORT", "9090")
	t.Setenv("API_URL", "http://state-engine:8000")
	t.Setenv("COLDCHAIN_LOGGING_LEVEL", "debug")
	t.Setenv("COLDCHAIN_EXPORT_PRODUCT_NAME", "frostline")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://state-engine:8000", cfg.Backend.APIURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "frostline", cfg.Export.ProductName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{"defaults", func(c *AppConfig) {}, false},
		{"bad port", func(c *AppConfig) { c.Server.Port = 0 }, true},
		{"missing api url", func(c *AppConfig) { c.Backend.APIURL = "" }, true},
		{"history hours too small", func(c *AppConfig) { c.Backend.HistoryHours = 0 }, true},
		{"history hours too large", func(c *AppConfig) { c.Backend.HistoryHours = 169 }, true},
		{"history hours at limit", func(c *AppConfig) { c.Backend.HistoryHours = 168 }, false},
		{"unknown settings backend", func(c *AppConfig) { c.Settings.Backend = "s3" }, true},
		{"redis without addr", func(c *AppConfig) { c.Settings.Backend = "redis"; c.Redis.Addr = "" }, true},
		{"missing product name", func(c *AppConfig) { c.Export.ProductName = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.DataDirectory = filepath.Join(t.TempDir(), "nested", "data")

	require.NoError(t, cfg.EnsureDirectories())
	_, err := os.Stat(cfg.Settings.DataDirectory)
	assert.NoError(t, err)
}
