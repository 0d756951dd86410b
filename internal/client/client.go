// Package client provides typed access to the cold-chain state engine API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coldchain-twin/dashboard/internal/logger"
	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// History window bounds accepted by the backend.
const (
	MinHistoryHours     = 1
	MaxHistoryHours     = 168
	DefaultHistoryHours = 6
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// Client performs one HTTP call per fetch. It keeps no state between calls and never retries.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger.OrNop(l)
	}
}

// WithHTTPClient swaps the underlying transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc).
			SetBaseURL(c.http.BaseURL).
			SetRetryCount(0).
			SetHeader("Accept", "application/json")
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Accept", "application/json"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root this client talks to.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// FetchStats returns the fleet summary.
func (c *Client) FetchStats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := c.getJSON(ctx, "fetch stats", c.http.R(), "/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// FetchAssets returns the current state of every asset.
func (c *Client) FetchAssets(ctx context.Context) ([]models.Asset, error) {
	var assets []models.Asset
	if err := c.getJSON(ctx, "fetch assets", c.http.R(), "/assets", &assets); err != nil {
		return nil, err
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	return assets, nil
}

// FetchAsset returns a single asset by id.
func (c *Client) FetchAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	var asset models.Asset
	req := c.http.R().SetPathParam("id", assetID)
	if err := c.getJSON(ctx, "fetch asset", req, "/assets/{id}", &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// FetchActiveAlerts returns the alerts currently raised.
func (c *Client) FetchActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	var envelope models.ActiveAlerts
	if err := c.getJSON(ctx, "fetch active alerts", c.http.R(), "/alerts/active", &envelope); err != nil {
		return nil, err
	}
	if envelope.Alerts == nil {
		return []models.Alert{}, nil
	}
	return envelope.Alerts, nil
}

// FetchAssetHistory returns the telemetry of one asset over the last hours.
func (c *Client) FetchAssetHistory(ctx context.Context, assetID string, hours int) (*models.AssetHistory, error) {
	if hours < MinHistoryHours || hours > MaxHistoryHours {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidHours, hours, MinHistoryHours, MaxHistoryHours)
	}

	var history models.AssetHistory
	req := c.http.R().
		SetPathParam("id", assetID).
		SetQueryParam("hours", fmt.Sprintf("%d", hours))
	if err := c.getJSON(ctx, "fetch asset history", req, "/assets/{id}/history", &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// FetchHealth returns the backend's health report.
func (c *Client) FetchHealth(ctx context.Context) (*models.HealthStatus, error) {
	var health models.HealthStatus
	if err := c.getJSON(ctx, "fetch health", c.http.R(), "/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Forwarded is a raw upstream response relayed by the proxy.
type Forwarded struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Forward issues a GET for path with the raw query string and returns the upstream response untouched.
// Only network failures are reported as errors; upstream status codes are relayed.
func (c *Client) Forward(ctx context.Context, path, rawQuery string) (*Forwarded, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req := c.http.R().SetContext(ctx)
	if rawQuery != "" {
		req.SetQueryString(rawQuery)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, &TransportError{Op: "forward " + path, Kind: KindNetwork, Err: err}
	}

	return &Forwarded{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, op string, req *resty.Request, path string, out any) error {
	start := time.Now()
	resp, err := req.SetContext(ctx).Get(path)
	if err != nil {
		c.logger.Debug("backend request failed", zap.String("op", op), zap.Error(err))
		return &TransportError{Op: op, Kind: KindNetwork, Err: err}
	}

	c.logger.Debug("backend request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return &TransportError{Op: op, Kind: KindStatus, StatusCode: resp.StatusCode()}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &TransportError{Op: op, Kind: KindDecode, StatusCode: resp.StatusCode(), Err: err}
	}
	return nil
}
