// mock_source.go - Scriptable backend source for sync engine tests
package testutil

import (
	"context"
	"sync"

	"github.com/coldchain-twin/dashboard/internal/models"
)

// Fetch operation names used for call accounting.
const (
	OpStats  = "stats"
	OpAssets = "assets"
	OpAlerts = "alerts"
)

// MockSource serves canned stats, assets, and alerts, with per-operation failures and gates.
type MockSource struct {
	mu     sync.Mutex
	stats  models.Stats
	assets []models.Asset
	alerts []models.Alert
	errs   map[string]error
	gates  map[string][]chan struct{}
	calls  map[string]int
}

// NewMockSource creates a source serving the given data.
func NewMockSource(stats models.Stats, assets []models.Asset, alerts []models.Alert) *MockSource {
	return &MockSource{
		stats:  stats,
		assets: assets,
		alerts: alerts,
		errs:   make(map[string]error),
		gates:  make(map[string][]chan struct{}),
		calls:  make(map[string]int),
	}
}

// SetData replaces the data served by subsequent fetches.
func (m *MockSource) SetData(stats models.Stats, assets []models.Asset, alerts []models.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats, m.assets, m.alerts = stats, assets, alerts
}

// Fail makes op return err until cleared with a nil err.
func (m *MockSource) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// Hold blocks the next call to op until the returned release func is called.
// The data returned by the held call is captured when the call starts.
func (m *MockSource) Hold(op string) (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gates[op] = append(m.gates[op], gate)
	m.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Calls returns how many times op was invoked.
func (m *MockSource) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockSource) FetchStats(ctx context.Context) (*models.Stats, error) {
	stats, err := m.begin(ctx, OpStats)
	if err != nil {
		return nil, err
	}
	return &stats.stats, nil
}

func (m *MockSource) FetchAssets(ctx context.Context) ([]models.Asset, error) {
	data, err := m.begin(ctx, OpAssets)
	if err != nil {
		return nil, err
	}
	return data.assets, nil
}

func (m *MockSource) FetchActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	data, err := m.begin(ctx, OpAlerts)
	if err != nil {
		return nil, err
	}
	return data.alerts, nil
}

type sourceData struct {
	stats  models.Stats
	assets []models.Asset
	alerts []models.Alert
}

func (m *MockSource) begin(ctx context.Context, op string) (sourceData, error) {
	m.mu.Lock()
	m.calls[op]++
	data := sourceData{
		stats:  m.stats,
		assets: append([]models.Asset(nil), m.assets...),
		alerts: append([]models.Alert(nil), m.alerts...),
	}
	err := m.errs[op]
	var gate chan struct{}
	if queue := m.gates[op]; len(queue) > 0 {
		gate, m.gates[op] = queue[0], queue[1:]
	}
	m.mu.Unlock()

	if gate != nil {
		// Held calls complete even after cancellation, like a response already on the wire.
		<-gate
	} else if ctxErr := ctx.Err(); ctxErr != nil {
		return sourceData{}, ctxErr
	}
	if err != nil {
		return sourceData{}, err
	}
	return data, nil
}
