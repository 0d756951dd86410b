package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coldchain-twin/dashboard/internal/client"
	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/coldchain-twin/dashboard/internal/settings"
	"github.com/coldchain-twin/dashboard/internal/syncer"
	"github.com/coldchain-twin/dashboard/internal/testutil"
	"github.com/coldchain-twin/dashboard/internal/views"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	e        *echo.Echo
	engine   *syncer.Engine
	source   *testutil.MockSource
	records  *testutil.MockRecordStore
	settings *settings.Store
	upstream *httptest.Server
}

// newTestEnv wires the full route table over a scripted source and a fake backend.
func newTestEnv(t *testing.T, backend http.Handler) *testEnv {
	t.Helper()

	fleet := testutil.Fleet()
	alerts := []models.Alert{{
		AssetID:   "TRUCK-002",
		State:     models.AssetStateCritical,
		Reasons:   []string{"temperature above -5°C"},
		CreatedAt: "2024-05-01T09:58:00",
	}}
	src := testutil.NewMockSource(testutil.StatsFor(fleet, len(alerts)), fleet, alerts)
	engine := syncer.New(src, syncer.WithClock(func() time.Time { return testNow }))

	records := testutil.NewMockRecordStore()
	store := settings.NewStore(records, "", nil)

	if backend == nil {
		backend = http.NotFoundHandler()
	}
	upstream := httptest.NewServer(backend)
	t.Cleanup(upstream.Close)

	e := echo.New()
	SetupMiddleware(e, true)
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Engine:      engine,
		Settings:    store,
		Backend:     client.New(upstream.URL, time.Second),
		ProductName: "coldchain",
		Version:     "test",
		Now:         func() time.Time { return testNow },
	}))

	return &testEnv{
		e:        e,
		engine:   engine,
		source:   src,
		records:  records,
		settings: store,
		upstream: upstream,
	}
}

func (env *testEnv) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, env.engine.RunCycle(context.Background()))
}

func (env *testEnv) do(method, target string, body []byte) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandleGetState(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("before first cycle", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/dashboard/state", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"snapshot":null,"loading":true,"error":null}`, rec.Body.String())
	})

	t.Run("after successful cycle", func(t *testing.T) {
		env.sync(t)
		rec := env.do(http.MethodGet, "/api/dashboard/state", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		state := decode[models.SyncState](t, rec)
		assert.False(t, state.Loading)
		assert.Nil(t, state.Error)
		require.NotNil(t, state.Snapshot)
		assert.Len(t, state.Snapshot.Assets, 4)
		assert.Len(t, state.Snapshot.Alerts, 1)
		assert.Equal(t, 4, state.Snapshot.Stats.TotalAssets)
		assert.True(t, testNow.Equal(state.Snapshot.FetchedAt))
	})

	t.Run("failed cycle keeps snapshot", func(t *testing.T) {
		env.source.Fail(testutil.OpAssets, errors.New("backend unreachable"))
		defer env.source.Fail(testutil.OpAssets, nil)

		assert.Error(t, env.engine.RunCycle(context.Background()))

		state := decode[models.SyncState](t, env.do(http.MethodGet, "/api/dashboard/state", nil))
		require.NotNil(t, state.Error)
		assert.Contains(t, *state.Error, "backend unreachable")
		require.NotNil(t, state.Snapshot)
		assert.Len(t, state.Snapshot.Assets, 4)
	})
}

func TestHandleGetStateMsgpack(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sync(t)

	rec := env.do(http.MethodGet, "/api/dashboard/state/msgpack", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgpackContentType, rec.Header().Get(echo.HeaderContentType))

	dec := msgpack.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
	dec.SetCustomStructTag("json")
	var state models.SyncState
	require.NoError(t, dec.Decode(&state))

	assert.False(t, state.Loading)
	require.NotNil(t, state.Snapshot)
	require.Len(t, state.Snapshot.Assets, 4)
	assert.Equal(t, "TRUCK-001", state.Snapshot.Assets[0].AssetID)
	assert.True(t, testNow.Equal(state.Snapshot.FetchedAt))
}

func TestHandleRefresh(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/dashboard/refresh", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, env.engine.Start(context.Background()))
	defer env.engine.Stop()

	rec = env.do(http.MethodPost, "/api/dashboard/refresh", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Eventually(t, func() bool {
		return env.source.Calls(testutil.OpAssets) >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandleListAssets(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("loading", func(t *testing.T) {
		resp := decode[assetListResponse](t, env.do(http.MethodGet, "/api/dashboard/assets", nil))
		assert.True(t, resp.Loading)
		assert.Empty(t, resp.Assets)
		assert.Equal(t, 0, resp.Total)
		assert.Nil(t, resp.FetchedAt)
	})

	env.sync(t)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
		wantTmp string
	}{
		{"no filter", "", []string{"TRUCK-001", "TRUCK-002", "ROOM-001", "ROOM-002"}, "-18.0°C"},
		{"state is case-insensitive", "?state=critical", []string{"TRUCK-002"}, "-2.0°C"},
		{"type", "?type=cold_room", []string{"ROOM-001", "ROOM-002"}, "-16.0°C"},
		{"search", "?q=truck", []string{"TRUCK-001", "TRUCK-002"}, "-18.0°C"},
		{"combined", "?type=refrigerated_truck&state=NORMAL&q=001", []string{"TRUCK-001"}, "-18.0°C"},
		{"fahrenheit", "?type=cold_room&unit=fahrenheit", []string{"ROOM-001", "ROOM-002"}, "3.2°F"},
		{"no match", "?q=nothing", []string{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/dashboard/assets"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			resp := decode[assetListResponse](t, rec)
			ids := make([]string, 0, len(resp.Assets))
			for _, a := range resp.Assets {
				ids = append(ids, a.AssetID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, len(tt.wantIDs), resp.Shown)
			assert.Equal(t, 4, resp.Total)
			if tt.wantTmp != "" {
				assert.Equal(t, tt.wantTmp, resp.Assets[0].Temperature)
			}
		})
	}

	t.Run("invalid filters", func(t *testing.T) {
		for _, q := range []string{"?state=HOT", "?type=boat", "?unit=kelvin"} {
			rec := env.do(http.MethodGet, "/api/dashboard/assets"+q, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
			assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
		}
	})
}

func TestHandleGetAsset(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/dashboard/assets/TRUCK-001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.sync(t)

	rec = env.do(http.MethodGet, "/api/dashboard/assets/TRUCK-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[views.AssetView](t, rec)
	assert.Equal(t, "TRUCK-001", view.AssetID)
	assert.Equal(t, "Truck", view.TypeLabel)
	assert.Equal(t, "Closed", view.Door)
	assert.Equal(t, "Running", view.Compressor)
	assert.Equal(t, "55.0%", view.Humidity)

	rec = env.do(http.MethodGet, "/api/dashboard/assets/TRUCK-404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "TRUCK-404")
}

func TestHandleGetAssetHistory(t *testing.T) {
	var gotHours string
	mux := http.NewServeMux()
	mux.HandleFunc("/assets/TRUCK-001/history", func(w http.ResponseWriter, r *http.Request) {
		gotHours = r.URL.Query().Get("hours")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"asset_id":"TRUCK-001","hours":6,"count":3,"telemetry":[
			{"timestamp":"2024-05-01T10:10:00","temperature_c":-17.5,"door_open":false},
			{"timestamp":"2024-05-01T10:05:00","temperature_c":-18.0,"door_open":true},
			{"timestamp":"2024-05-01T10:00:00","temperature_c":-18.5,"door_open":false}]}`))
	})
	mux.HandleFunc("/assets/GHOST/history", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Asset not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/assets/BROKEN/history", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	env := newTestEnv(t, mux)

	rec := env.do(http.MethodGet, "/api/dashboard/assets/TRUCK-001/history", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "6", gotHours)

	resp := decode[assetHistoryResponse](t, rec)
	assert.Equal(t, 3, resp.Count)
	require.Len(t, resp.Telemetry, 3)
	assert.Equal(t, "2024-05-01T10:00:00", resp.Telemetry[0].Timestamp)
	require.Len(t, resp.Series, 3)
	assert.Equal(t, []string{"10:00", "10:05", "10:10"},
		[]string{resp.Series[0].Label, resp.Series[1].Label, resp.Series[2].Label})

	rec = env.do(http.MethodGet, "/api/dashboard/assets/TRUCK-001/history?hours=24", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "24", gotHours)

	tests := []struct {
		target string
		want   int
	}{
		{"/api/dashboard/assets/TRUCK-001/history?hours=0", http.StatusBadRequest},
		{"/api/dashboard/assets/TRUCK-001/history?hours=169", http.StatusBadRequest},
		{"/api/dashboard/assets/TRUCK-001/history?hours=six", http.StatusBadRequest},
		{"/api/dashboard/assets/GHOST/history", http.StatusNotFound},
		{"/api/dashboard/assets/BROKEN/history", http.StatusBadGateway},
	}
	for _, tt := range tests {
		rec := env.do(http.MethodGet, tt.target, nil)
		assert.Equal(t, tt.want, rec.Code, tt.target)
	}
}

func TestHandleGetAlerts(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := decode[models.ActiveAlerts](t, env.do(http.MethodGet, "/api/dashboard/alerts", nil))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Alerts)

	env.sync(t)

	resp = decode[models.ActiveAlerts](t, env.do(http.MethodGet, "/api/dashboard/alerts", nil))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "TRUCK-002", resp.Alerts[0].AssetID)
}

func TestHandleGetTrucks(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := decode[truckMapResponse](t, env.do(http.MethodGet, "/api/dashboard/trucks", nil))
	assert.Empty(t, resp.Trucks)
	assert.Equal(t, views.DefaultMapCenter, resp.Center)

	env.sync(t)

	resp = decode[truckMapResponse](t, env.do(http.MethodGet, "/api/dashboard/trucks", nil))
	require.Len(t, resp.Trucks, 2)
	assert.Equal(t, 34.1, resp.Center.Latitude)
	assert.Equal(t, -118.3, resp.Center.Longitude)
}

func TestHandleGetAnalytics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sync(t)

	rec := env.do(http.MethodGet, "/api/dashboard/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	a := decode[views.Analytics](t, rec)
	assert.Equal(t, 4, a.Shown)
	assert.Equal(t, 4, a.Total)
	assert.Equal(t, 1, a.ByState[models.AssetStateCritical])
	assert.Equal(t, 2, a.ByType[models.AssetTypeColdRoom])
	assert.Equal(t, 1, a.ActiveAlerts)
	assert.True(t, a.ThresholdsDisplay)
	assert.Equal(t, models.UnitCelsius, a.Unit)

	a = decode[views.Analytics](t, env.do(http.MethodGet, "/api/dashboard/analytics?type=refrigerated_truck&unit=fahrenheit", nil))
	assert.Equal(t, 2, a.Shown)
	assert.Equal(t, 4, a.Total)
	assert.Equal(t, "14.0°F", a.AverageTemperature)
}

func TestHandleGetAssetHistory_ConfiguredDefaultWindow(t *testing.T) {
	var gotHours string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHours = r.URL.Query().Get("hours")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"asset_id":"ROOM-001","hours":24,"count":0,"telemetry":[]}`))
	}))
	defer upstream.Close()

	env := newTestEnv(t, nil)
	h := NewDashboardHandler(env.engine, env.settings, client.New(upstream.URL, time.Second), 24)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/assets/ROOM-001/history", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ROOM-001")

	if assert.NoError(t, h.HandleGetAssetHistory(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "24", gotHours)
	}

	// An explicit hours query still wins.
	req = httptest.NewRequest(http.MethodGet, "/api/dashboard/assets/ROOM-001/history?hours=2", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ROOM-001")

	if assert.NoError(t, h.HandleGetAssetHistory(c)) {
		assert.Equal(t, "2", gotHours)
	}
}
