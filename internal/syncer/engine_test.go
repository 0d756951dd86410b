package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/coldchain-twin/dashboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newTestSource() *testutil.MockSource {
	fleet := testutil.Fleet()
	alerts := []models.Alert{{AssetID: "TRUCK-002", State: models.AssetStateCritical, Reasons: []string{"hot"}}}
	return testutil.NewMockSource(testutil.StatsFor(fleet, len(alerts)), fleet, alerts)
}

func TestEngine_InitialState(t *testing.T) {
	e := New(newTestSource())

	state := e.State()
	assert.True(t, state.Loading)
	assert.Nil(t, state.Snapshot)
	assert.Nil(t, state.Error)
	assert.Equal(t, 5*time.Second, e.Interval())
}

func TestEngine_FirstCycleRunsImmediately(t *testing.T) {
	src := newTestSource()
	e := New(src, WithInterval(time.Hour))
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	require.Eventually(t, func() bool { return e.State().Snapshot != nil }, waitFor, tick)

	state := e.State()
	assert.False(t, state.Loading)
	assert.Nil(t, state.Error)
	assert.Len(t, state.Snapshot.Assets, 4)
	assert.Len(t, state.Snapshot.Alerts, 1)
	assert.Equal(t, 4, state.Snapshot.Stats.TotalAssets)
	assert.Equal(t, uint64(1), state.Snapshot.Cycle)
	assert.False(t, state.Snapshot.FetchedAt.IsZero())
}

func TestEngine_SuccessReplacesSnapshotAndClearsError(t *testing.T) {
	ctx := context.Background()
	src := newTestSource()
	e := New(src)

	src.Fail(testutil.OpStats, errors.New("boom"))
	require.Error(t, e.RunCycle(ctx))
	require.True(t, e.State().HasError())

	src.Fail(testutil.OpStats, nil)
	require.NoError(t, e.RunCycle(ctx))

	state := e.State()
	assert.Nil(t, state.Error)
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, uint64(2), state.Snapshot.Cycle)
}

func TestEngine_PartialFailureKeepsPreviousSnapshot(t *testing.T) {
	ops := []string{testutil.OpStats, testutil.OpAssets, testutil.OpAlerts}

	for _, op := range ops {
		t.Run(op, func(t *testing.T) {
			ctx := context.Background()
			src := newTestSource()
			e := New(src)

			require.NoError(t, e.RunCycle(ctx))
			before := e.State().Snapshot
			require.NotNil(t, before)

			src.SetData(models.Stats{TotalAssets: 99}, nil, nil)
			src.Fail(op, errors.New(op+" unavailable"))
			require.Error(t, e.RunCycle(ctx))

			state := e.State()
			assert.Same(t, before, state.Snapshot)
			assert.Equal(t, 4, state.Snapshot.Stats.TotalAssets)
			require.NotNil(t, state.Error)
			assert.Contains(t, *state.Error, op+" unavailable")
			assert.False(t, state.Loading)
		})
	}
}

func TestEngine_RecoversOnNextCycle(t *testing.T) {
	ctx := context.Background()
	src := newTestSource()
	e := New(src)

	require.NoError(t, e.RunCycle(ctx))
	first := e.State().Snapshot

	src.Fail(testutil.OpAlerts, errors.New("alerts down"))
	require.Error(t, e.RunCycle(ctx))
	assert.Same(t, first, e.State().Snapshot)

	src.Fail(testutil.OpAlerts, nil)
	require.NoError(t, e.RunCycle(ctx))

	state := e.State()
	assert.Nil(t, state.Error)
	assert.NotSame(t, first, state.Snapshot)
}

func TestEngine_LoadingFalseAfterFirstFailure(t *testing.T) {
	ctx := context.Background()
	src := newTestSource()
	src.Fail(testutil.OpAssets, errors.New("no route to host"))
	e := New(src)

	require.Error(t, e.RunCycle(ctx))
	state := e.State()
	assert.False(t, state.Loading)
	assert.Nil(t, state.Snapshot)
	assert.Equal(t, "no route to host", state.ErrorMessage())

	src.Fail(testutil.OpAssets, nil)
	require.NoError(t, e.RunCycle(ctx))
	assert.False(t, e.State().Loading)

	src.Fail(testutil.OpStats, errors.New("again"))
	require.Error(t, e.RunCycle(ctx))
	assert.False(t, e.State().Loading)
}

func TestEngine_StaleResultDiscarded(t *testing.T) {
	ctx := context.Background()
	src := newTestSource()
	e := New(src)

	release := src.Hold(testutil.OpAssets)
	slow := make(chan error, 1)
	go func() { slow <- e.RunCycle(ctx) }()
	require.Eventually(t, func() bool { return src.Calls(testutil.OpAssets) == 1 }, waitFor, tick)

	newer := []models.Asset{testutil.Truck("TRUCK-009", models.AssetStateNormal, -20)}
	src.SetData(testutil.StatsFor(newer, 0), newer, nil)
	require.NoError(t, e.RunCycle(ctx))

	release()
	require.NoError(t, <-slow)

	state := e.State()
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, uint64(2), state.Snapshot.Cycle)
	require.Len(t, state.Snapshot.Assets, 1)
	assert.Equal(t, "TRUCK-009", state.Snapshot.Assets[0].AssetID)
	assert.Equal(t, 1, state.Snapshot.Stats.TotalAssets)
}

func TestEngine_StopDiscardsLateResults(t *testing.T) {
	src := newTestSource()
	e := New(src, WithInterval(time.Hour))
	require.NoError(t, e.Start(context.Background()))
	require.Eventually(t, func() bool { return e.State().Snapshot != nil }, waitFor, tick)
	before := e.State()

	release := src.Hold(testutil.OpAssets)
	require.NoError(t, e.Refresh())
	require.Eventually(t, func() bool { return src.Calls(testutil.OpAssets) == 2 }, waitFor, tick)

	src.SetData(models.Stats{TotalAssets: 42}, []models.Asset{}, []models.Alert{})
	e.Stop()
	release()
	e.Wait()

	after := e.State()
	assert.Same(t, before.Snapshot, after.Snapshot)
	assert.Equal(t, before.Error, after.Error)
	assert.False(t, e.Running())

	assert.ErrorIs(t, e.Start(context.Background()), ErrEngineStopped)
	assert.ErrorIs(t, e.Refresh(), ErrEngineStopped)
	assert.ErrorIs(t, e.RunCycle(context.Background()), ErrEngineStopped)
}

func TestEngine_ParentContextCancelDetaches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := New(newTestSource(), WithInterval(time.Hour))
	require.NoError(t, e.Start(ctx))
	require.Eventually(t, func() bool { return e.State().Snapshot != nil }, waitFor, tick)

	cancel()
	require.Eventually(t, func() bool { return !e.Running() }, waitFor, tick)
	assert.ErrorIs(t, e.Refresh(), ErrEngineStopped)
	e.Stop()
}

func TestEngine_StartTwice(t *testing.T) {
	e := New(newTestSource(), WithInterval(time.Hour))
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	assert.ErrorIs(t, e.Start(context.Background()), ErrAlreadyRunning)
}

func TestEngine_PeriodicCycles(t *testing.T) {
	src := newTestSource()
	e := New(src, WithInterval(20*time.Millisecond))
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	require.Eventually(t, func() bool { return src.Calls(testutil.OpStats) >= 3 }, waitFor, tick)
	assert.False(t, e.State().Loading)
}

func TestEngine_SetInterval(t *testing.T) {
	src := newTestSource()
	e := New(src, WithInterval(time.Hour))

	assert.ErrorIs(t, e.SetInterval(0), ErrInvalidInterval)
	assert.ErrorIs(t, e.SetInterval(-time.Second), ErrInvalidInterval)

	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()
	require.Eventually(t, func() bool { return src.Calls(testutil.OpStats) == 1 }, waitFor, tick)

	require.NoError(t, e.SetInterval(20*time.Millisecond))
	assert.Equal(t, 20*time.Millisecond, e.Interval())
	require.Eventually(t, func() bool { return src.Calls(testutil.OpStats) >= 4 }, waitFor, tick)
}

func TestEngine_Refresh(t *testing.T) {
	src := newTestSource()
	e := New(src, WithInterval(time.Hour))

	assert.ErrorIs(t, e.Refresh(), ErrNotRunning)

	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()
	require.Eventually(t, func() bool { return e.State().Snapshot != nil }, waitFor, tick)

	require.NoError(t, e.Refresh())
	require.Eventually(t, func() bool {
		s := e.State()
		return s.Snapshot != nil && s.Snapshot.Cycle == 2
	}, waitFor, tick)
	assert.False(t, e.State().Loading)
}

func TestEngine_Subscribe(t *testing.T) {
	ctx := context.Background()
	e := New(newTestSource())

	_, updates, cancel := e.Subscribe()
	assert.Equal(t, 1, e.SubscriberCount())

	initial := <-updates
	assert.True(t, initial.Loading)

	require.NoError(t, e.RunCycle(ctx))
	next := <-updates
	assert.False(t, next.Loading)
	require.NotNil(t, next.Snapshot)

	require.NoError(t, e.RunCycle(ctx))
	require.NoError(t, e.RunCycle(ctx))
	latest := <-updates
	assert.Equal(t, uint64(3), latest.Snapshot.Cycle)

	cancel()
	_, open := <-updates
	assert.False(t, open)
	assert.Equal(t, 0, e.SubscriberCount())
}

func TestEngine_StopClosesSubscriptions(t *testing.T) {
	e := New(newTestSource(), WithInterval(time.Hour))
	require.NoError(t, e.Start(context.Background()))

	_, updates, cancel := e.Subscribe()
	defer cancel()
	e.Stop()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-updates:
			return !open
		default:
			return false
		}
	}, waitFor, tick)

	_, late, _ := e.Subscribe()
	<-late
	_, open := <-late
	assert.False(t, open)
}

func TestEngine_WithClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e := New(newTestSource(), WithClock(func() time.Time { return fixed }))

	require.NoError(t, e.RunCycle(context.Background()))
	assert.Equal(t, fixed, e.State().Snapshot.FetchedAt)
}

type panickingSource struct {
	*testutil.MockSource
	op string
}

func (p panickingSource) FetchStats(ctx context.Context) (*models.Stats, error) {
	if p.op == testutil.OpStats {
		panic("stats exploded")
	}
	return p.MockSource.FetchStats(ctx)
}

func (p panickingSource) FetchAssets(ctx context.Context) ([]models.Asset, error) {
	if p.op == testutil.OpAssets {
		panic("assets exploded")
	}
	return p.MockSource.FetchAssets(ctx)
}

func (p panickingSource) FetchActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	if p.op == testutil.OpAlerts {
		panic("alerts exploded")
	}
	return p.MockSource.FetchActiveAlerts(ctx)
}

func TestEngine_PanickingFetchFailsCycle(t *testing.T) {
	for _, op := range []string{testutil.OpStats, testutil.OpAssets, testutil.OpAlerts} {
		t.Run(op, func(t *testing.T) {
			src := newTestSource()
			e := New(src)
			require.NoError(t, e.RunCycle(context.Background()))
			before := e.State().Snapshot

			e.source = panickingSource{MockSource: src, op: op}
			err := e.RunCycle(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "panicked")
			assert.Contains(t, err.Error(), "exploded")

			state := e.State()
			require.True(t, state.HasError())
			assert.Contains(t, state.ErrorMessage(), "exploded")
			assert.Same(t, before, state.Snapshot)
		})
	}
}

func TestEngine_WaitAfterStop(t *testing.T) {
	src := newTestSource()
	e := New(src, WithInterval(time.Hour))
	require.NoError(t, e.Start(context.Background()))
	require.Eventually(t, func() bool { return src.Calls(testutil.OpAssets) >= 1 }, waitFor, tick)

	e.Stop()
	done := make(chan struct{})
	go func() {
		e.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Wait did not return after Stop")
	}
}
