// Package syncer keeps the dashboard's SyncState current by polling the backend.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coldchain-twin/dashboard/internal/logger"
	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrAlreadyRunning is returned by Start on a running engine.
	ErrAlreadyRunning = errors.New("sync engine already running")
	// ErrEngineStopped is returned once Stop has been called.
	ErrEngineStopped = errors.New("sync engine stopped")
	// ErrNotRunning is returned by Refresh before Start.
	ErrNotRunning = errors.New("sync engine not running")
	// ErrInvalidInterval is returned for non-positive refresh intervals.
	ErrInvalidInterval = errors.New("refresh interval must be positive")
)

// Source is the set of backend reads joined by every cycle.
type Source interface {
	FetchStats(ctx context.Context) (*models.Stats, error)
	FetchAssets(ctx context.Context) ([]models.Asset, error)
	FetchActiveAlerts(ctx context.Context) ([]models.Alert, error)
}

// Engine runs sync cycles on a ticker and owns the single SyncState cell.
//
// Each cycle fetches stats, assets, and active alerts concurrently. The cell is
// only ever replaced as a whole: a successful cycle installs a new Snapshot and
// clears the error, a failed cycle keeps the previous Snapshot and sets the error.
// Results older than the last applied cycle, and any result arriving after Stop,
// are dropped.
type Engine struct {
	source Source
	logger *zap.Logger
	now    func() time.Time

	mu          sync.RWMutex
	state       models.SyncState
	interval    time.Duration
	running     bool
	stopped     bool
	started     uint64
	applied     uint64
	subscribers map[string]chan models.SyncState
	cancel      context.CancelFunc
	loopDone    chan struct{}

	kick  chan struct{}
	reset chan struct{}

	// cycles counts spawned cycles; Stop does not wait for them, Wait does.
	cycles sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithInterval sets the initial refresh period.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.OrNop(l)
	}
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an idle engine. Nothing is fetched until Start or RunCycle.
func New(source Source, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		logger:      zap.NewNop(),
		now:         time.Now,
		state:       models.NewSyncState(),
		interval:    models.DefaultSettings().RefreshInterval(),
		subscribers: make(map[string]chan models.SyncState),
		kick:        make(chan struct{}, 1),
		reset:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start attaches the engine: the first cycle runs immediately, then one per interval.
// Cancelling ctx has the same effect as Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrEngineStopped
	}
	if e.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.loopDone = make(chan struct{})

	go e.loop(runCtx, e.interval)
	return nil
}

// Stop detaches the engine. The timer stops, in-flight fetches are cancelled,
// and any result that still arrives is discarded. Stop is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.detachLocked()
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel, done := e.cancel, e.loopDone
	e.mu.Unlock()

	cancel()
	<-done
}

// Wait blocks until every cycle spawned by the loop has returned.
// After Stop, in-flight fetches are cancelled, so Wait returns once they observe it.
func (e *Engine) Wait() {
	e.cycles.Wait()
}

// Refresh requests an extra cycle. Requests made while one is already pending coalesce.
func (e *Engine) Refresh() error {
	e.mu.RLock()
	running, stopped := e.running, e.stopped
	e.mu.RUnlock()

	if stopped {
		return ErrEngineStopped
	}
	if !running {
		return ErrNotRunning
	}

	select {
	case e.kick <- struct{}{}:
	default:
	}
	return nil
}

// SetInterval changes the refresh period. A running engine restarts its timer
// with the new period and runs a cycle right away; fetches already in flight
// are left to finish.
func (e *Engine) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}

	e.mu.Lock()
	changed := e.interval != d
	e.interval = d
	running := e.running
	e.mu.Unlock()

	if running && changed {
		select {
		case e.reset <- struct{}{}:
		default:
		}
	}
	return nil
}

// Interval returns the current refresh period.
func (e *Engine) Interval() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.interval
}

// Running reports whether the engine is attached.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// State returns a copy of the current state. The Snapshot it points to is never mutated.
func (e *Engine) State() models.SyncState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// RunCycle runs one cycle synchronously and returns its fetch error, if any.
func (e *Engine) RunCycle(ctx context.Context) error {
	return e.runCycle(ctx)
}

func (e *Engine) loop(ctx context.Context, interval time.Duration) {
	defer close(e.loopDone)
	defer func() {
		e.mu.Lock()
		e.detachLocked()
		e.mu.Unlock()
		e.logger.Info("sync engine stopped")
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("sync engine started", zap.Duration("interval", interval))
	e.spawn(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.spawn(ctx)
		case <-e.kick:
			e.spawn(ctx)
		case <-e.reset:
			d := e.Interval()
			ticker.Reset(d)
			e.logger.Info("refresh interval changed", zap.Duration("interval", d))
			e.spawn(ctx)
		}
	}
}

// detachLocked marks the engine stopped and closes every subscription. Callers hold e.mu.
func (e *Engine) detachLocked() {
	e.running = false
	e.stopped = true
	for id, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, id)
	}
}

func (e *Engine) spawn(ctx context.Context) {
	e.cycles.Add(1)
	go func() {
		defer e.cycles.Done()
		e.runCycle(ctx)
	}()
}

func (e *Engine) runCycle(ctx context.Context) (err error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrEngineStopped
	}
	e.started++
	seq := e.started
	e.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync cycle panicked: %v", r)
			e.logger.Error("sync cycle panicked", zap.Uint64("cycle", seq), zap.Any("panic", r))
			e.apply(seq, nil, err)
		}
	}()

	snap, err := e.fetch(ctx)
	applied := e.apply(seq, snap, err)

	fields := []zap.Field{
		zap.Uint64("cycle", seq),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("applied", applied),
	}
	if err != nil {
		e.logger.Warn("sync cycle failed", append(fields, zap.Error(err))...)
		return err
	}
	e.logger.Debug("sync cycle complete", append(fields,
		zap.Int("assets", len(snap.Assets)),
		zap.Int("alerts", len(snap.Alerts)),
	)...)
	return nil
}

// fetch joins the three reads. The first failure cancels the others and fails the cycle.
func (e *Engine) fetch(ctx context.Context) (*models.Snapshot, error) {
	var (
		stats  *models.Stats
		assets []models.Asset
		alerts []models.Alert
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard("fetch stats", func() error {
		s, err := e.source.FetchStats(gctx)
		if err != nil {
			return err
		}
		if s == nil {
			return errors.New("fetch stats: empty response")
		}
		stats = s
		return nil
	}))
	g.Go(guard("fetch assets", func() error {
		a, err := e.source.FetchAssets(gctx)
		if err != nil {
			return err
		}
		assets = a
		return nil
	}))
	g.Go(guard("fetch alerts", func() error {
		a, err := e.source.FetchActiveAlerts(gctx)
		if err != nil {
			return err
		}
		alerts = a
		return nil
	}))

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if assets == nil {
		assets = []models.Asset{}
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return &models.Snapshot{
		Stats:  *stats,
		Assets: assets,
		Alerts: alerts,
	}, nil
}

// guard turns a panic in fn into an error; errgroup workers do not recover.
func guard(op string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", op, r)
			}
		}()
		return fn()
	}
}

// apply installs the outcome of cycle seq and reports whether it was kept.
func (e *Engine) apply(seq uint64, snap *models.Snapshot, fetchErr error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped || seq < e.applied {
		return false
	}
	e.applied = seq

	next := models.SyncState{
		Snapshot: e.state.Snapshot,
		Loading:  false,
	}
	if fetchErr != nil {
		msg := fetchErr.Error()
		next.Error = &msg
	} else {
		snap.FetchedAt = e.now()
		snap.Cycle = seq
		next.Snapshot = snap
	}

	e.state = next
	e.publishLocked(next)
	return true
}

// Subscribe registers an observer. The channel immediately holds the current state
// and afterwards always holds the most recent one; slow readers skip intermediate states.
// The channel is closed by cancel or when the engine stops.
func (e *Engine) Subscribe() (id string, updates <-chan models.SyncState, cancel func()) {
	ch := make(chan models.SyncState, 1)
	id = uuid.New().String()

	e.mu.Lock()
	ch <- e.state
	if e.stopped {
		close(ch)
		e.mu.Unlock()
		return id, ch, func() {}
	}
	e.subscribers[id] = ch
	e.mu.Unlock()

	cancel = func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subscribers[id]; ok {
			close(sub)
			delete(e.subscribers, id)
		}
	}
	return id, ch, cancel
}

// SubscriberCount returns the number of active observers.
func (e *Engine) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers)
}

func (e *Engine) publishLocked(state models.SyncState) {
	for _, ch := range e.subscribers {
		select {
		case ch <- state:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}
