// Package settings holds the dashboard preference record.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coldchain-twin/dashboard/internal/logger"
	"github.com/coldchain-twin/dashboard/internal/models"
	"github.com/coldchain-twin/dashboard/internal/storage"
	"go.uber.org/zap"
)

// DefaultRecordName is the name the settings record is persisted under.
const DefaultRecordName = "coldchain-settings"

// ErrInvalidSettings is returned by Save when a value is out of range.
var ErrInvalidSettings = errors.New("invalid settings")

// DisplayOnlyNotice is shown next to threshold values.
const DisplayOnlyNotice = "Thresholds are reference values for display only. " +
	"Asset state is computed by the backend and is not affected by these settings."

// Store loads settings once and persists them only on explicit Save.
type Store struct {
	records storage.RecordStore
	name    string
	logger  *zap.Logger

	mu      sync.RWMutex
	current models.Settings
	loaded  bool
}

// NewStore creates a settings store backed by records.
func NewStore(records storage.RecordStore, name string, l *zap.Logger) *Store {
	if name == "" {
		name = DefaultRecordName
	}
	return &Store{
		records: records,
		name:    name,
		logger:  logger.OrNop(l),
		current: models.DefaultSettings(),
	}
}

// record mirrors models.Settings with optional fields so partial records can be detected.
type record struct {
	RefreshIntervalMs *int     `json:"refresh_interval_ms"`
	TemperatureUnit   *string  `json:"temperature_unit"`
	TruckWarningC     *float64 `json:"truck_warning_c"`
	TruckCriticalC    *float64 `json:"truck_critical_c"`
	RoomWarningC      *float64 `json:"room_warning_c"`
	RoomCriticalC     *float64 `json:"room_critical_c"`
}

// Load reads the persisted record on first use and returns the current settings.
// Absent, unreadable, or malformed records yield defaults without an error.
func (s *Store) Load(ctx context.Context) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.current
	}
	s.loaded = true
	s.current = s.read(ctx)
	return s.current
}

// Current returns the in-memory settings without touching storage.
func (s *Store) Current() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save validates and persists the full settings record, then makes it current.
func (s *Store) Save(ctx context.Context, settings models.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.records.Put(ctx, s.name, data); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	s.current = settings
	s.loaded = true
	return nil
}

// Reset restores defaults in memory. Nothing is persisted until Save.
func (s *Store) Reset() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = models.DefaultSettings()
	s.loaded = true
	return s.current
}

func (s *Store) read(ctx context.Context) models.Settings {
	defaults := models.DefaultSettings()

	data, err := s.records.Get(ctx, s.name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("settings record unreadable, using defaults", zap.Error(err))
		}
		return defaults
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Debug("settings record malformed, using defaults", zap.Error(err))
		return defaults
	}

	return merge(defaults, rec)
}

// merge overlays the valid fields of rec onto defaults. Invalid fields count as missing.
func merge(out models.Settings, rec record) models.Settings {
	if rec.RefreshIntervalMs != nil && *rec.RefreshIntervalMs >= models.MinRefreshIntervalMs {
		out.RefreshIntervalMs = *rec.RefreshIntervalMs
	}
	if rec.TemperatureUnit != nil {
		if unit := models.TemperatureUnit(*rec.TemperatureUnit); unit.Valid() {
			out.TemperatureUnit = unit
		}
	}
	if rec.TruckWarningC != nil {
		out.TruckWarningC = *rec.TruckWarningC
	}
	if rec.TruckCriticalC != nil {
		out.TruckCriticalC = *rec.TruckCriticalC
	}
	if rec.RoomWarningC != nil {
		out.RoomWarningC = *rec.RoomWarningC
	}
	if rec.RoomCriticalC != nil {
		out.RoomCriticalC = *rec.RoomCriticalC
	}
	return out
}
