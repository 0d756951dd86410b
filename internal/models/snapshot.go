package models

import "time"

// Snapshot is one internally consistent result of a joined sync cycle.
type Snapshot struct {
	Stats     Stats     `json:"stats"`
	Assets    []Asset   `json:"assets"`
	Alerts    []Alert   `json:"alerts"`
	FetchedAt time.Time `json:"fetched_at"`
	Cycle     uint64    `json:"cycle"`
}

// SyncState is the single state cell published by the sync engine.
type SyncState struct {
	Snapshot *Snapshot `json:"snapshot"`
	Loading  bool      `json:"loading"`
	Error    *string   `json:"error"`
}

// NewSyncState returns the state before the first cycle completes.
func NewSyncState() SyncState {
	return SyncState{Loading: true}
}

// HasError reports whether the most recent applied cycle failed.
func (s SyncState) HasError() bool {
	return s.Error != nil
}

// ErrorMessage returns the error text, or "" when the last cycle succeeded.
func (s SyncState) ErrorMessage() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}
