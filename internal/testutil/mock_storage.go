// mock_storage.go - In-memory record store for testing
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/coldchain-twin/dashboard/internal/storage"
)

// MockRecordStore implements storage.RecordStore in memory.
type MockRecordStore struct {
	records  map[string][]byte
	getErr   error
	putErr   error
	putCount int
	mu       sync.RWMutex
}

// NewMockRecordStore creates an empty store.
func NewMockRecordStore() *MockRecordStore {
	return &MockRecordStore{
		records: make(map[string][]byte),
	}
}

func (m *MockRecordStore) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.records[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MockRecordStore) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.putErr != nil {
		return m.putErr
	}
	m.records[name] = append([]byte(nil), data...)
	m.putCount++
	return nil
}

func (m *MockRecordStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[name]; !ok {
		return errors.New("record not found")
	}
	delete(m.records, name)
	return nil
}

// Ensure MockRecordStore implements storage.RecordStore
var _ storage.RecordStore = (*MockRecordStore)(nil)

// Test Helper Methods

// SetRecord stores raw bytes directly, bypassing Put accounting.
func (m *MockRecordStore) SetRecord(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[name] = data
}

// Record returns the raw bytes stored under name.
func (m *MockRecordStore) Record(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.records[name]
	return data, ok
}

// FailGet makes every Get return err (nil clears it).
func (m *MockRecordStore) FailGet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailPut makes every Put return err (nil clears it).
func (m *MockRecordStore) FailPut(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

// PutCount returns the number of successful Put calls.
func (m *MockRecordStore) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.putCount
}
