package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// LocalStore implements RecordStore with one JSON file per record on the local filesystem.
type LocalStore struct {
	mu  sync.RWMutex
	dir string
}

// NewLocalStore creates a LocalStore rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating record directory: %w", err)
	}

	return &LocalStore{dir: dir}, nil
}

// Dir returns the directory records are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Get reads a record.
func (s *LocalStore) Get(_ context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading record %s: %w", name, err)
	}
	return data, nil
}

// Put writes a record through a temp file and rename, so readers see the old or the new record, never a mix.
func (s *LocalStore) Put(_ context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	final := s.path(name)
	tmp := filepath.Join(s.dir, fmt.Sprintf(".%s.%s.tmp", name, uuid.New().String()))

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing record: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing record: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing record: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing record: %w", err)
	}
	return nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

var _ RecordStore = (*LocalStore)(nil)
