// Package storage persists small named records such as dashboard settings.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a record has never been written.
var ErrNotFound = errors.New("record not found")

// ErrInvalidName is returned for record names that cannot be used as keys.
var ErrInvalidName = errors.New("invalid record name")

// RecordStore stores opaque records by name. Put replaces the whole record atomically.
type RecordStore interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
