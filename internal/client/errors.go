package client

import (
	"errors"
	"fmt"
)

// ErrInvalidHours is returned when a history window is outside the backend's accepted range.
var ErrInvalidHours = errors.New("hours out of range")

// ErrorKind classifies a transport failure.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindStatus  ErrorKind = "status"
	KindDecode  ErrorKind = "decode"
)

// TransportError is returned by every fetch that fails.
type TransportError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
