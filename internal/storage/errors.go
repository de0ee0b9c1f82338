package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyClosed is returned when attempting to close a position
	// that already reached a terminal status. Callers treat this as a
	// no-op; realized P&L is never overwritten.
	ErrAlreadyClosed = errors.New("position already closed")
)
