package store

import "errors"

var (
	// ErrNotFound is returned when no record exists at (partition, sort).
	ErrNotFound = errors.New("admix: record not found")

	// ErrUnavailable is returned when the backing table cannot be reached.
	// Callers propagate it unchanged; no retry is built into the store.
	ErrUnavailable = errors.New("admix: store unavailable")
)
