package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Run results are write-once per
	// snapshot; re-runs use a new snapshot ID or a cleared store.
	ErrDuplicateKey = errors.New("duplicate key: results are write-once per snapshot")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
