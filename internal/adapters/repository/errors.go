package repository

import "errors"

// Sentinel kinds for embedding cache errors.
var (
	// ErrVersionMismatch is returned when a Put carries an embedding from a
	// model version other than the cache's current one.
	ErrVersionMismatch = errors.New("embedding model version mismatch")
)
