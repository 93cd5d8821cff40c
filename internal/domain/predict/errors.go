package predict

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrEmptyReferenceSet is returned when prediction is requested before
	// any historical matchup has been ingested.
	ErrEmptyReferenceSet = errors.New("reference set is empty")

	// ErrDimensionMismatch is returned when the query embeddings do not
	// match the dimensionality of the reference set.
	ErrDimensionMismatch = errors.New("query dimension mismatch")
)
