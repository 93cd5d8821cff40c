package simulate

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrEmptySchedule is returned when there are no matchups to simulate.
	ErrEmptySchedule = errors.New("empty schedule")

	// ErrNoOutcomeSource is returned when no outcome function is supplied.
	ErrNoOutcomeSource = errors.New("nil outcome function")

	// ErrAllRunsFailed is returned when not a single Monte Carlo run
	// completed; partial failures are otherwise tolerated.
	ErrAllRunsFailed = errors.New("all simulation runs failed")
)
