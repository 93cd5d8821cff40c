package simulate

import (
	"time"

	"github.com/varsity/gridiron/pkg/logger"
)

// Option applies a configuration option to the Simulator.
type Option func(*Simulator)

// WithRuns sets the number of Monte Carlo runs.
func WithRuns(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.runs = n
		}
	}
}

// WithWorkers sets the number of concurrent run workers.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSeed sets the base random seed. Run i draws from a source seeded
// seed+i, so results are reproducible regardless of worker interleaving.
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.seed = seed }
}

// WithRunTimeout bounds a single run; a timed-out run is dropped like any
// other run failure.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the Simulator.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}
