package app

import (
	"time"

	"github.com/varsity/gridiron/internal/domain/predict"
	"github.com/varsity/gridiron/internal/domain/recency"
	"github.com/varsity/gridiron/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the Service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCurrentSeason anchors recency weighting and forecasting.
func WithCurrentSeason(season int) Option {
	return func(s *Service) {
		if season > 0 {
			s.currentSeason = season
		}
	}
}

// WithSeed sets the base seed for training and simulation.
func WithSeed(seed int64) Option {
	return func(s *Service) { s.seed = seed }
}

// WithEmbeddingDims sets latent and hidden dimensionality.
func WithEmbeddingDims(latent, hidden int) Option {
	return func(s *Service) {
		if latent > 0 {
			s.embeddingDim = latent
		}
		if hidden > 0 {
			s.hiddenDim = hidden
		}
	}
}

// WithTraining sets embedding training hyperparameters.
func WithTraining(epochs int, learningRate, klWeight float64) Option {
	return func(s *Service) {
		if epochs > 0 {
			s.epochs = epochs
		}
		if learningRate > 0 {
			s.learningRate = learningRate
		}
		if klWeight >= 0 {
			s.klWeight = klWeight
		}
	}
}

// WithRecency sets the season weighting scheme.
func WithRecency(scheme recency.Scheme, halfLife float64) Option {
	return func(s *Service) {
		s.recencyScheme = scheme
		if halfLife > 0 {
			s.recencyHalfLife = halfLife
		}
	}
}

// WithNeighbors sets k and the distance metric for the prediction head.
func WithNeighbors(k int, metric predict.Metric) Option {
	return func(s *Service) {
		if k >= 1 {
			s.neighborCount = k
		}
		s.distanceMetric = metric
	}
}

// WithSimulation sets Monte Carlo run count, worker count, and per-run
// timeout.
func WithSimulation(runs, workers int, runTimeout time.Duration) Option {
	return func(s *Service) {
		if runs > 0 {
			s.simulationRuns = runs
		}
		if workers > 0 {
			s.simulationWorkers = workers
		}
		if runTimeout > 0 {
			s.runTimeout = runTimeout
		}
	}
}

// WithMinGames sets the completed-game threshold for feature building.
func WithMinGames(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minGames = n
		}
	}
}
