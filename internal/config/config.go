// Package config defines pipeline configuration and loading.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars.
// - External errors are wrapped via this package's sentinel kinds.
package config

import "runtime"

// Config contains process configuration for a forecast run.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DataDir holds the collector artifacts (schedule/box-score JSON).
	DataDir string `koanf:"data_dir"`

	// OutputDir receives forecast tables and the run report.
	OutputDir string `koanf:"output_dir"`

	// CurrentSeason anchors recency weighting and is the season forecast.
	CurrentSeason int `koanf:"current_season"`

	// Seasons lists every season loaded for training and reference data.
	Seasons []int `koanf:"seasons"`

	// EmbeddingDim sets the latent dimensionality of team embeddings.
	EmbeddingDim int `koanf:"embedding_dim"`

	// HiddenDim sets the encoder/decoder hidden layer width.
	HiddenDim int `koanf:"hidden_dim"`

	// Epochs caps embedding training epochs.
	Epochs int `koanf:"epochs"`

	// LearningRate for the embedding optimizer.
	LearningRate float64 `koanf:"learning_rate"`

	// KLWeight scales the latent regularization term.
	KLWeight float64 `koanf:"kl_weight"`

	// RecencyScheme selects season weighting: uniform, linear, exponential.
	RecencyScheme string `koanf:"recency_scheme"`

	// RecencyHalfLife is the exponential half-life in seasons.
	RecencyHalfLife float64 `koanf:"recency_half_life"`

	// NeighborCount is k for the prediction head.
	NeighborCount int `koanf:"neighbor_count"`

	// DistanceMetric selects the neighbor distance: euclidean, manhattan.
	DistanceMetric string `koanf:"distance_metric"`

	// SimulationRuns is the Monte Carlo run count per season.
	SimulationRuns int `koanf:"simulation_runs"`

	// SimulationWorkers bounds concurrent runs.
	SimulationWorkers int `koanf:"simulation_workers"`

	// RunTimeoutMS bounds one Monte Carlo run in milliseconds.
	RunTimeoutMS int `koanf:"run_timeout_ms"`

	// RandomSeed drives training and simulation; same seed, same forecast.
	RandomSeed int64 `koanf:"random_seed"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		DataDir:           "data",
		OutputDir:         "out",
		CurrentSeason:     2025,
		Seasons:           []int{2021, 2022, 2023, 2024, 2025},
		EmbeddingDim:      32,
		HiddenDim:         64,
		Epochs:            250,
		LearningRate:      0.005,
		KLWeight:          0.05,
		RecencyScheme:     "exponential",
		RecencyHalfLife:   2,
		NeighborCount:     12,
		DistanceMetric:    "euclidean",
		SimulationRuns:    100,
		SimulationWorkers: runtime.NumCPU(),
		RunTimeoutMS:      30_000,
		RandomSeed:        42,
	}
}
