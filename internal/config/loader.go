package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if GRIDIRON_CONFIG is set
//  3. env (prefix GRIDIRON_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("GRIDIRON_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: GRIDIRON_DATA_DIR, GRIDIRON_SIMULATION_RUNS, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("GRIDIRON_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "gridiron_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg.DataDir == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case cfg.OutputDir == "":
		return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
	case cfg.EmbeddingDim < 1:
		return fmt.Errorf("%w: embedding_dim must be >= 1", ErrInvalidConfig)
	case cfg.NeighborCount < 1:
		return fmt.Errorf("%w: neighbor_count must be >= 1", ErrInvalidConfig)
	case cfg.SimulationRuns < 1:
		return fmt.Errorf("%w: simulation_runs must be >= 1", ErrInvalidConfig)
	case len(cfg.Seasons) == 0:
		return fmt.Errorf("%w: seasons must not be empty", ErrInvalidConfig)
	}
	return nil
}
