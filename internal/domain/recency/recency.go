// Package recency computes per-season training weights that favor recent
// seasons over older ones. Weights are a pure function of season age; no
// state is kept between calls.
package recency

import (
	"fmt"
	"math"
	"strings"
)

// Default parameters for the built-in schemes.
const (
	defaultHalfLife    = 2.0  // seasons until an exponential weight halves
	defaultLinearDecay = 0.15 // weight lost per season of age, linear scheme
	minWeight          = 1e-3 // floor so no season is weighted to exactly zero
)

// Scheme selects how season age maps to a training weight.
type Scheme int

const (
	// Uniform weights every season equally.
	Uniform Scheme = iota
	// Linear decays the weight by a fixed amount per season of age.
	Linear
	// Exponential halves the weight every half-life seasons.
	Exponential
)

func (s Scheme) String() string {
	switch s {
	case Uniform:
		return "uniform"
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// ParseScheme maps a configuration string to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uniform":
		return Uniform, nil
	case "linear":
		return Linear, nil
	case "exponential", "exp":
		return Exponential, nil
	default:
		return Uniform, fmt.Errorf("unknown recency scheme: %q", s)
	}
}

// Weighter computes per-season weights for a fixed current season.
type Weighter struct {
	scheme      Scheme
	halfLife    float64
	linearDecay float64
}

// Option applies a configuration option to the Weighter.
type Option func(*Weighter)

// WithScheme selects the weighting scheme.
func WithScheme(s Scheme) Option {
	return func(w *Weighter) { w.scheme = s }
}

// WithHalfLife sets the exponential half-life in seasons.
func WithHalfLife(seasons float64) Option {
	return func(w *Weighter) {
		if seasons > 0 {
			w.halfLife = seasons
		}
	}
}

// WithLinearDecay sets the per-season decay used by the linear scheme.
func WithLinearDecay(decay float64) Option {
	return func(w *Weighter) {
		if decay > 0 {
			w.linearDecay = decay
		}
	}
}

// New creates a Weighter. The default scheme is exponential decay with a
// two-season half-life.
func New(opts ...Option) *Weighter {
	w := &Weighter{
		scheme:      Exponential,
		halfLife:    defaultHalfLife,
		linearDecay: defaultLinearDecay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Weight returns the training weight for a season given the current season.
// The result is non-increasing in (currentSeason - season) and never drops
// below a small positive floor. Seasons in the future of currentSeason are
// treated as age zero.
func (w *Weighter) Weight(currentSeason, season int) float64 {
	age := float64(currentSeason - season)
	if age < 0 {
		age = 0
	}
	var weight float64
	switch w.scheme {
	case Linear:
		weight = 1.0 - w.linearDecay*age
	case Exponential:
		weight = math.Pow(0.5, age/w.halfLife)
	default:
		weight = 1.0
	}
	return math.Max(weight, minWeight)
}

// Weights maps every season in the input to its weight, normalized so the
// mean weight is one. Normalization keeps the effective learning rate of
// the training loop independent of the scheme chosen.
func (w *Weighter) Weights(currentSeason int, seasons []int) map[int]float64 {
	out := make(map[int]float64, len(seasons))
	if len(seasons) == 0 {
		return out
	}
	var sum float64
	for _, s := range seasons {
		wt := w.Weight(currentSeason, s)
		out[s] = wt
		sum += wt
	}
	mean := sum / float64(len(seasons))
	for s, wt := range out {
		out[s] = wt / mean
	}
	return out
}
