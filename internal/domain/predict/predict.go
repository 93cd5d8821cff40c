// Package predict maps a pair of team embeddings plus matchup context to a
// calibrated outcome distribution using a nearest-neighbor estimator over
// historical matchups with known results.
//
// The head is non-parametric: it fits no global parameters, only references
// the ingested history. Given a fixed reference set it is a pure function.
package predict

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/pkg/metrics"
)

// Default head configuration.
const (
	defaultNeighbors = 12
	// Dispersion floors keep sampling meaningful when neighbors agree
	// unusually closely.
	defaultMinSpreadStd = 3.0
	defaultMinTotalStd  = 6.0
	// distanceEpsilon avoids division by zero for exact feature matches.
	distanceEpsilon = 1e-9
)

// Metric selects the neighbor distance function.
type Metric int

const (
	// Euclidean is the L2 distance over the concatenated feature space.
	Euclidean Metric = iota
	// Manhattan is the L1 distance.
	Manhattan
)

func (m Metric) norm() float64 {
	if m == Manhattan {
		return 1
	}
	return 2
}

// ParseMetric maps a configuration string to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "", "euclidean", "l2":
		return Euclidean, nil
	case "manhattan", "l1":
		return Manhattan, nil
	default:
		return Euclidean, fmt.Errorf("unknown distance metric: %q", s)
	}
}

// Observation is one historical matchup with a known result, keyed by the
// concatenated (home embedding, away embedding, context) feature vector.
type Observation struct {
	Matchup  model.Matchup
	Features []float64
	Spread   float64 // observed, home minus away
	Total    float64
	HomeWin  bool
}

// ContextFeatures flattens matchup context into the numeric tail of the
// neighbor feature space.
func ContextFeatures(c model.MatchupContext) []float64 {
	neutral := 0.0
	if c.NeutralSite {
		neutral = 1.0
	}
	return []float64{
		neutral,
		float64(c.HomeDaysRest-c.AwayDaysRest) / 7.0,
		float64(c.Week) / 15.0,
	}
}

// BuildObservation assembles a reference-set entry from a completed game
// and its two embeddings.
func BuildObservation(g model.Game, home, away model.Embedding) Observation {
	features := make([]float64, 0, home.Dim()+away.Dim()+3)
	features = append(features, home.Values...)
	features = append(features, away.Values...)
	features = append(features, ContextFeatures(g.Matchup().Context)...)
	return Observation{
		Matchup:  g.Matchup(),
		Features: features,
		Spread:   float64(g.HomePoints - g.AwayPoints),
		Total:    float64(g.HomePoints + g.AwayPoints),
		HomeWin:  g.HomePoints > g.AwayPoints,
	}
}

// Head is the neighbor-based prediction head. The reference set inside is
// replaced wholesale via SetReference on an explicit external trigger; the
// head itself never mutates embeddings or observations.
type Head struct {
	k            int
	metric       Metric
	minSpreadStd float64
	minTotalStd  float64

	observations []Observation
	dim          int
}

// Option applies a configuration option to the Head.
type Option func(*Head)

// WithNeighbors sets k, the neighbor count. Values below 1 are ignored.
func WithNeighbors(k int) Option {
	return func(h *Head) {
		if k >= 1 {
			h.k = k
		}
	}
}

// WithMetric selects the distance function.
func WithMetric(m Metric) Option {
	return func(h *Head) { h.metric = m }
}

// WithDispersionFloors sets the minimum spread/total standard deviations
// used when neighbors agree closely.
func WithDispersionFloors(spreadStd, totalStd float64) Option {
	return func(h *Head) {
		if spreadStd > 0 {
			h.minSpreadStd = spreadStd
		}
		if totalStd > 0 {
			h.minTotalStd = totalStd
		}
	}
}

// New creates a Head with an empty reference set.
func New(opts ...Option) *Head {
	h := &Head{
		k:            defaultNeighbors,
		metric:       Euclidean,
		minSpreadStd: defaultMinSpreadStd,
		minTotalStd:  defaultMinTotalStd,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetReference replaces the historical reference set. All observations
// must share one feature dimensionality.
func (h *Head) SetReference(observations []Observation) error {
	if len(observations) == 0 {
		h.observations = nil
		h.dim = 0
		return nil
	}
	dim := len(observations[0].Features)
	for i, o := range observations {
		if len(o.Features) != dim {
			return fmt.Errorf("%w: observation %d has %d features, want %d",
				ErrDimensionMismatch, i, len(o.Features), dim)
		}
	}
	h.observations = observations
	h.dim = dim
	return nil
}

// Size returns the number of reference observations.
func (h *Head) Size() int { return len(h.observations) }

// neighbor pairs a reference index with its query distance.
type neighbor struct {
	idx  int
	dist float64
}

// Predict produces the outcome distribution for a home/away embedding pair
// and matchup context. Fewer than k available neighbors is non-fatal: all
// are used and the result carries the LowSample flag.
func (h *Head) Predict(home, away model.Embedding, mc model.MatchupContext) (model.OutcomeDistribution, error) {
	start := time.Now()
	if len(h.observations) == 0 {
		return model.OutcomeDistribution{}, ErrEmptyReferenceSet
	}
	query := make([]float64, 0, home.Dim()+away.Dim()+3)
	query = append(query, home.Values...)
	query = append(query, away.Values...)
	query = append(query, ContextFeatures(mc)...)
	if len(query) != h.dim {
		return model.OutcomeDistribution{}, fmt.Errorf("%w: query has %d features, reference has %d",
			ErrDimensionMismatch, len(query), h.dim)
	}

	neighbors := make([]neighbor, len(h.observations))
	for i, o := range h.observations {
		neighbors[i] = neighbor{idx: i, dist: floats.Distance(query, o.Features, h.metric.norm())}
	}
	// Index is the secondary key so equidistant neighbors order
	// deterministically for a fixed reference set.
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].dist != neighbors[j].dist {
			return neighbors[i].dist < neighbors[j].dist
		}
		return neighbors[i].idx < neighbors[j].idx
	})

	take := h.k
	lowSample := false
	if take > len(neighbors) {
		take = len(neighbors)
		lowSample = true
	}
	// Include every neighbor tied with the k-th distance rather than
	// truncating arbitrarily.
	for take < len(neighbors) && neighbors[take].dist == neighbors[take-1].dist {
		take++
	}
	selected := neighbors[:take]

	var weightSum, spreadSum, totalSum float64
	for _, n := range selected {
		w := 1.0 / (n.dist + distanceEpsilon)
		o := h.observations[n.idx]
		weightSum += w
		spreadSum += w * o.Spread
		totalSum += w * o.Total
	}
	spreadMean := spreadSum / weightSum
	totalMean := totalSum / weightSum

	var spreadVar, totalVar float64
	for _, n := range selected {
		w := 1.0 / (n.dist + distanceEpsilon)
		o := h.observations[n.idx]
		spreadVar += w * (o.Spread - spreadMean) * (o.Spread - spreadMean)
		totalVar += w * (o.Total - totalMean) * (o.Total - totalMean)
	}
	spreadStd := math.Max(math.Sqrt(spreadVar/weightSum), h.minSpreadStd)
	totalStd := math.Max(math.Sqrt(totalVar/weightSum), h.minTotalStd)

	// Win probability is the Gaussian mass above zero for the predicted
	// margin, which makes the prob/spread consistency invariant structural:
	// prob > 0.5 exactly when the spread favors the home side.
	winProb := distuv.UnitNormal.CDF(spreadMean / spreadStd)
	winProb = math.Min(math.Max(winProb, distanceEpsilon), 1-distanceEpsilon)

	metrics.RecordPrediction()
	metrics.RecordPredictionLatency(float64(time.Since(start).Microseconds()) / 1e3)
	if lowSample {
		metrics.RecordLowSample()
	}
	return model.OutcomeDistribution{
		Spread:      spreadMean,
		SpreadStd:   spreadStd,
		Total:       totalMean,
		TotalStd:    totalStd,
		HomeWinProb: winProb,
		LowSample:   lowSample,
		SampleSize:  take,
	}, nil
}
