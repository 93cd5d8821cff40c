// Package metrics provides Prometheus metrics for the gridiron forecast pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds all Prometheus collectors for the pipeline.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	// Training
	trainingEpochs   prometheus.Gauge
	trainingLoss     prometheus.Gauge
	trainingDuration prometheus.Histogram

	// Encoding
	encodesTotal  prometheus.Counter
	encodeErrors  prometheus.Counter
	encodeLatency prometheus.Histogram

	// Embedding cache
	cacheSize    prometheus.Gauge
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheFlushes prometheus.Counter

	// Prediction head
	predictionsTotal  prometheus.Counter
	predictionLatency prometheus.Histogram
	lowSampleTotal    prometheus.Counter

	// Season simulation
	simulationRunsCompleted prometheus.Counter
	simulationRunsDropped   prometheus.Counter
	simulationDuration      prometheus.Histogram
	simulationGamesResolved prometheus.Counter
}

var defaultManager *Manager

//nolint:gochecknoinits // global manager mirrors the process-wide registry
func init() {
	defaultManager = NewManager()
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "gridiron",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initialize()
	return m
}

func (m *Manager) initialize() {
	factory := promauto.With(m.registry)

	m.trainingEpochs = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "training",
		Name: "epochs_completed", Help: "Epochs completed by the last embedding training run.",
	})
	m.trainingLoss = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "training",
		Name: "final_loss", Help: "Weighted objective value at the end of training.",
	})
	m.trainingDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "training",
		Name: "duration_seconds", Help: "Wall-clock duration of embedding training.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	m.encodesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "embedding",
		Name: "encodes_total", Help: "Team-season feature vectors encoded.",
	})
	m.encodeErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "embedding",
		Name: "encode_errors_total", Help: "Encode calls rejected (missing features, untrained model).",
	})
	m.encodeLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "embedding",
		Name: "encode_latency_ms", Help: "Latency of single encode calls in milliseconds.",
		Buckets: m.buckets,
	})

	m.cacheSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "cache",
		Name: "embeddings", Help: "Embeddings currently cached.",
	})
	m.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "cache",
		Name: "hits_total", Help: "Embedding cache hits.",
	})
	m.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "cache",
		Name: "misses_total", Help: "Embedding cache misses.",
	})
	m.cacheFlushes = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "cache",
		Name: "flushes_total", Help: "Wholesale cache invalidations on model version bumps.",
	})

	m.predictionsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "prediction",
		Name: "predictions_total", Help: "Matchup outcome distributions produced.",
	})
	m.predictionLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "prediction",
		Name: "latency_ms", Help: "Latency of single predictions in milliseconds.",
		Buckets: m.buckets,
	})
	m.lowSampleTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "prediction",
		Name: "low_sample_total", Help: "Predictions produced from fewer than k neighbors.",
	})

	m.simulationRunsCompleted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "simulation",
		Name: "runs_completed_total", Help: "Monte Carlo runs aggregated into a forecast.",
	})
	m.simulationRunsDropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "simulation",
		Name: "runs_dropped_total", Help: "Monte Carlo runs dropped due to failure or timeout.",
	})
	m.simulationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "simulation",
		Name: "duration_seconds", Help: "Wall-clock duration of a full season simulation.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
	})
	m.simulationGamesResolved = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "simulation",
		Name: "games_resolved_total", Help: "Individual game outcomes drawn across all runs.",
	})
}

// Package-level helpers delegating to the default manager.

func RecordTrainingEpochs(n int)            { defaultManager.trainingEpochs.Set(float64(n)) }
func RecordTrainingLoss(loss float64)       { defaultManager.trainingLoss.Set(loss) }
func RecordTrainingDuration(secs float64)   { defaultManager.trainingDuration.Observe(secs) }
func RecordEncode()                         { defaultManager.encodesTotal.Inc() }
func RecordEncodeError()                    { defaultManager.encodeErrors.Inc() }
func RecordEncodeLatency(ms float64)        { defaultManager.encodeLatency.Observe(ms) }
func UpdateCacheSize(n int)                 { defaultManager.cacheSize.Set(float64(n)) }
func RecordCacheHit()                       { defaultManager.cacheHits.Inc() }
func RecordCacheMiss()                      { defaultManager.cacheMisses.Inc() }
func RecordCacheFlush()                     { defaultManager.cacheFlushes.Inc() }
func RecordPrediction()                     { defaultManager.predictionsTotal.Inc() }
func RecordPredictionLatency(ms float64)    { defaultManager.predictionLatency.Observe(ms) }
func RecordLowSample()                      { defaultManager.lowSampleTotal.Inc() }
func RecordSimulationRunCompleted()         { defaultManager.simulationRunsCompleted.Inc() }
func RecordSimulationRunDropped()           { defaultManager.simulationRunsDropped.Inc() }
func RecordSimulationDuration(secs float64) { defaultManager.simulationDuration.Observe(secs) }
func RecordGamesResolved(n int)             { defaultManager.simulationGamesResolved.Add(float64(n)) }

// GetRegistry exposes the default manager's registry for scrape handlers.
func GetRegistry() *prometheus.Registry {
	return defaultManager.registry
}
