// Package app composes the forecasting pipeline: feature building, recency
// weighting, embedding training, neighbor prediction, and season simulation
// behind one service with two entry points, Train and Forecast.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/varsity/gridiron/internal/adapters/repository"
	"github.com/varsity/gridiron/internal/domain/embedding"
	"github.com/varsity/gridiron/internal/domain/features"
	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/internal/domain/predict"
	"github.com/varsity/gridiron/internal/domain/recency"
	"github.com/varsity/gridiron/internal/domain/simulate"
	"github.com/varsity/gridiron/pkg/logger"
)

// Service owns the pipeline stages and their trained state. Train must
// complete before Predict or Forecast; embeddings never partially update,
// a new training run flushes and repopulates the cache wholesale.
type Service struct {
	log  logger.Logger
	seed int64

	currentSeason   int
	embeddingDim    int
	hiddenDim       int
	epochs          int
	learningRate    float64
	klWeight        float64
	recencyScheme   recency.Scheme
	recencyHalfLife float64
	neighborCount   int
	distanceMetric  predict.Metric
	minGames        int

	simulationRuns    int
	simulationWorkers int
	runTimeout        time.Duration

	builder  *features.Builder
	weighter *recency.Weighter
	encoder  *embedding.Model
	cache    *repository.Cache
	head     *predict.Head
	sim      *simulate.Simulator

	trained bool
}

// New creates a Service with the default pipeline configuration.
func New(opts ...Option) *Service {
	s := &Service{
		log:               logger.Get().Named("app"),
		seed:              1,
		currentSeason:     time.Now().Year(),
		embeddingDim:      32,
		hiddenDim:         64,
		epochs:            250,
		learningRate:      0.005,
		klWeight:          0.05,
		recencyScheme:     recency.Exponential,
		recencyHalfLife:   2,
		neighborCount:     12,
		distanceMetric:    predict.Euclidean,
		simulationRuns:    100,
		simulationWorkers: runtime.NumCPU(),
		runTimeout:        30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	featOpts := []features.Option{features.WithLogger(s.log.Named("features"))}
	if s.minGames > 0 {
		featOpts = append(featOpts, features.WithMinGames(s.minGames))
	}
	s.builder = features.New(featOpts...)
	s.weighter = recency.New(
		recency.WithScheme(s.recencyScheme),
		recency.WithHalfLife(s.recencyHalfLife),
	)
	s.encoder = embedding.New(
		embedding.WithLatentDim(s.embeddingDim),
		embedding.WithHiddenDim(s.hiddenDim),
		embedding.WithEpochs(s.epochs),
		embedding.WithLearningRate(s.learningRate),
		embedding.WithKLWeight(s.klWeight),
		embedding.WithSeed(s.seed),
		embedding.WithLogger(s.log.Named("embedding")),
	)
	s.cache = repository.New(repository.WithLogger(s.log.Named("cache")))
	s.head = predict.New(
		predict.WithNeighbors(s.neighborCount),
		predict.WithMetric(s.distanceMetric),
	)
	s.sim = simulate.New(
		simulate.WithRuns(s.simulationRuns),
		simulate.WithWorkers(s.simulationWorkers),
		simulate.WithSeed(s.seed),
		simulate.WithRunTimeout(s.runTimeout),
		simulate.WithLogger(s.log.Named("simulate")),
	)
	return s
}

// Trained reports whether the pipeline is ready to predict.
func (s *Service) Trained() bool { return s.trained }

// ModelVersion returns the version of the current encoder, empty before
// training.
func (s *Service) ModelVersion() string { return s.encoder.Version() }

// ReferenceSize returns the number of historical matchups backing the
// prediction head.
func (s *Service) ReferenceSize() int { return s.head.Size() }

// Train runs the full fitting pass: build features from completed games,
// weight team-seasons by recency, fit the embedding model, repopulate the
// embedding cache under the new model version, and rebuild the prediction
// head's reference set.
func (s *Service) Train(ctx context.Context, games []model.Game) error {
	completed := 0
	for _, g := range games {
		if g.Completed {
			completed++
		}
	}
	if completed == 0 {
		return ErrNoCompletedGames
	}

	vectors, incomplete := s.builder.Build(ctx, games)
	if len(vectors) == 0 {
		return fmt.Errorf("building features from %d completed games: %w",
			completed, embedding.ErrNoTrainingData)
	}

	// Sorted sample order so training is reproducible; the map iteration
	// order would otherwise leak into the seeded shuffle.
	keys := make([]model.TeamSeason, 0, len(vectors))
	seasonSet := make(map[int]struct{})
	for ts := range vectors {
		keys = append(keys, ts)
		seasonSet[ts.Season] = struct{}{}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Season != keys[j].Season {
			return keys[i].Season < keys[j].Season
		}
		return keys[i].TeamID < keys[j].TeamID
	})
	seasons := make([]int, 0, len(seasonSet))
	for season := range seasonSet {
		seasons = append(seasons, season)
	}
	weights := s.weighter.Weights(s.currentSeason, seasons)

	samples := make([]embedding.Sample, 0, len(keys))
	for _, ts := range keys {
		samples = append(samples, embedding.Sample{
			Vector: vectors[ts],
			Weight: weights[ts.Season],
		})
	}

	if err := s.encoder.Train(ctx, samples); err != nil {
		return fmt.Errorf("training embedding model: %w", err)
	}
	s.cache.SetVersion(ctx, s.encoder.Version())

	if err := s.encodeAll(ctx, keys, vectors); err != nil {
		return err
	}

	if err := s.buildReference(ctx, games); err != nil {
		return err
	}

	s.trained = true
	s.log.Info(ctx, "pipeline trained",
		logger.String("model_version", s.encoder.Version()),
		logger.Int("team_seasons", len(keys)),
		logger.Int("incomplete", len(incomplete)),
		logger.Int("reference_set", s.head.Size()),
		logger.Int("embeddings", s.cache.Len(ctx)),
	)
	return nil
}

// encodeAll encodes every built feature vector in parallel and fills the
// cache. A vector with missing dimensions is skipped with a warning; any
// other encode failure aborts the pass.
func (s *Service) encodeAll(ctx context.Context, keys []model.TeamSeason, vectors map[model.TeamSeason]model.FeatureVector) error {
	embeddings := make([]*model.Embedding, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, ts := range keys {
		i, fv := i, vectors[ts]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			emb, err := s.encoder.Encode(fv)
			if err != nil {
				if errors.Is(err, embedding.ErrMissingFeature) {
					s.log.Warn(gctx, "team-season skipped, missing features",
						logger.String("team_season", fv.TeamSeason.String()),
						logger.Error(err),
					)
					return nil
				}
				return fmt.Errorf("encoding %s: %w", fv.TeamSeason, err)
			}
			embeddings[i] = &emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, emb := range embeddings {
		if emb == nil {
			continue
		}
		if err := s.cache.Put(ctx, *emb); err != nil {
			return fmt.Errorf("caching embedding for %s: %w", emb.TeamSeason, err)
		}
	}
	return nil
}

// buildReference assembles the prediction head's reference set from every
// completed game whose two team-seasons both have cached embeddings.
func (s *Service) buildReference(ctx context.Context, games []model.Game) error {
	observations := make([]predict.Observation, 0, len(games))
	skipped := 0
	for _, g := range games {
		if !g.Completed {
			continue
		}
		home, ok := s.cache.Get(ctx, model.TeamSeason{TeamID: g.HomeTeam, Season: g.Season})
		if !ok {
			skipped++
			continue
		}
		away, ok := s.cache.Get(ctx, model.TeamSeason{TeamID: g.AwayTeam, Season: g.Season})
		if !ok {
			skipped++
			continue
		}
		observations = append(observations, predict.BuildObservation(g, home, away))
	}
	if len(observations) == 0 {
		return fmt.Errorf("building reference set: %w", predict.ErrEmptyReferenceSet)
	}
	if skipped > 0 {
		s.log.Warn(ctx, "completed games excluded from reference set",
			logger.Int("skipped", skipped),
			logger.Int("included", len(observations)),
		)
	}
	return s.head.SetReference(observations)
}

// Predict produces the outcome distribution for a single matchup using the
// current embeddings. The away side of a matchup in season S falls back to
// the S-1 embedding when the current one is absent, and likewise for home;
// a team with neither returns ErrMissingEmbedding.
func (s *Service) Predict(ctx context.Context, m model.Matchup) (model.OutcomeDistribution, error) {
	if !s.trained {
		return model.OutcomeDistribution{}, ErrNotTrained
	}
	home, err := s.lookup(ctx, m.HomeTeam, m.Season)
	if err != nil {
		return model.OutcomeDistribution{}, err
	}
	away, err := s.lookup(ctx, m.AwayTeam, m.Season)
	if err != nil {
		return model.OutcomeDistribution{}, err
	}
	return s.head.Predict(home, away, m.Context)
}

// Forecast simulates the given schedule and returns aggregate per-team
// statistics. The schedule is expected to be a single season's remaining
// games.
func (s *Service) Forecast(ctx context.Context, schedule []model.Matchup) (model.ForecastSummary, error) {
	if !s.trained {
		return model.ForecastSummary{}, ErrNotTrained
	}
	summary, err := s.sim.Simulate(ctx, schedule, func(ctx context.Context, m model.Matchup) (model.OutcomeDistribution, error) {
		return s.Predict(ctx, m)
	})
	if err != nil {
		return summary, err
	}
	if len(schedule) > 0 {
		summary.Season = schedule[0].Season
	}
	return summary, nil
}

// lookup fetches a team's embedding for a season, falling back to the
// prior season when the current one has not been played yet.
func (s *Service) lookup(ctx context.Context, teamID string, season int) (model.Embedding, error) {
	if emb, ok := s.cache.Get(ctx, model.TeamSeason{TeamID: teamID, Season: season}); ok {
		return emb, nil
	}
	if emb, ok := s.cache.Get(ctx, model.TeamSeason{TeamID: teamID, Season: season - 1}); ok {
		return emb, nil
	}
	return model.Embedding{}, fmt.Errorf("%w: %s seasons %d, %d",
		ErrMissingEmbedding, teamID, season, season-1)
}
