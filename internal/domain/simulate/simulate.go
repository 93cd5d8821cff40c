// Package simulate is the Monte Carlo season engine: it repeatedly resolves
// every scheduled matchup by drawing from its outcome distribution and
// aggregates per-team win/loss/point-differential statistics across runs.
//
// Runs are mutually independent and fan out over a small worker pool. Each
// run draws from its own source seeded base+runIndex, so a simulation is
// bit-reproducible for a fixed seed, schedule, and outcome function no
// matter how the runs interleave across workers.
package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/pkg/logger"
	"github.com/varsity/gridiron/pkg/metrics"
)

// Default simulator configuration.
const (
	defaultRuns       = 100
	defaultWorkers    = 4
	defaultRunTimeout = 30 * time.Second
)

// OutcomeFn maps a matchup to its predicted outcome distribution. The
// simulator treats it as a pure function; an error drops the current run
// only.
type OutcomeFn func(ctx context.Context, m model.Matchup) (model.OutcomeDistribution, error)

// Simulator runs Monte Carlo season simulations.
type Simulator struct {
	runs       int
	workers    int
	seed       int64
	runTimeout time.Duration
	log        logger.Logger
}

// New creates a Simulator.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		runs:       defaultRuns,
		workers:    defaultWorkers,
		runTimeout: defaultRunTimeout,
		log:        logger.Get().Named("simulate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate resolves the full schedule s.runs times and aggregates the
// results. A failed or timed-out run is dropped and counted; the summary
// carries the dropped-run tally so confidence is never hidden.
func (s *Simulator) Simulate(ctx context.Context, schedule []model.Matchup, outcome OutcomeFn) (model.ForecastSummary, error) {
	start := time.Now()
	if len(schedule) == 0 {
		return model.ForecastSummary{}, ErrEmptySchedule
	}
	if outcome == nil {
		return model.ForecastSummary{}, ErrNoOutcomeSource
	}

	results := make([]*model.SeasonResult, s.runs)
	failures := make([]*model.RunFailure, s.runs)

	runCh := make(chan int)
	var wg sync.WaitGroup
	workers := s.workers
	if workers > s.runs {
		workers = s.runs
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for run := range runCh {
				res, err := s.runOne(ctx, run, schedule, outcome)
				if err != nil {
					failures[run] = &model.RunFailure{Run: run, Reason: err.Error()}
					metrics.RecordSimulationRunDropped()
					continue
				}
				results[run] = &res
				metrics.RecordSimulationRunCompleted()
				metrics.RecordGamesResolved(len(schedule))
			}
		}()
	}
	for run := 0; run < s.runs; run++ {
		runCh <- run
	}
	close(runCh)
	wg.Wait()

	summary := s.aggregate(schedule, results, failures)
	metrics.RecordSimulationDuration(time.Since(start).Seconds())
	if summary.CompletedRuns == 0 {
		return summary, ErrAllRunsFailed
	}
	s.log.Info(ctx, "season simulation complete",
		logger.Int("runs", summary.Runs),
		logger.Int("completed", summary.CompletedRuns),
		logger.Int("dropped", summary.DroppedRuns),
		logger.Int("games", len(schedule)),
	)
	return summary, nil
}

// runOne resolves every matchup once. Draw order per game is fixed
// (win, margin, total) so a run's random stream is stable.
func (s *Simulator) runOne(ctx context.Context, run int, schedule []model.Matchup, outcome OutcomeFn) (model.SeasonResult, error) {
	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	rng := rand.New(rand.NewSource(s.seed + int64(run))) //nolint:gosec // seeded stream, reproducibility is the requirement
	teams := make(map[string]model.TeamRecord)
	for _, m := range schedule {
		if err := runCtx.Err(); err != nil {
			return model.SeasonResult{}, fmt.Errorf("run %d interrupted: %w", run, err)
		}
		dist, err := outcome(runCtx, m)
		if err != nil {
			return model.SeasonResult{}, fmt.Errorf("run %d: %s: %w", run, m, err)
		}

		homeWins := rng.Float64() < dist.HomeWinProb
		margin := dist.Spread + dist.SpreadStd*rng.NormFloat64()
		// The total is part of every game's fixed three-draw sequence even
		// though season aggregation only consumes wins and margins.
		_ = dist.Total + dist.TotalStd*rng.NormFloat64()

		home := teams[m.HomeTeam]
		away := teams[m.AwayTeam]
		if homeWins {
			home.Wins++
			away.Losses++
		} else {
			home.Losses++
			away.Wins++
		}
		home.PointDiff += margin
		away.PointDiff -= margin
		teams[m.HomeTeam] = home
		teams[m.AwayTeam] = away
	}
	return model.SeasonResult{Run: run, Teams: teams}, nil
}

// aggregate folds completed runs, in run order, into per-team empirical
// moments. Aggregation is append-only over completed runs, so dropped runs
// narrow the sample without corrupting it.
func (s *Simulator) aggregate(schedule []model.Matchup, results []*model.SeasonResult, failures []*model.RunFailure) model.ForecastSummary {
	type teamAgg struct {
		wins, losses, pointDiff meanVar
	}
	aggs := make(map[string]*teamAgg)
	for _, m := range schedule {
		if aggs[m.HomeTeam] == nil {
			aggs[m.HomeTeam] = &teamAgg{}
		}
		if aggs[m.AwayTeam] == nil {
			aggs[m.AwayTeam] = &teamAgg{}
		}
	}

	completed := 0
	for _, res := range results {
		if res == nil {
			continue
		}
		completed++
		for team, agg := range aggs {
			rec := res.Teams[team]
			agg.wins.update(float64(rec.Wins))
			agg.losses.update(float64(rec.Losses))
			agg.pointDiff.update(rec.PointDiff)
		}
	}

	summary := model.ForecastSummary{
		Season:        schedule[0].Season,
		Runs:          len(results),
		CompletedRuns: completed,
	}
	for _, f := range failures {
		if f != nil {
			summary.Failures = append(summary.Failures, *f)
			summary.DroppedRuns++
		}
	}
	for team, agg := range aggs {
		summary.Teams = append(summary.Teams, model.TeamForecast{
			TeamID:            team,
			MeanWins:          agg.wins.mean,
			WinVariance:       agg.wins.variance(),
			MeanLosses:        agg.losses.mean,
			LossVariance:      agg.losses.variance(),
			MeanPointDiff:     agg.pointDiff.mean,
			PointDiffVariance: agg.pointDiff.variance(),
		})
	}
	sort.Slice(summary.Teams, func(i, j int) bool {
		if summary.Teams[i].MeanWins != summary.Teams[j].MeanWins {
			return summary.Teams[i].MeanWins > summary.Teams[j].MeanWins
		}
		return summary.Teams[i].TeamID < summary.Teams[j].TeamID
	})
	return summary
}
