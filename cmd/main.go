package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/varsity/gridiron/internal/adapters/datastore"
	"github.com/varsity/gridiron/internal/adapters/report"
	"github.com/varsity/gridiron/internal/app"
	"github.com/varsity/gridiron/internal/config"
	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/internal/domain/predict"
	"github.com/varsity/gridiron/internal/domain/recency"
	"github.com/varsity/gridiron/pkg/logger"
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	scheme, err := recency.ParseScheme(cfg.RecencyScheme)
	if err != nil {
		loggerInstance.Error(ctx, "invalid recency scheme", logger.Error(err))
		os.Exit(1)
	}
	metric, err := predict.ParseMetric(cfg.DistanceMetric)
	if err != nil {
		loggerInstance.Error(ctx, "invalid distance metric", logger.Error(err))
		os.Exit(1)
	}

	store := datastore.New(cfg.DataDir, datastore.WithLogger(loggerInstance.Named("datastore")))
	games, err := store.LoadSeasons(ctx, cfg.Seasons)
	if err != nil {
		loggerInstance.Error(ctx, "loading season data", logger.Error(err))
		os.Exit(1)
	}
	loggerInstance.Info(ctx, "season data loaded",
		logger.Int("seasons", len(cfg.Seasons)),
		logger.Int("games", len(games)),
	)

	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithCurrentSeason(cfg.CurrentSeason),
		app.WithSeed(cfg.RandomSeed),
		app.WithEmbeddingDims(cfg.EmbeddingDim, cfg.HiddenDim),
		app.WithTraining(cfg.Epochs, cfg.LearningRate, cfg.KLWeight),
		app.WithRecency(scheme, cfg.RecencyHalfLife),
		app.WithNeighbors(cfg.NeighborCount, metric),
		app.WithSimulation(cfg.SimulationRuns, cfg.SimulationWorkers, time.Duration(cfg.RunTimeoutMS)*time.Millisecond),
	)

	start := time.Now()
	if err := svc.Train(ctx, games); err != nil {
		loggerInstance.Error(ctx, "training pipeline", logger.Error(err))
		os.Exit(1)
	}

	schedule := upcomingGames(games, cfg.CurrentSeason)
	if len(schedule) == 0 {
		loggerInstance.Error(ctx, "no remaining games to forecast",
			logger.Int("season", cfg.CurrentSeason))
		os.Exit(1)
	}

	summary, err := svc.Forecast(ctx, schedule)
	if err != nil {
		loggerInstance.Error(ctx, "forecasting season", logger.Error(err))
		os.Exit(1)
	}

	writer, err := report.New(cfg.OutputDir, report.WithLogger(loggerInstance.Named("report")))
	if err != nil {
		loggerInstance.Error(ctx, "opening output directory", logger.Error(err))
		os.Exit(1)
	}
	if err := writer.WriteForecast(ctx, summary); err != nil {
		loggerInstance.Error(ctx, "writing forecast", logger.Error(err))
		os.Exit(1)
	}
	if err := writer.WriteRunReport(ctx, report.RunReport{
		GeneratedAt:   time.Now().UTC(),
		ModelVersion:  svc.ModelVersion(),
		Seasons:       seasonCounts(games),
		ForecastRuns:  summary.Runs,
		CompletedRuns: summary.CompletedRuns,
		DroppedRuns:   summary.DroppedRuns,
	}); err != nil {
		loggerInstance.Error(ctx, "writing run report", logger.Error(err))
		os.Exit(1)
	}

	loggerInstance.Info(ctx, "forecast complete",
		logger.Int("season", summary.Season),
		logger.Int("games", len(schedule)),
		logger.Int("completed_runs", summary.CompletedRuns),
		logger.Int("dropped_runs", summary.DroppedRuns),
		logger.String("model_version", svc.ModelVersion()),
		logger.String("elapsed", time.Since(start).Round(time.Millisecond).String()),
	)
}

// upcomingGames extracts the unplayed portion of the current season's
// schedule as matchups to forecast.
func upcomingGames(games []model.Game, season int) []model.Matchup {
	var schedule []model.Matchup
	for _, g := range games {
		if g.Season == season && !g.Completed {
			schedule = append(schedule, g.Matchup())
		}
	}
	return schedule
}

// seasonCounts summarizes the ingested dataset per season for the run
// report.
func seasonCounts(games []model.Game) []report.SeasonCounts {
	type tally struct {
		teams     map[string]struct{}
		games     int
		completed int
	}
	bySeason := make(map[int]*tally)
	for _, g := range games {
		t := bySeason[g.Season]
		if t == nil {
			t = &tally{teams: make(map[string]struct{})}
			bySeason[g.Season] = t
		}
		t.teams[g.HomeTeam] = struct{}{}
		t.teams[g.AwayTeam] = struct{}{}
		t.games++
		if g.Completed {
			t.completed++
		}
	}
	out := make([]report.SeasonCounts, 0, len(bySeason))
	for season, t := range bySeason {
		out = append(out, report.SeasonCounts{
			Season:         season,
			Teams:          len(t.teams),
			Games:          t.games,
			CompletedGames: t.completed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Season < out[j].Season })
	return out
}
