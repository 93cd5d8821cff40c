// Package report serializes forecast output artifacts: the per-team
// forecast table (CSV and JSON) and a summary of the pipeline run.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/pkg/logger"
)

// csvHeader is the output table contract, one row per team.
var csvHeader = []string{
	"team_id",
	"mean_wins",
	"mean_losses",
	"win_variance",
	"mean_point_diff",
	"point_diff_variance",
}

// SeasonCounts summarizes one season's ingested data.
type SeasonCounts struct {
	Season         int `json:"season"`
	Teams          int `json:"teams"`
	Games          int `json:"games"`
	CompletedGames int `json:"completed_games"`
}

// RunReport summarizes a full pipeline run alongside the forecast table.
type RunReport struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	ModelVersion  string         `json:"model_version"`
	Seasons       []SeasonCounts `json:"seasons"`
	ForecastRuns  int            `json:"forecast_runs"`
	CompletedRuns int            `json:"completed_runs"`
	DroppedRuns   int            `json:"dropped_runs"`
}

// Writer persists forecast artifacts into an output directory.
type Writer struct {
	dir string
	log logger.Logger
}

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithLogger sets a custom logger for the Writer.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// New creates a Writer rooted at dir, creating it if needed.
func New(dir string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	w := &Writer{
		dir: dir,
		log: logger.Get().Named("report"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WriteForecast writes the per-team table as both CSV (contract columns)
// and JSON (full summary including failures).
func (w *Writer) WriteForecast(ctx context.Context, summary model.ForecastSummary) error {
	base := fmt.Sprintf("forecast_%d", summary.Season)

	csvPath := filepath.Join(w.dir, base+".csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", csvPath, err)
	}
	defer f.Close()
	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, tf := range summary.Teams {
		row := []string{
			tf.TeamID,
			formatFloat(tf.MeanWins),
			formatFloat(tf.MeanLosses),
			formatFloat(tf.WinVariance),
			formatFloat(tf.MeanPointDiff),
			formatFloat(tf.PointDiffVariance),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", tf.TeamID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", csvPath, err)
	}

	jsonPath := filepath.Join(w.dir, base+".json")
	if err := writeJSON(jsonPath, summary); err != nil {
		return err
	}

	w.log.Info(ctx, "forecast written",
		logger.Int("season", summary.Season),
		logger.Int("teams", len(summary.Teams)),
		logger.String("csv", csvPath),
	)
	return nil
}

// WriteRunReport writes the pipeline run summary.
func (w *Writer) WriteRunReport(ctx context.Context, r RunReport) error {
	path := filepath.Join(w.dir, "run_report.json")
	if err := writeJSON(path, r); err != nil {
		return err
	}
	w.log.Info(ctx, "run report written", logger.String("path", path))
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
