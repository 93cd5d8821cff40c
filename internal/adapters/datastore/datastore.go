// Package datastore loads the JSON artifacts produced by the upstream data
// collector (per-season schedule and box-score files) and maps them onto
// domain game records. Field names follow the collector's output.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/pkg/logger"
)

// Sentinel error kinds for this package.
var (
	// ErrNoSchedule is returned when a season's schedule artifact is absent.
	ErrNoSchedule = errors.New("schedule file not found")
)

// scheduleRecord mirrors one entry of schedule_<season>.json. Scores are
// pointers because upcoming games carry null points.
type scheduleRecord struct {
	ID          int64  `json:"id"`
	Season      int    `json:"season"`
	Week        int    `json:"week"`
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	HomePoints  *int   `json:"home_points"`
	AwayPoints  *int   `json:"away_points"`
	NeutralSite bool   `json:"neutral_site"`
}

// sideStats mirrors one side's box score inside game_stats_<season>.json.
type sideStats struct {
	TotalYards   float64 `json:"total_yards"`
	PassingYards float64 `json:"net_passing_yards"`
	RushingYards float64 `json:"rushing_yards"`
	Turnovers    float64 `json:"turnovers"`
	ThirdDownPct float64 `json:"third_down_pct"`
	PenaltyYards float64 `json:"penalty_yards"`
}

type gameStatsRecord struct {
	GameID int64     `json:"game_id"`
	Home   sideStats `json:"home"`
	Away   sideStats `json:"away"`
}

// Store reads collector artifacts from a flat data directory.
type Store struct {
	dir string
	log logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger for the Store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Store rooted at dir.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir: dir,
		log: logger.Get().Named("datastore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadSeason reads one season's schedule and, when present, its box
// scores. A missing stats file is tolerated: scoring features can still be
// built from the schedule alone.
func (s *Store) LoadSeason(ctx context.Context, season int) ([]model.Game, error) {
	var records []scheduleRecord
	schedulePath := filepath.Join(s.dir, fmt.Sprintf("schedule_%d.json", season))
	if err := readJSON(schedulePath, &records); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoSchedule, schedulePath)
		}
		return nil, fmt.Errorf("loading %s: %w", schedulePath, err)
	}

	stats := make(map[int64]gameStatsRecord)
	statsPath := filepath.Join(s.dir, fmt.Sprintf("game_stats_%d.json", season))
	var statsRecords []gameStatsRecord
	if err := readJSON(statsPath, &statsRecords); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading %s: %w", statsPath, err)
		}
		s.log.Warn(ctx, "no box scores for season; scoring features only",
			logger.Int("season", season),
		)
	}
	for _, r := range statsRecords {
		stats[r.GameID] = r
	}

	games := make([]model.Game, 0, len(records))
	for _, r := range records {
		g := model.Game{
			ID:          r.ID,
			Season:      r.Season,
			Week:        r.Week,
			HomeTeam:    r.HomeTeam,
			AwayTeam:    r.AwayTeam,
			NeutralSite: r.NeutralSite,
		}
		if g.Season == 0 {
			g.Season = season
		}
		if r.HomePoints != nil && r.AwayPoints != nil {
			g.Completed = true
			g.HomePoints = *r.HomePoints
			g.AwayPoints = *r.AwayPoints
		}
		if st, ok := stats[r.ID]; ok {
			g.HomeStats = model.TeamGameStats(st.Home)
			g.AwayStats = model.TeamGameStats(st.Away)
		}
		games = append(games, g)
	}
	s.log.Info(ctx, "season loaded",
		logger.Int("season", season),
		logger.Int("games", len(games)),
		logger.Int("box_scores", len(stats)),
	)
	return games, nil
}

// LoadSeasons reads multiple seasons in order, concatenating their games.
func (s *Store) LoadSeasons(ctx context.Context, seasons []int) ([]model.Game, error) {
	var all []model.Game
	for _, season := range seasons {
		games, err := s.LoadSeason(ctx, season)
		if err != nil {
			return nil, err
		}
		all = append(all, games...)
	}
	return all, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
