// Package model contains the domain types passed between pipeline stages.
package model

import "fmt"

// TeamSeason identifies one team's campaign in one season.
type TeamSeason struct {
	TeamID string
	Season int
}

func (ts TeamSeason) String() string {
	return fmt.Sprintf("%s/%d", ts.TeamID, ts.Season)
}

// FeatureVector is a fixed-length ordered sequence of per-team-season
// statistics. It is immutable once built; positions correspond to the
// feature schema declared by the features package.
type FeatureVector struct {
	TeamSeason TeamSeason
	Values     []float64
}

// Embedding is the dense fixed-dimensional representation of a team-season
// produced by the encoder. Dimensionality is constant across all teams and
// seasons so embeddings are directly comparable.
type Embedding struct {
	TeamSeason   TeamSeason
	ModelVersion string
	Values       []float64
}

// Dim returns the embedding dimensionality.
func (e Embedding) Dim() int { return len(e.Values) }

// MatchupContext carries game-level context beyond team identity.
type MatchupContext struct {
	NeutralSite  bool
	HomeDaysRest int
	AwayDaysRest int
	Week         int
}

// Matchup is one scheduled game. Roles are ordered: HomeTeam hosts unless
// Context.NeutralSite is set.
type Matchup struct {
	HomeTeam string
	AwayTeam string
	Season   int
	Week     int
	Context  MatchupContext
}

func (m Matchup) String() string {
	return fmt.Sprintf("%d w%d %s vs %s", m.Season, m.Week, m.HomeTeam, m.AwayTeam)
}

// OutcomeDistribution is the prediction head's output for one matchup:
// point estimates plus enough dispersion to support stochastic sampling.
// Spread is signed home-minus-away; HomeWinProb > 0.5 iff Spread > 0.
type OutcomeDistribution struct {
	Spread      float64
	SpreadStd   float64
	Total       float64
	TotalStd    float64
	HomeWinProb float64

	// LowSample marks a reduced-confidence estimate built from fewer than
	// the configured neighbor count; SampleSize is the count actually used.
	LowSample  bool
	SampleSize int
}

// TeamRecord accumulates one team's results within a single simulated run.
type TeamRecord struct {
	Wins      int
	Losses    int
	PointDiff float64
}

// SeasonResult is the outcome of one Monte Carlo run: every scheduled
// matchup resolved by one stochastic draw. Ephemeral; only aggregates
// survive the simulation.
type SeasonResult struct {
	Run   int
	Teams map[string]TeamRecord
}

// RunFailure records a Monte Carlo run that could not complete and was
// dropped from aggregation.
type RunFailure struct {
	Run    int
	Reason string
}

// TeamForecast is the per-team row of a season forecast: empirical moments
// of wins, losses, and point differential across completed runs.
type TeamForecast struct {
	TeamID            string
	MeanWins          float64
	WinVariance       float64
	MeanLosses        float64
	LossVariance      float64
	MeanPointDiff     float64
	PointDiffVariance float64
}

// ForecastSummary is the persisted output of a season simulation.
type ForecastSummary struct {
	Season        int
	Runs          int
	CompletedRuns int
	DroppedRuns   int
	Failures      []RunFailure
	Teams         []TeamForecast
}

// TeamGameStats holds one side's box-score statistics for a single game.
type TeamGameStats struct {
	TotalYards    float64
	PassingYards  float64
	RushingYards  float64
	Turnovers     float64
	ThirdDownPct  float64
	PenaltyYards  float64
}

// Game is one historical or scheduled game as ingested from the upstream
// collector artifacts. Completed is true when both scores are present.
type Game struct {
	ID          int64
	Season      int
	Week        int
	HomeTeam    string
	AwayTeam    string
	NeutralSite bool
	Completed   bool
	HomePoints  int
	AwayPoints  int
	HomeStats   TeamGameStats
	AwayStats   TeamGameStats
}

// Matchup converts a game into its schedule representation.
func (g Game) Matchup() Matchup {
	return Matchup{
		HomeTeam: g.HomeTeam,
		AwayTeam: g.AwayTeam,
		Season:   g.Season,
		Week:     g.Week,
		Context: MatchupContext{
			NeutralSite: g.NeutralSite,
			Week:        g.Week,
		},
	}
}
