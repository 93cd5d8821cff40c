// Package features turns raw per-game records into fixed-length per-team-season
// feature vectors, the input contract of the embedding model.
package features

import (
	"context"
	"math"
	"sort"

	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/pkg/logger"
)

// Schema is the declared, ordered set of feature names. Every FeatureVector
// produced by this package has exactly len(Schema) values in this order.
var Schema = []string{
	"points_for_pg",
	"points_against_pg",
	"point_diff_pg",
	"win_pct",
	"total_yards_pg",
	"yards_allowed_pg",
	"passing_yards_pg",
	"rushing_yards_pg",
	"turnovers_pg",
	"takeaways_pg",
	"third_down_pct",
	"penalty_yards_pg",
}

// Dim is the feature vector dimensionality.
func Dim() int { return len(Schema) }

// defaultMinGames is the completed-game threshold below which a team-season
// is reported incomplete rather than built.
const defaultMinGames = 4

// Incomplete reports a team-season that could not be built.
type Incomplete struct {
	TeamSeason model.TeamSeason
	Games      int
	Reason     string
}

// Builder accumulates game records into per-team-season feature vectors.
type Builder struct {
	minGames int
	impute   bool
	log      logger.Logger
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithMinGames sets the completed-game threshold for a buildable season.
func WithMinGames(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.minGames = n
		}
	}
}

// WithImputation fills features that are missing across an entire
// team-season with the league mean instead of leaving them NaN. Without it,
// missing dimensions stay NaN and are rejected at encode time.
func WithImputation() Option {
	return func(b *Builder) { b.impute = true }
}

// WithLogger sets a custom logger for the Builder.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		minGames: defaultMinGames,
		log:      logger.Get().Named("features"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// accum collects one team-season's running totals.
type accum struct {
	games         int
	statGames     int // games with a box score present
	pointsFor     float64
	pointsAgainst float64
	wins          float64
	yardsFor      float64
	yardsAgainst  float64
	passYards     float64
	rushYards     float64
	turnovers     float64
	takeaways     float64
	thirdDownSum  float64
	penaltyYards  float64
}

func (a *accum) add(points, oppPoints int, own, opp model.TeamGameStats) {
	a.games++
	a.pointsFor += float64(points)
	a.pointsAgainst += float64(oppPoints)
	if points > oppPoints {
		a.wins++
	}
	// A zero total-yards box score means the collector had no stats for
	// this game; never fold zeros into the per-game averages.
	if own.TotalYards > 0 {
		a.statGames++
		a.yardsFor += own.TotalYards
		a.yardsAgainst += opp.TotalYards
		a.passYards += own.PassingYards
		a.rushYards += own.RushingYards
		a.turnovers += own.Turnovers
		a.takeaways += opp.Turnovers
		a.thirdDownSum += own.ThirdDownPct
		a.penaltyYards += own.PenaltyYards
	}
}

func (a *accum) vector() []float64 {
	g := float64(a.games)
	v := make([]float64, len(Schema))
	v[0] = a.pointsFor / g
	v[1] = a.pointsAgainst / g
	v[2] = (a.pointsFor - a.pointsAgainst) / g
	v[3] = a.wins / g
	if a.statGames > 0 {
		sg := float64(a.statGames)
		v[4] = a.yardsFor / sg
		v[5] = a.yardsAgainst / sg
		v[6] = a.passYards / sg
		v[7] = a.rushYards / sg
		v[8] = a.turnovers / sg
		v[9] = a.takeaways / sg
		v[10] = a.thirdDownSum / sg
		v[11] = a.penaltyYards / sg
	} else {
		for i := 4; i < len(Schema); i++ {
			v[i] = math.NaN()
		}
	}
	return v
}

// Build accumulates every completed game into per-team-season vectors.
// Team-seasons with fewer than the minimum completed games are signaled via
// the Incomplete slice and excluded from the result, never zero-filled.
func (b *Builder) Build(ctx context.Context, games []model.Game) (map[model.TeamSeason]model.FeatureVector, []Incomplete) {
	acc := make(map[model.TeamSeason]*accum)
	for _, g := range games {
		if !g.Completed {
			continue
		}
		home := model.TeamSeason{TeamID: g.HomeTeam, Season: g.Season}
		away := model.TeamSeason{TeamID: g.AwayTeam, Season: g.Season}
		if acc[home] == nil {
			acc[home] = &accum{}
		}
		if acc[away] == nil {
			acc[away] = &accum{}
		}
		acc[home].add(g.HomePoints, g.AwayPoints, g.HomeStats, g.AwayStats)
		acc[away].add(g.AwayPoints, g.HomePoints, g.AwayStats, g.HomeStats)
	}

	out := make(map[model.TeamSeason]model.FeatureVector, len(acc))
	var incomplete []Incomplete
	for ts, a := range acc {
		if a.games < b.minGames {
			incomplete = append(incomplete, Incomplete{
				TeamSeason: ts,
				Games:      a.games,
				Reason:     "below completed-game threshold",
			})
			continue
		}
		out[ts] = model.FeatureVector{TeamSeason: ts, Values: a.vector()}
	}

	if b.impute {
		b.imputeMissing(out)
	}

	sort.Slice(incomplete, func(i, j int) bool {
		if incomplete[i].TeamSeason.Season != incomplete[j].TeamSeason.Season {
			return incomplete[i].TeamSeason.Season < incomplete[j].TeamSeason.Season
		}
		return incomplete[i].TeamSeason.TeamID < incomplete[j].TeamSeason.TeamID
	})
	if len(incomplete) > 0 {
		b.log.Warn(ctx, "team-seasons excluded from feature build",
			logger.Int("excluded", len(incomplete)),
			logger.Int("built", len(out)),
		)
	}
	return out, incomplete
}

// imputeMissing replaces NaN dimensions with the league mean of the
// non-missing values for that dimension.
func (b *Builder) imputeMissing(vectors map[model.TeamSeason]model.FeatureVector) {
	dim := Dim()
	sums := make([]float64, dim)
	counts := make([]int, dim)
	for _, fv := range vectors {
		for i, v := range fv.Values {
			if !math.IsNaN(v) {
				sums[i] += v
				counts[i]++
			}
		}
	}
	for _, fv := range vectors {
		for i, v := range fv.Values {
			if math.IsNaN(v) && counts[i] > 0 {
				fv.Values[i] = sums[i] / float64(counts[i])
			}
		}
	}
}
