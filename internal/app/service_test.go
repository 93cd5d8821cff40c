package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/varsity/gridiron/internal/app"
	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/internal/domain/predict"
	"github.com/varsity/gridiron/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

var leagueTeams = []string{"tide", "tigers", "dawgs", "vols", "gators", "aggies"}

// strength is a fixed per-team quality level the synthetic scores follow.
var strength = map[string]int{
	"tide":   5,
	"dawgs":  4,
	"tigers": 3,
	"vols":   2,
	"gators": 1,
	"aggies": 0,
}

// leagueSeason generates one completed round robin for a season. Scores
// track team strength so the feature vectors carry learnable structure.
func leagueSeason(season int) []model.Game {
	var games []model.Game
	week := 1
	id := int64(season) * 1000
	for i := 0; i < len(leagueTeams); i++ {
		for j := i + 1; j < len(leagueTeams); j++ {
			home, away := leagueTeams[i], leagueTeams[j]
			hp := 21 + 4*strength[home] - 2*strength[away] + (i+j)%3
			ap := 17 + 4*strength[away] - 2*strength[home] + (i*j)%3
			id++
			games = append(games, model.Game{
				ID:         id,
				Season:     season,
				Week:       week,
				HomeTeam:   home,
				AwayTeam:   away,
				Completed:  true,
				HomePoints: hp,
				AwayPoints: ap,
				HomeStats:  boxScore(hp, strength[home]),
				AwayStats:  boxScore(ap, strength[away]),
			})
			if week++; week > 15 {
				week = 1
			}
		}
	}
	return games
}

func boxScore(points, level int) model.TeamGameStats {
	return model.TeamGameStats{
		TotalYards:   280 + float64(20*level+3*points),
		PassingYards: 180 + float64(12*level),
		RushingYards: 100 + float64(8*level+3*points),
		Turnovers:    float64(3 - level/2),
		ThirdDownPct: 0.30 + 0.04*float64(level),
		PenaltyYards: 60 - float64(4*level),
	}
}

// upcomingSchedule pairs every team once, to be forecast rather than played.
func upcomingSchedule(season int) []model.Matchup {
	return []model.Matchup{
		{HomeTeam: "tide", AwayTeam: "aggies", Season: season, Week: 10},
		{HomeTeam: "tigers", AwayTeam: "gators", Season: season, Week: 10},
		{HomeTeam: "dawgs", AwayTeam: "vols", Season: season, Week: 10},
		{HomeTeam: "vols", AwayTeam: "tide", Season: season, Week: 11},
		{HomeTeam: "gators", AwayTeam: "dawgs", Season: season, Week: 11},
		{HomeTeam: "aggies", AwayTeam: "tigers", Season: season, Week: 11},
	}
}

func newTestService() *app.Service {
	return app.New(
		app.WithCurrentSeason(2025),
		app.WithSeed(7),
		app.WithEmbeddingDims(8, 16),
		app.WithTraining(60, 0.01, 0.05),
		app.WithNeighbors(5, predict.Euclidean),
		app.WithSimulation(50, 2, 5*time.Second),
	)
}

func TestService(t *testing.T) {
	Convey("Given a two-season synthetic league", t, func() {
		games := append(leagueSeason(2024), leagueSeason(2025)...)
		svc := newTestService()

		Convey("When the pipeline has not been trained", func() {
			Convey("Then Predict and Forecast should refuse to run", func() {
				_, err := svc.Predict(context.Background(), upcomingSchedule(2025)[0])
				So(errors.Is(err, app.ErrNotTrained), ShouldBeTrue)

				_, err = svc.Forecast(context.Background(), upcomingSchedule(2025))
				So(errors.Is(err, app.ErrNotTrained), ShouldBeTrue)
			})
		})

		Convey("When training on the full history", func() {
			err := svc.Train(context.Background(), games)
			So(err, ShouldBeNil)

			Convey("Then the pipeline should be ready with a versioned model", func() {
				So(svc.Trained(), ShouldBeTrue)
				So(svc.ModelVersion(), ShouldNotBeEmpty)
				So(svc.ReferenceSize(), ShouldEqual, len(games))
			})

			Convey("Then a matchup prediction should be a coherent distribution", func() {
				dist, err := svc.Predict(context.Background(), model.Matchup{
					HomeTeam: "tide", AwayTeam: "aggies", Season: 2025, Week: 10,
					Context: model.MatchupContext{Week: 10},
				})
				So(err, ShouldBeNil)
				So(dist.HomeWinProb, ShouldBeGreaterThan, 0)
				So(dist.HomeWinProb, ShouldBeLessThan, 1)
				So(dist.SpreadStd, ShouldBeGreaterThanOrEqualTo, 3.0)
				So(dist.TotalStd, ShouldBeGreaterThanOrEqualTo, 6.0)
				So(dist.SampleSize, ShouldBeGreaterThanOrEqualTo, 5)
				if dist.Spread > 0 {
					So(dist.HomeWinProb, ShouldBeGreaterThan, 0.5)
				} else if dist.Spread < 0 {
					So(dist.HomeWinProb, ShouldBeLessThan, 0.5)
				}
			})

			Convey("Then a next-season matchup should fall back to prior embeddings", func() {
				_, err := svc.Predict(context.Background(), model.Matchup{
					HomeTeam: "tide", AwayTeam: "dawgs", Season: 2026, Week: 1,
				})
				So(err, ShouldBeNil)
			})

			Convey("Then an unknown team should report a missing embedding", func() {
				_, err := svc.Predict(context.Background(), model.Matchup{
					HomeTeam: "tide", AwayTeam: "wolfpack", Season: 2025, Week: 10,
				})
				So(errors.Is(err, app.ErrMissingEmbedding), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "wolfpack")
			})

			Convey("Then forecasting an upcoming slate should complete every run", func() {
				schedule := upcomingSchedule(2025)
				summary, err := svc.Forecast(context.Background(), schedule)
				So(err, ShouldBeNil)
				So(summary.Season, ShouldEqual, 2025)
				So(summary.Runs, ShouldEqual, 50)
				So(summary.CompletedRuns, ShouldEqual, 50)
				So(summary.DroppedRuns, ShouldEqual, 0)
				So(summary.Teams, ShouldHaveLength, len(leagueTeams))

				// Every team plays exactly two scheduled games, so mean
				// wins plus mean losses must sum to two for each.
				for _, tf := range summary.Teams {
					So(tf.MeanWins+tf.MeanLosses, ShouldAlmostEqual, 2.0, 1e-9)
					So(tf.WinVariance, ShouldBeGreaterThanOrEqualTo, 0)
				}
				for i := 1; i < len(summary.Teams); i++ {
					So(summary.Teams[i-1].MeanWins, ShouldBeGreaterThanOrEqualTo, summary.Teams[i].MeanWins)
				}
			})

			Convey("Then forecasting twice with one seed should be identical", func() {
				first, err := svc.Forecast(context.Background(), upcomingSchedule(2025))
				So(err, ShouldBeNil)
				second, err := svc.Forecast(context.Background(), upcomingSchedule(2025))
				So(err, ShouldBeNil)
				So(second.Teams, ShouldResemble, first.Teams)
			})
		})

		Convey("When training on a dataset with no completed games", func() {
			var scheduled []model.Game
			for _, g := range games[:6] {
				g.Completed = false
				g.HomePoints, g.AwayPoints = 0, 0
				scheduled = append(scheduled, g)
			}
			err := svc.Train(context.Background(), scheduled)

			Convey("Then training should fail with ErrNoCompletedGames", func() {
				So(errors.Is(err, app.ErrNoCompletedGames), ShouldBeTrue)
			})
		})

		Convey("When training is canceled immediately", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := svc.Train(ctx, games)

			Convey("Then the context error should surface", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
