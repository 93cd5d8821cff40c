package simulate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/internal/domain/simulate"
	"github.com/varsity/gridiron/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// threeTeamSchedule is a one-season round robin where each team hosts once.
func threeTeamSchedule() []model.Matchup {
	return []model.Matchup{
		{HomeTeam: "alpha", AwayTeam: "bravo", Season: 2024, Week: 1},
		{HomeTeam: "bravo", AwayTeam: "charlie", Season: 2024, Week: 2},
		{HomeTeam: "charlie", AwayTeam: "alpha", Season: 2024, Week: 3},
	}
}

// fixedOutcome returns the same distribution for every matchup.
func fixedOutcome(prob, spread, total float64) simulate.OutcomeFn {
	return func(_ context.Context, _ model.Matchup) (model.OutcomeDistribution, error) {
		return model.OutcomeDistribution{
			Spread: spread, SpreadStd: 13,
			Total: total, TotalStd: 10,
			HomeWinProb: prob,
		}, nil
	}
}

func teamForecast(s model.ForecastSummary, teamID string) model.TeamForecast {
	for _, tf := range s.Teams {
		if tf.TeamID == teamID {
			return tf
		}
	}
	return model.TeamForecast{}
}

func TestSimulate(t *testing.T) {
	Convey("Given a three-team schedule with a fixed 0.7 home win probability", t, func() {
		sim := simulate.New(
			simulate.WithRuns(100),
			simulate.WithWorkers(4),
			simulate.WithSeed(42),
		)
		outcome := fixedOutcome(0.7, 3.5, 50)

		Convey("When simulating 100 runs with seed 42", func() {
			summary, err := sim.Simulate(context.Background(), threeTeamSchedule(), outcome)
			So(err, ShouldBeNil)

			Convey("Then all runs should complete", func() {
				So(summary.Runs, ShouldEqual, 100)
				So(summary.CompletedRuns, ShouldEqual, 100)
				So(summary.DroppedRuns, ShouldEqual, 0)
			})

			Convey("Then every team's mean wins should hover near its home edge", func() {
				// Each team hosts one of its two games; expected wins per
				// run are 0.7 at home plus 0.3 away.
				for _, team := range []string{"alpha", "bravo", "charlie"} {
					tf := teamForecast(summary, team)
					So(tf.MeanWins, ShouldAlmostEqual, 1.0, 0.15)
					So(tf.MeanWins+tf.MeanLosses, ShouldAlmostEqual, 2.0, 1e-9)
				}
			})

			Convey("Then rerunning with the same seed should reproduce the summary exactly", func() {
				again, err := sim.Simulate(context.Background(), threeTeamSchedule(), outcome)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, summary)
			})

			Convey("Then a different seed should produce a different draw sequence", func() {
				other := simulate.New(
					simulate.WithRuns(100),
					simulate.WithWorkers(4),
					simulate.WithSeed(43),
				)
				different, err := other.Simulate(context.Background(), threeTeamSchedule(), outcome)
				So(err, ShouldBeNil)
				So(different, ShouldNotResemble, summary)
			})
		})

		Convey("When worker counts differ between runs", func() {
			serial := simulate.New(simulate.WithRuns(50), simulate.WithWorkers(1), simulate.WithSeed(7))
			parallel := simulate.New(simulate.WithRuns(50), simulate.WithWorkers(8), simulate.WithSeed(7))

			Convey("Then the summaries should still be identical", func() {
				a, err := serial.Simulate(context.Background(), threeTeamSchedule(), outcome)
				So(err, ShouldBeNil)
				b, err := parallel.Simulate(context.Background(), threeTeamSchedule(), outcome)
				So(err, ShouldBeNil)
				So(b, ShouldResemble, a)
			})
		})
	})

	Convey("Given a schedule where one team only plays at home", t, func() {
		schedule := []model.Matchup{
			{HomeTeam: "alpha", AwayTeam: "bravo", Season: 2024, Week: 1},
			{HomeTeam: "alpha", AwayTeam: "charlie", Season: 2024, Week: 2},
			{HomeTeam: "bravo", AwayTeam: "charlie", Season: 2024, Week: 3},
		}
		sim := simulate.New(simulate.WithRuns(100), simulate.WithWorkers(4), simulate.WithSeed(42))

		Convey("When simulating with a fixed 0.7 home win probability", func() {
			summary, err := sim.Simulate(context.Background(), schedule, fixedOutcome(0.7, 3.5, 50))
			So(err, ShouldBeNil)

			Convey("Then the all-home team should win about 0.7 per home game", func() {
				So(teamForecast(summary, "alpha").MeanWins, ShouldAlmostEqual, 1.4, 0.15)
			})

			Convey("Then the all-away team should win about 0.3 per road game", func() {
				So(teamForecast(summary, "charlie").MeanWins, ShouldAlmostEqual, 0.6, 0.15)
			})
		})
	})

	Convey("Given an outcome source that fails exactly once", t, func() {
		sim := simulate.New(
			simulate.WithRuns(100),
			simulate.WithWorkers(1), // sequential so the failing call lands in a known run
			simulate.WithSeed(42),
		)
		calls := 0
		flaky := func(ctx context.Context, m model.Matchup) (model.OutcomeDistribution, error) {
			calls++
			if calls == 14 { // second game of run 4
				return model.OutcomeDistribution{}, fmt.Errorf("embedding unavailable for %s", m.AwayTeam)
			}
			return fixedOutcome(0.6, 2.0, 48)(ctx, m)
		}

		Convey("When simulating", func() {
			summary, err := sim.Simulate(context.Background(), threeTeamSchedule(), flaky)

			Convey("Then the batch should complete with one dropped run", func() {
				So(err, ShouldBeNil)
				So(summary.CompletedRuns, ShouldEqual, 99)
				So(summary.DroppedRuns, ShouldEqual, 1)
				So(len(summary.Failures), ShouldEqual, 1)
				So(summary.Failures[0].Run, ShouldEqual, 4)
				So(summary.Failures[0].Reason, ShouldContainSubstring, "embedding unavailable")
			})
		})
	})

	Convey("Given an outcome source that never answers", t, func() {
		sim := simulate.New(
			simulate.WithRuns(3),
			simulate.WithWorkers(3),
			simulate.WithSeed(1),
			simulate.WithRunTimeout(20*time.Millisecond),
		)
		stuck := func(ctx context.Context, _ model.Matchup) (model.OutcomeDistribution, error) {
			<-ctx.Done()
			return model.OutcomeDistribution{}, ctx.Err()
		}

		Convey("When every run times out", func() {
			summary, err := sim.Simulate(context.Background(), threeTeamSchedule(), stuck)

			Convey("Then the simulation should report total failure", func() {
				So(errors.Is(err, simulate.ErrAllRunsFailed), ShouldBeTrue)
				So(summary.CompletedRuns, ShouldEqual, 0)
				So(summary.DroppedRuns, ShouldEqual, 3)
			})
		})
	})

	Convey("Given invalid inputs", t, func() {
		sim := simulate.New()

		Convey("Then an empty schedule should be rejected", func() {
			_, err := sim.Simulate(context.Background(), nil, fixedOutcome(0.5, 0, 45))
			So(errors.Is(err, simulate.ErrEmptySchedule), ShouldBeTrue)
		})

		Convey("Then a nil outcome function should be rejected", func() {
			_, err := sim.Simulate(context.Background(), threeTeamSchedule(), nil)
			So(errors.Is(err, simulate.ErrNoOutcomeSource), ShouldBeTrue)
		})
	})
}
