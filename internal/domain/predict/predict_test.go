package predict_test

import (
	"errors"
	"testing"

	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/internal/domain/predict"
	. "github.com/smartystreets/goconvey/convey"
)

func emb(team string, values ...float64) model.Embedding {
	return model.Embedding{
		TeamSeason: model.TeamSeason{TeamID: team, Season: 2023},
		Values:     values,
	}
}

// obs builds an observation from embedding halves and a final score.
func obs(week int, homeVals, awayVals []float64, homePts, awayPts int) predict.Observation {
	g := model.Game{
		Season: 2023, Week: week,
		HomeTeam: "h", AwayTeam: "a",
		Completed:  true,
		HomePoints: homePts, AwayPoints: awayPts,
	}
	return predict.BuildObservation(g, emb("h", homeVals...), emb("a", awayVals...))
}

func referenceSet() []predict.Observation {
	return []predict.Observation{
		obs(1, []float64{2.0, 1.0}, []float64{-1.0, 0.0}, 35, 14),
		obs(2, []float64{1.5, 0.5}, []float64{-0.5, 0.2}, 28, 17),
		obs(3, []float64{1.0, 0.0}, []float64{0.0, 0.0}, 24, 21),
		obs(4, []float64{0.0, 0.0}, []float64{1.0, 0.5}, 17, 27),
		obs(5, []float64{-1.0, -0.5}, []float64{1.5, 1.0}, 10, 31),
		obs(6, []float64{-1.5, -1.0}, []float64{2.0, 1.0}, 7, 38),
	}
}

func TestHeadPredict(t *testing.T) {
	Convey("Given a head with a populated reference set", t, func() {
		h := predict.New(predict.WithNeighbors(3))
		So(h.SetReference(referenceSet()), ShouldBeNil)
		So(h.Size(), ShouldEqual, 6)

		strongHome := emb("strong", 1.8, 0.9)
		weakAway := emb("weak", -0.8, -0.1)
		mc := model.MatchupContext{Week: 4}

		Convey("When predicting a lopsided matchup", func() {
			dist, err := h.Predict(strongHome, weakAway, mc)
			So(err, ShouldBeNil)

			Convey("Then the home side should be favored consistently", func() {
				So(dist.Spread, ShouldBeGreaterThan, 0)
				So(dist.HomeWinProb, ShouldBeGreaterThan, 0.5)
				So(dist.HomeWinProb, ShouldBeLessThan, 1.0)
			})

			Convey("Then dispersion should respect the configured floors", func() {
				So(dist.SpreadStd, ShouldBeGreaterThanOrEqualTo, 3.0)
				So(dist.TotalStd, ShouldBeGreaterThanOrEqualTo, 6.0)
			})

			Convey("Then the sample should not be flagged low", func() {
				So(dist.LowSample, ShouldBeFalse)
				So(dist.SampleSize, ShouldBeGreaterThanOrEqualTo, 3)
			})
		})

		Convey("When predicting the mirror matchup", func() {
			dist, err := h.Predict(emb("weak", -1.2, -0.7), emb("strong", 1.8, 0.9), mc)
			So(err, ShouldBeNil)

			Convey("Then the away side should be favored consistently", func() {
				So(dist.Spread, ShouldBeLessThan, 0)
				So(dist.HomeWinProb, ShouldBeLessThan, 0.5)
				So(dist.HomeWinProb, ShouldBeGreaterThan, 0.0)
			})
		})

		Convey("When predicting the same matchup twice", func() {
			first, err := h.Predict(strongHome, weakAway, mc)
			So(err, ShouldBeNil)
			second, err := h.Predict(strongHome, weakAway, mc)
			So(err, ShouldBeNil)

			Convey("Then the results should be identical", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When the query dimensionality does not match", func() {
			_, err := h.Predict(emb("bad", 1.0), weakAway, mc)
			So(errors.Is(err, predict.ErrDimensionMismatch), ShouldBeTrue)
		})
	})

	Convey("Given fewer reference observations than k", t, func() {
		h := predict.New(predict.WithNeighbors(10))
		So(h.SetReference(referenceSet()[:2]), ShouldBeNil)

		Convey("When predicting", func() {
			dist, err := h.Predict(emb("x", 1.0, 0.5), emb("y", -0.5, 0.0), model.MatchupContext{Week: 2})
			So(err, ShouldBeNil)

			Convey("Then all available neighbors should be used and flagged low-sample", func() {
				So(dist.LowSample, ShouldBeTrue)
				So(dist.SampleSize, ShouldEqual, 2)
			})
		})
	})

	Convey("Given equidistant neighbors at the k-th position", t, func() {
		// Two observations mirrored around the query, hence equidistant.
		sets := []predict.Observation{
			obs(1, []float64{1.0, 0.0}, []float64{0.0, 0.0}, 30, 20),
			obs(1, []float64{-1.0, 0.0}, []float64{0.0, 0.0}, 20, 30),
		}
		h := predict.New(predict.WithNeighbors(1))
		So(h.SetReference(sets), ShouldBeNil)

		Convey("When predicting from the midpoint", func() {
			dist, err := h.Predict(emb("mid", 0.0, 0.0), emb("opp", 0.0, 0.0), model.MatchupContext{Week: 1})
			So(err, ShouldBeNil)

			Convey("Then both ties should be included rather than truncated", func() {
				So(dist.SampleSize, ShouldEqual, 2)
				So(dist.Spread, ShouldAlmostEqual, 0, 1e-9)
				So(dist.HomeWinProb, ShouldAlmostEqual, 0.5, 1e-9)
			})
		})
	})

	Convey("Given an empty reference set", t, func() {
		h := predict.New()

		Convey("Then Predict should fail with ErrEmptyReferenceSet", func() {
			_, err := h.Predict(emb("a", 1, 2), emb("b", 3, 4), model.MatchupContext{})
			So(errors.Is(err, predict.ErrEmptyReferenceSet), ShouldBeTrue)
		})
	})

	Convey("Given metric parsing", t, func() {
		Convey("Then known names should parse", func() {
			m, err := predict.ParseMetric("euclidean")
			So(err, ShouldBeNil)
			So(m, ShouldEqual, predict.Euclidean)

			m, err = predict.ParseMetric("l1")
			So(err, ShouldBeNil)
			So(m, ShouldEqual, predict.Manhattan)
		})

		Convey("Then unknown names should error", func() {
			_, err := predict.ParseMetric("cosine")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a Manhattan-metric head", t, func() {
		h := predict.New(predict.WithNeighbors(3), predict.WithMetric(predict.Manhattan))
		So(h.SetReference(referenceSet()), ShouldBeNil)

		Convey("Then predictions should still honor the consistency invariant", func() {
			dist, err := h.Predict(emb("s", 1.8, 0.9), emb("w", -0.8, -0.1), model.MatchupContext{Week: 4})
			So(err, ShouldBeNil)
			So(dist.Spread > 0, ShouldEqual, dist.HomeWinProb > 0.5)
		})
	})
}
