package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/wrestlerank/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func validMatch() model.MatchRecord {
	return model.MatchRecord{
		ID:          "m1",
		WeightClass: "157",
		Date:        time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC),
		EntityA:     "a",
		EntityB:     "b",
		Winner:      "a",
		Result:      model.ResultDecision,
	}
}

func TestMatchRecordValidate(t *testing.T) {
	convey.Convey("Given a match record", t, func() {
		convey.Convey("When every field is present", func() {
			m := validMatch()

			convey.Convey("Then it validates and exposes both sides", func() {
				convey.So(m.Validate(), convey.ShouldBeNil)
				convey.So(m.Loser(), convey.ShouldEqual, "b")
				convey.So(m.Opponent("b"), convey.ShouldEqual, "a")
				convey.So(m.Won("a"), convey.ShouldBeTrue)
				convey.So(m.Involves("c"), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the winner is missing or foreign", func() {
			noWinner := validMatch()
			noWinner.Winner = ""
			foreign := validMatch()
			foreign.Winner = "z"

			convey.Convey("Then validation reports a malformed record", func() {
				convey.So(errors.Is(noWinner.Validate(), model.ErrMalformedRecord), convey.ShouldBeTrue)
				convey.So(errors.Is(foreign.Validate(), model.ErrMalformedRecord), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a participant is missing or duplicated", func() {
			missing := validMatch()
			missing.EntityB = ""
			self := validMatch()
			self.EntityB = "a"

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(missing.Validate(), model.ErrMalformedRecord), convey.ShouldBeTrue)
				convey.So(errors.Is(self.Validate(), model.ErrMalformedRecord), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the date or result type is missing", func() {
			noDate := validMatch()
			noDate.Date = time.Time{}
			noResult := validMatch()
			noResult.Result = model.ResultUnknown

			convey.Convey("Then validation fails", func() {
				convey.So(noDate.Validate(), convey.ShouldNotBeNil)
				convey.So(noResult.Validate(), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestParseResult(t *testing.T) {
	convey.Convey("Given raw result strings", t, func() {
		cases := []struct {
			raw    string
			want   model.ResultType
			margin float64
		}{
			{"Dec 4-2", model.ResultDecision, 2},
			{"SV-1 3-1", model.ResultDecision, 2},
			{"MD 12-3", model.ResultMajorDecision, 9},
			{"TF 18-2 4:10", model.ResultTechFall, 16},
			{"Fall 1:37", model.ResultFall, -1},
			{"F 0:45", model.ResultFall, -1},
			{"FF", model.ResultForfeit, -1},
			{"MFF", model.ResultMedicalForfeit, -1},
			{"Injury Default", model.ResultMedicalForfeit, -1},
			{"DQ", model.ResultDisqualification, -1},
			{"NC", model.ResultNoContest, -1},
		}

		convey.Convey("When each is parsed", func() {
			convey.Convey("Then the type and margin are recovered", func() {
				for _, c := range cases {
					got, err := model.ParseResult(c.raw)
					convey.So(err, convey.ShouldBeNil)
					convey.So(got.Type, convey.ShouldEqual, c.want)
					if c.margin >= 0 {
						convey.So(got.Margin, convey.ShouldNotBeNil)
						convey.So(*got.Margin, convey.ShouldEqual, c.margin)
					} else {
						convey.So(got.Margin, convey.ShouldBeNil)
					}
				}
			})
		})

		convey.Convey("When a fall carries a time", func() {
			got, err := model.ParseResult("Fall 1:37")

			convey.Convey("Then the pin time is parsed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.PinTime, convey.ShouldNotBeNil)
				convey.So(*got.PinTime, convey.ShouldEqual, 97*time.Second)
			})
		})

		convey.Convey("When the string is unrecognised", func() {
			_, err := model.ParseResult("???")

			convey.Convey("Then a malformed record error is returned", func() {
				convey.So(errors.Is(err, model.ErrMalformedRecord), convey.ShouldBeTrue)
			})
		})
	})
}

func TestResultTypeSemantics(t *testing.T) {
	convey.Convey("Given the result types", t, func() {
		convey.Convey("Then no contests produce no edge", func() {
			convey.So(model.ResultNoContest.ProducesEdge(), convey.ShouldBeFalse)
			convey.So(model.ResultForfeit.ProducesEdge(), convey.ShouldBeTrue)
		})

		convey.Convey("Then medical forfeits are excluded from inference", func() {
			convey.So(model.ResultMedicalForfeit.CountsForInference(), convey.ShouldBeFalse)
			convey.So(model.ResultFall.CountsForInference(), convey.ShouldBeTrue)
		})

		convey.Convey("Then names round trip", func() {
			for _, r := range []model.ResultType{model.ResultDecision, model.ResultTechFall, model.ResultNoContest} {
				parsed, err := model.ParseResultType(r.String())
				convey.So(err, convey.ShouldBeNil)
				convey.So(parsed, convey.ShouldEqual, r)
			}
		})
	})
}

func TestMatchStatus(t *testing.T) {
	convey.Convey("Given the processing state machine", t, func() {
		convey.So(model.StatusUnprocessed.CanTransition(model.StatusProcessed), convey.ShouldBeTrue)
		convey.So(model.StatusProcessed.CanTransition(model.StatusUnprocessed), convey.ShouldBeTrue)
		convey.So(model.StatusProcessed.CanTransition(model.StatusProcessed), convey.ShouldBeFalse)
	})
}

func TestRankingResult(t *testing.T) {
	convey.Convey("Given a ranking result", t, func() {
		r := model.RankingResult{
			WeightClass: "157",
			Order:       []string{"x", "y", "z"},
			Generated:   time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC),
			Algorithm:   model.AlgorithmOptimal,
		}

		convey.Convey("Then the tag carries date and algorithm", func() {
			convey.So(r.Tag(), convey.ShouldEqual, "030925-pagerank_mfas_sa_ls")
		})

		convey.Convey("Then ranks are 1-based", func() {
			convey.So(r.Ranks(), convey.ShouldResemble, map[string]int{"x": 1, "y": 2, "z": 3})
		})
	})
}
