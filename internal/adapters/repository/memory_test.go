package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/wrestlerank/internal/adapters/repository"
	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func match(id, class, a, b string, day int) model.MatchRecord {
	return model.MatchRecord{
		ID:          id,
		WeightClass: class,
		Date:        time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		EntityA:     a,
		EntityB:     b,
		Winner:      a,
		Result:      model.ResultDecision,
	}
}

func TestMemoryStoreMatches(t *testing.T) {
	convey.Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore()

		convey.Convey("When the same records are upserted twice", func() {
			n1, err1 := s.UpsertMatches(ctx, []model.MatchRecord{match("m1", "157", "a", "b", 1), match("m2", "165", "c", "d", 2)})
			n2, err2 := s.UpsertMatches(ctx, []model.MatchRecord{match("m1", "157", "a", "b", 1)})

			convey.Convey("Then the second call is a no-op", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(n1, convey.ShouldEqual, 2)
				convey.So(n2, convey.ShouldEqual, 0)

				classes, _ := s.WeightClasses(ctx)
				convey.So(classes, convey.ShouldResemble, []string{"157", "165"})
			})
		})

		convey.Convey("When an id is reused with different content", func() {
			_, _ = s.UpsertMatches(ctx, []model.MatchRecord{match("m1", "157", "a", "b", 1)})
			changed := match("m1", "157", "a", "b", 1)
			changed.Winner = "b"
			_, err := s.UpsertMatches(ctx, []model.MatchRecord{changed})

			convey.Convey("Then the upsert is rejected", func() {
				convey.So(errors.Is(err, repository.ErrConflictingMatch), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When matches are filtered by status", func() {
			_, _ = s.UpsertMatches(ctx, []model.MatchRecord{match("m2", "157", "a", "b", 2), match("m1", "157", "c", "d", 1)})
			unprocessed := model.StatusUnprocessed
			got, err := s.Matches(ctx, []string{"157"}, &unprocessed)

			convey.Convey("Then they come back in date order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldHaveLength, 2)
				convey.So(got[0].Record.ID, convey.ShouldEqual, "m1")
			})
		})
	})
}

func TestMemoryStoreCommitBatch(t *testing.T) {
	convey.Convey("Given stored matches", t, func() {
		ctx := context.Background()
		fail := false
		s := repository.NewMemoryStore(repository.WithCommitHook(func(model.Batch) error {
			if fail {
				return repository.ErrInjectedFailure
			}
			return nil
		}))
		_, _ = s.UpsertMatches(ctx, []model.MatchRecord{match("m1", "157", "a", "b", 1), match("m2", "157", "a", "c", 2)})
		batch := model.Batch{
			WeightClass: "157",
			MatchIDs:    []string{"m1", "m2"},
			Deltas: []model.Tally{
				{WeightClass: "157", Loser: "b", Winner: "a", Count: 1, InferCount: 1, Weight: 1},
				{WeightClass: "157", Loser: "c", Winner: "a", Count: 1, InferCount: 1, Weight: 1},
			},
		}

		convey.Convey("When the commit hook fails", func() {
			fail = true
			err := s.CommitBatch(ctx, batch)

			convey.Convey("Then nothing is applied", func() {
				convey.So(errors.Is(err, repository.ErrInjectedFailure), convey.ShouldBeTrue)
				st, _ := s.Stats(ctx)
				convey.So(st.Processed, convey.ShouldEqual, 0)
				convey.So(st.Tallies, convey.ShouldEqual, 0)
			})

			convey.Convey("Then a retry succeeds", func() {
				fail = false
				convey.So(s.CommitBatch(ctx, batch), convey.ShouldBeNil)
				st, _ := s.Stats(ctx)
				convey.So(st.Processed, convey.ShouldEqual, 2)
				convey.So(st.Tallies, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the batch is committed twice", func() {
			first := s.CommitBatch(ctx, batch)
			second := s.CommitBatch(ctx, batch)

			convey.Convey("Then the second commit is rejected and tallies are unchanged", func() {
				convey.So(first, convey.ShouldBeNil)
				convey.So(errors.Is(second, repository.ErrAlreadyProcessed), convey.ShouldBeTrue)
				tallies, _ := s.Tallies(ctx, []string{"157"})
				convey.So(tallies, convey.ShouldHaveLength, 2)
				convey.So(tallies[0].Count, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a batch names an unknown match", func() {
			err := s.CommitBatch(ctx, model.Batch{WeightClass: "157", MatchIDs: []string{"m1", "nope"}})

			convey.Convey("Then the known match stays unprocessed", func() {
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
				processed := model.StatusProcessed
				got, _ := s.Matches(ctx, nil, &processed)
				convey.So(got, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the class is reset after a commit", func() {
			_ = s.CommitBatch(ctx, batch)
			err := s.Reset(ctx, []string{"157"})

			convey.Convey("Then tallies are gone and matches are unprocessed", func() {
				convey.So(err, convey.ShouldBeNil)
				st, _ := s.Stats(ctx)
				convey.So(st.Processed, convey.ShouldEqual, 0)
				convey.So(st.Tallies, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When tallies are replaced", func() {
			_ = s.CommitBatch(ctx, batch)
			err := s.ReplaceTallies(ctx, "157", []model.Tally{{Loser: "b", Winner: "a", Count: 3, Weight: 3}})

			convey.Convey("Then only the replacement remains", func() {
				convey.So(err, convey.ShouldBeNil)
				tallies, _ := s.Tallies(ctx, []string{"157"})
				convey.So(tallies, convey.ShouldHaveLength, 1)
				convey.So(tallies[0].WeightClass, convey.ShouldEqual, "157")
				convey.So(tallies[0].Count, convey.ShouldEqual, 3)
			})
		})
	})
}

func TestMemoryStoreRoster(t *testing.T) {
	convey.Convey("Given entities with and without ranks", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore()
		_ = s.UpsertEntities(ctx, []model.Entity{
			{ID: "z", WeightClass: "157"},
			{ID: "b", WeightClass: "157", Rank: 2},
			{ID: "a", WeightClass: "157", Rank: 1},
			{ID: "c", WeightClass: "157"},
			{ID: "x", WeightClass: "165", Rank: 1},
		})

		convey.Convey("Then the roster lists ranked entities first", func() {
			roster, err := s.Roster(ctx, "157")
			convey.So(err, convey.ShouldBeNil)
			ids := make([]string, len(roster))
			for i, e := range roster {
				ids[i] = e.ID
			}
			convey.So(ids, convey.ShouldResemble, []string{"a", "b", "c", "z"})
		})
	})
}

func TestMemoryStoreRankings(t *testing.T) {
	convey.Convey("Given a store without rankings", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore()

		convey.Convey("Then LatestRanking reports not found", func() {
			_, err := s.LatestRanking(ctx, "157")
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When two rankings are saved", func() {
			older := model.RankingResult{WeightClass: "157", Order: []string{"a", "b"}, Generated: time.Unix(100, 0)}
			newer := model.RankingResult{WeightClass: "157", Order: []string{"b", "a"}, Generated: time.Unix(200, 0)}
			_ = s.SaveRanking(ctx, newer)
			_ = s.SaveRanking(ctx, older)

			convey.Convey("Then the newest supersedes and history is kept", func() {
				latest, err := s.LatestRanking(ctx, "157")
				convey.So(err, convey.ShouldBeNil)
				convey.So(latest.Order, convey.ShouldResemble, []string{"b", "a"})

				hist, _ := s.Rankings(ctx, "157")
				convey.So(hist, convey.ShouldHaveLength, 2)
				convey.So(hist[0].Generated.Unix(), convey.ShouldEqual, int64(100))
			})
		})
	})
}
