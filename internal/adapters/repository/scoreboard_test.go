package repository_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/wrestlerank/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoreboard(t *testing.T) {
	Convey("Given a scoreboard", t, func() {
		ctx := context.Background()
		b := repository.NewScoreboard()
		So(b.Upsert(ctx, "a", 10), ShouldBeNil)
		So(b.Upsert(ctx, "b", 30), ShouldBeNil)
		So(b.Upsert(ctx, "c", 30), ShouldBeNil)
		So(b.Upsert(ctx, "d", -4.5), ShouldBeNil)

		Convey("Then TopN orders by score then id with shared ranks", func() {
			top, err := b.TopN(ctx, 3)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 3)
			So(top[0].EntityID, ShouldEqual, "b")
			So(top[1].EntityID, ShouldEqual, "c")
			So(top[0].Rank, ShouldEqual, 1)
			So(top[1].Rank, ShouldEqual, 1)
			So(top[2].Rank, ShouldEqual, 3)
		})

		Convey("Then Rank uses competition ranking", func() {
			e, err := b.Rank(ctx, "a")
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 3)
			last, _ := b.Rank(ctx, "d")
			So(last.Rank, ShouldEqual, 4)
		})

		Convey("When a score is updated", func() {
			So(b.Upsert(ctx, "d", 100), ShouldBeNil)

			Convey("Then the entity moves and the count is unchanged", func() {
				e, _ := b.Rank(ctx, "d")
				So(e.Rank, ShouldEqual, 1)
				So(b.Count(ctx), ShouldEqual, 4)
			})
		})

		Convey("Then invalid input is rejected", func() {
			So(errors.Is(b.Upsert(ctx, "x", math.NaN()), repository.ErrInvalidScore), ShouldBeTrue)
			_, err := b.TopN(ctx, 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			_, err = b.Rank(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
