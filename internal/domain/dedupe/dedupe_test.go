package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/wrestlerank/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, int64(0))

		Convey("When a key is recorded", func() {
			seen := d.SeenAndRecord(ctx, "pipeline/157")

			Convey("Then it is new and pending", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, int64(1))
				So(d.Pending(ctx), ShouldResemble, []string{"pipeline/157"})
			})

			Convey("Then a second request for it is coalesced", func() {
				So(d.SeenAndRecord(ctx, "pipeline/157"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, int64(1))
			})

			Convey("Then other classes are independent", func() {
				So(d.SeenAndRecord(ctx, "pipeline/165"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "build/157"), ShouldBeFalse)
				So(d.Pending(ctx), ShouldResemble, []string{"build/157", "pipeline/157", "pipeline/165"})
			})

			Convey("And it is unrecorded once a worker starts", func() {
				d.Unrecord(ctx, "pipeline/157")

				Convey("Then the next request queues again", func() {
					So(d.Size(), ShouldEqual, int64(0))
					So(d.SeenAndRecord(ctx, "pipeline/157"), ShouldBeFalse)
				})
			})
		})

		Convey("When an unknown key is unrecorded", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, int64(0))
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
		d.SeenAndRecord(ctx, "a")
		d.SeenAndRecord(ctx, "b")

		Convey("When it is full", func() {
			first := d.SeenAndRecord(ctx, "c")
			second := d.SeenAndRecord(ctx, "c")

			Convey("Then new keys pass through uncoalesced", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeFalse)
				So(d.Size(), ShouldEqual, int64(2))
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 10000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i))
		}
		So(d.Size(), ShouldEqual, int64(10000))
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given many producers racing on one key", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		var fresh atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "pipeline/157") {
					fresh.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins", func() {
			So(fresh.Load(), ShouldEqual, int32(1))
			So(d.Size(), ShouldEqual, int64(1))
		})
	})
}
