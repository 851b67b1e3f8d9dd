package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/wrestlerank/internal/adapters/lock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKeyedMutex(t *testing.T) {
	Convey("Given a keyed mutex", t, func() {
		ctx := context.Background()
		m := lock.NewKeyedMutex(lock.WithWait(50 * time.Millisecond))

		Convey("When many goroutines work on the same key", func() {
			var active, peak int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = lock.WithLock(ctx, m, []string{"157"}, func(context.Context) error {
						n := atomic.AddInt32(&active, 1)
						for {
							p := atomic.LoadInt32(&peak)
							if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
								break
							}
						}
						time.Sleep(time.Millisecond)
						atomic.AddInt32(&active, -1)
						return nil
					})
				}()
			}
			wg.Wait()

			Convey("Then at most one holds it at a time", func() {
				So(atomic.LoadInt32(&peak), ShouldEqual, int32(1))
				So(m.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a key is held", func() {
			held, err := m.Acquire(ctx, "157")
			So(err, ShouldBeNil)

			Convey("Then other keys stay free", func() {
				other, err := m.Acquire(ctx, "165")
				So(err, ShouldBeNil)
				So(other.Release(ctx), ShouldBeNil)
			})

			Convey("Then a second acquire times out", func() {
				_, err := m.Acquire(ctx, "157")
				So(errors.Is(err, lock.ErrLockNotAcquired), ShouldBeTrue)
			})

			Convey("Then a cancelled context wins over the wait", func() {
				cctx, cancel := context.WithCancel(ctx)
				cancel()
				_, err := m.Acquire(cctx, "157")
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})

			Convey("Then releasing twice is reported", func() {
				So(held.Release(ctx), ShouldBeNil)
				So(errors.Is(held.Release(ctx), lock.ErrLockNotHeld), ShouldBeTrue)
				So(m.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestAcquireAll(t *testing.T) {
	Convey("Given overlapping key sets", t, func() {
		ctx := context.Background()
		m := lock.NewKeyedMutex(lock.WithWait(time.Second))

		Convey("When two callers lock them in opposite orders", func() {
			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, keys := range [][]string{{"149", "157", "165"}, {"165", "157", "149", "157"}} {
				wg.Add(1)
				go func(i int, keys []string) {
					defer wg.Done()
					for n := 0; n < 20 && errs[i] == nil; n++ {
						errs[i] = lock.WithLock(ctx, m, keys, func(context.Context) error { return nil })
					}
				}(i, keys)
			}
			wg.Wait()

			Convey("Then neither deadlocks", func() {
				So(errs[0], ShouldBeNil)
				So(errs[1], ShouldBeNil)
				So(m.Len(), ShouldEqual, 0)
			})
		})

		Convey("When one key of the set is busy", func() {
			busy, _ := m.Acquire(ctx, "165")
			cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			_, err := lock.AcquireAll(cctx, m, []string{"157", "165"})

			Convey("Then the keys taken so far are released", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(busy.Release(ctx), ShouldBeNil)
				So(m.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the work fails", func() {
			boom := errors.New("boom")
			err := lock.WithLock(ctx, m, []string{"157"}, func(context.Context) error { return boom })

			Convey("Then the error is returned and the key is free", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				So(m.Len(), ShouldEqual, 0)
			})
		})
	})
}

// expiringLocker hands out leases that must be extended every ttl.
type expiringLocker struct {
	ttl     time.Duration
	extends atomic.Int32
	failAt  int32
}

func (l *expiringLocker) Acquire(context.Context, string) (lock.Lease, error) {
	return &expiringLease{l: l}, nil
}

type expiringLease struct{ l *expiringLocker }

func (e *expiringLease) Release(context.Context) error { return nil }
func (e *expiringLease) TTL() time.Duration            { return e.l.ttl }
func (e *expiringLease) Extend(context.Context, time.Duration) error {
	n := e.l.extends.Add(1)
	if e.l.failAt > 0 && n >= e.l.failAt {
		return lock.ErrLockNotHeld
	}
	return nil
}

func TestWithLockRenewal(t *testing.T) {
	Convey("Given leases that expire after a short TTL", t, func() {
		ctx := context.Background()

		Convey("When the work outlasts the TTL", func() {
			l := &expiringLocker{ttl: 30 * time.Millisecond}
			err := lock.WithLock(ctx, l, []string{"157", "165"}, func(context.Context) error {
				time.Sleep(120 * time.Millisecond)
				return nil
			})

			Convey("Then every lease is extended while the work runs", func() {
				So(err, ShouldBeNil)
				So(l.extends.Load(), ShouldBeGreaterThanOrEqualTo, int32(4))
			})
		})

		Convey("When an extension fails", func() {
			l := &expiringLocker{ttl: 30 * time.Millisecond, failAt: 2}
			canceled := false
			err := lock.WithLock(ctx, l, []string{"157"}, func(ctx context.Context) error {
				select {
				case <-ctx.Done():
					canceled = true
					return ctx.Err()
				case <-time.After(time.Second):
					return nil
				}
			})

			Convey("Then the work is canceled and the loss is reported", func() {
				So(canceled, ShouldBeTrue)
				So(errors.Is(err, lock.ErrLockLost), ShouldBeTrue)
				So(errors.Is(err, lock.ErrLockNotHeld), ShouldBeTrue)
			})
		})

		Convey("When the work ends before the first extension", func() {
			l := &expiringLocker{ttl: time.Minute}
			err := lock.WithLock(ctx, l, []string{"157"}, func(context.Context) error { return nil })

			Convey("Then nothing is extended", func() {
				So(err, ShouldBeNil)
				So(l.extends.Load(), ShouldEqual, int32(0))
			})
		})
	})
}
