// Package lock serializes work per weight class. At most one builder or
// optimizer may hold a class at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Sentinel kinds for lock errors.
var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrLockNotHeld     = errors.New("lock not held")
	ErrLockLost        = errors.New("lock lost while held")
)

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive leases keyed by weight class.
type Locker interface {
	// Acquire blocks until key is free, the configured wait elapses or ctx
	// is done. A timeout yields ErrLockNotAcquired.
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Renewable is a lease that expires unless it is extended in time.
type Renewable interface {
	Lease
	TTL() time.Duration
	Extend(ctx context.Context, ttl time.Duration) error
}

type multiLease []Lease

// Release frees the leases in reverse acquisition order.
func (m multiLease) Release(ctx context.Context) error {
	var errs []error
	for i := len(m) - 1; i >= 0; i-- {
		if err := m[i].Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AcquireAll locks every key in sorted order so that overlapping requests
// cannot deadlock. On failure the keys taken so far are released.
func AcquireAll(ctx context.Context, l Locker, keys []string) (Lease, error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make(multiLease, 0, len(sorted))
	var prev string
	for i, k := range sorted {
		if i > 0 && k == prev {
			continue
		}
		prev = k
		lease, err := l.Acquire(ctx, k)
		if err != nil {
			_ = held.Release(context.WithoutCancel(ctx))
			return nil, err
		}
		held = append(held, lease)
	}
	return held, nil
}

// WithLock runs fn while holding every key. Expiring leases are extended
// every third of their TTL; if an extension fails, fn's context is
// canceled and the error wraps ErrLockLost.
func WithLock(ctx context.Context, l Locker, keys []string, fn func(context.Context) error) (err error) {
	lease, err := AcquireAll(ctx, l, keys)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil && err == nil {
			err = rerr
		}
	}()

	renew := renewables(lease)
	if len(renew) == 0 {
		return fn(ctx)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, r := range renew {
		wg.Add(1)
		go func(r Renewable) {
			defer wg.Done()
			keepAlive(runCtx, r, stop, cancel)
		}(r)
	}

	err = fn(runCtx)
	close(stop)
	wg.Wait()
	cause := context.Cause(runCtx)
	cancel(nil)
	if errors.Is(cause, ErrLockLost) {
		return errors.Join(cause, err)
	}
	return err
}

func renewables(lease Lease) []Renewable {
	leases := []Lease{lease}
	if m, ok := lease.(multiLease); ok {
		leases = m
	}
	var out []Renewable
	for _, l := range leases {
		if r, ok := l.(Renewable); ok && r.TTL() > 0 {
			out = append(out, r)
		}
	}
	return out
}

func keepAlive(ctx context.Context, r Renewable, stop <-chan struct{}, cancel context.CancelCauseFunc) {
	ttl := r.TTL()
	t := time.NewTicker(max(ttl/3, time.Millisecond))
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			if err := r.Extend(ctx, ttl); err != nil {
				cancel(fmt.Errorf("%w: %w", ErrLockLost, err))
				return
			}
		}
	}
}
