package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/wrestlerank/pkg/metrics"
)

const backendLocal = "local"

// KeyedMutex is an in-process Locker. Each key owns a one-slot semaphore
// that is dropped once nobody holds or waits for it.
type KeyedMutex struct {
	mu   sync.Mutex
	keys map[string]*slot
	wait time.Duration
}

type slot struct {
	sem  chan struct{}
	refs int
}

var _ Locker = (*KeyedMutex)(nil)

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex(opts ...Option) *KeyedMutex {
	m := &KeyedMutex{keys: make(map[string]*slot), wait: DefaultWait}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *KeyedMutex) ref(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.keys[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		m.keys[key] = s
	}
	s.refs++
	return s
}

func (m *KeyedMutex) unref(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.keys, key)
	}
}

// Acquire implements Locker.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (Lease, error) {
	s := m.ref(key)
	start := time.Now()

	select {
	case s.sem <- struct{}{}:
		metrics.RecordLockWait(backendLocal, 0)
		return &localLease{m: m, key: key, s: s}, nil
	default:
		metrics.RecordLockContention(backendLocal)
	}

	waitCtx := ctx
	if m.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.wait)
		defer cancel()
	}
	select {
	case s.sem <- struct{}{}:
		metrics.RecordLockWait(backendLocal, float64(time.Since(start).Milliseconds()))
		return &localLease{m: m, key: key, s: s}, nil
	case <-waitCtx.Done():
		m.unref(key, s)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s after %s", ErrLockNotAcquired, key, m.wait)
	}
}

// Len returns the number of keys currently held or awaited.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

type localLease struct {
	m    *KeyedMutex
	key  string
	s    *slot
	once sync.Once
}

func (l *localLease) Release(context.Context) error {
	released := false
	l.once.Do(func() {
		<-l.s.sem
		l.m.unref(l.key, l.s)
		released = true
	})
	if !released {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, l.key)
	}
	return nil
}
