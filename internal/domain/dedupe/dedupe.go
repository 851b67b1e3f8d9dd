// Package dedupe coalesces pending work. A key stays recorded from the
// moment a job is queued until a worker picks it up, so a second request
// for the same weight class in that window is folded into the first.
package dedupe

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/okian/wrestlerank/pkg/metrics"
)

const defaultMaxPending = 4096

// Deduper tracks pending job keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key is pending and records it if
	// not. It returns true when the caller's job duplicates a pending one.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key. Workers call it when they start a job and
	// producers call it when the enqueue that followed SeenAndRecord failed.
	Unrecord(ctx context.Context, key string)

	// Pending lists the recorded keys in sorted order.
	Pending(ctx context.Context) []string

	Size() int64
}

type inMemoryDeduper struct {
	mu      sync.Mutex
	pending map[string]struct{}
	max     int
	size    atomic.Int64
}

// NewInMemoryDeduper creates an empty deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{max: defaultMaxPending}
	for _, opt := range opts {
		opt(d)
	}
	d.pending = make(map[string]struct{})
	return d
}

// SeenAndRecord implements Deduper. Past the size bound new keys are let
// through without being recorded, so nothing is ever dropped, only left
// uncoalesced.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.pending[key]; ok {
		metrics.RecordJobCoalesced()
		return true
	}
	if d.max > 0 && len(d.pending) >= d.max {
		return false
	}
	d.pending[key] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pending[key]; ok {
		delete(d.pending, key)
		d.size.Add(-1)
	}
}

// Pending implements Deduper.
func (d *inMemoryDeduper) Pending(context.Context) []string {
	d.mu.Lock()
	out := make([]string, 0, len(d.pending))
	for k := range d.pending {
		out = append(out, k)
	}
	d.mu.Unlock()
	sort.Strings(out)
	return out
}

// Size returns the number of pending keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
