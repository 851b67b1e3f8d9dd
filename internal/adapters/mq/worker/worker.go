// Package worker runs per-weight-class jobs from the queue. Jobs for
// different classes run in parallel; serialization within a class is the
// handler's business.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/pkg/logger"
	"github.com/okian/wrestlerank/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Handler executes one job.
type Handler interface {
	Handle(ctx context.Context, j model.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, j model.Job) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, j model.Job) error { return f(ctx, j) } //nolint:gocritic // hugeParam

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan model.Job
}

// Pending is the part of the deduper a worker needs.
type Pending interface {
	Unrecord(ctx context.Context, key string)
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	pending Pending
	name    string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	base   logger.Logger
	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from queue.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		handler:  handler,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.base == nil {
		w.base = logger.Get()
	}
	w.logger = w.base.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			w.process(ctx, j)
		}
	}
}

// Shutdown implements Worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j model.Job) { //nolint:gocritic // hugeParam
	if w.pending != nil {
		w.pending.Unrecord(ctx, j.Key())
	}
	metrics.UpdateWorkerActive(1)
	defer metrics.UpdateWorkerActive(-1)

	start := time.Now()
	err := w.handler.Handle(ctx, j)
	took := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		metrics.RecordErrorByComponent("worker", string(j.Kind))
		w.logger.Error(ctx, "job failed",
			logger.String("job_id", j.ID),
			logger.String("kind", string(j.Kind)),
			logger.String("weight_class", j.WeightClass),
			logger.Error(err))
	} else {
		w.logger.Debug(ctx, "job done",
			logger.String("job_id", j.ID),
			logger.String("weight_class", j.WeightClass),
			logger.Duration("took", took))
	}
	metrics.RecordJobProcessed(status, float64(took.Milliseconds()))
	reply(j, err, took)
}

func reply(j model.Job, err error, took time.Duration) { //nolint:gocritic // hugeParam
	if j.Reply == nil {
		return
	}
	select {
	case j.Reply <- model.JobOutcome{JobID: j.ID, WeightClass: j.WeightClass, Kind: j.Kind, Err: err, Took: took}:
	default:
	}
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates count workers. A count below one means one per CPU.
// Options apply to every worker.
func NewPool(count int, queue Queue, handler Handler, opts ...Option) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, count),
		queue:   queue,
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, handler, wopts...)
	}
	p.logger = p.workers[0].base.Named("worker-pool")
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and lets the workers drain it. If ctx (or the
// pool timeout) expires first, the workers are stopped and every job still
// queued is answered with ErrStopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	closer, closable := p.queue.(interface{ Close() error })
	if closable {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	timedOut := false
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			timedOut = true
		}
		if timedOut {
			break
		}
	}
	if !timedOut {
		return nil
	}

	for _, w := range p.workers {
		w.stopOnce.Do(func() { close(w.shutdown) })
	}
	abandoned := 0
	if closable {
		for j := range p.queue.Dequeue() {
			reply(j, ErrStopped, 0)
			abandoned++
		}
	}
	p.logger.Warn(ctx, "worker pool stopped before draining", logger.Int("abandoned", abandoned))
	return fmt.Errorf("%w: %d jobs abandoned", ErrStopped, abandoned)
}
