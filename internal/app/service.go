// Package service wires the ranking pipeline together: relationship
// building, power scoring and ranking optimization over a store, a per
// weight class lock and a worker pool for multi-class runs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/wrestlerank/internal/adapters/graphdb"
	"github.com/okian/wrestlerank/internal/adapters/lock"
	"github.com/okian/wrestlerank/internal/adapters/mq/queue"
	"github.com/okian/wrestlerank/internal/adapters/mq/worker"
	"github.com/okian/wrestlerank/internal/adapters/repository"
	"github.com/okian/wrestlerank/internal/domain/dedupe"
	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/internal/domain/optimizer"
	"github.com/okian/wrestlerank/internal/domain/powerscore"
	"github.com/okian/wrestlerank/pkg/logger"
)

const defaultQueueSize = 256

// Service is the library surface of the ranking pipeline.
type Service struct {
	store           repository.Store
	locker          lock.Locker
	graphOpts       []graph.Option
	optOpts         []optimizer.Option
	scoreOpts       []powerscore.Option
	seed            int64
	includeAdjacent bool
	workerCount     int
	queueSize       int
	exporter        *graphdb.Exporter
	logger          logger.Logger
	now             func() time.Time

	builder *graph.Builder
	scorer  *powerscore.Engine

	boardsMu sync.RWMutex
	boards   map[string]*repository.Scoreboard

	queue  queue.Queue
	dedupe dedupe.Deduper

	runMu  sync.Mutex
	pool   *worker.Pool
	cancel context.CancelFunc
}

// New creates a service. Without options it runs on an in-memory store
// with an in-process lock.
func New(opts ...Option) *Service {
	s := &Service{
		seed:        optimizer.DefaultSeed,
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		now:         time.Now,
		boards:      make(map[string]*repository.Scoreboard),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}

	gopts := append([]graph.Option{graph.WithLogger(s.logger.Named("graph"))}, s.graphOpts...)
	s.builder = graph.NewBuilder(s.store, gopts...)
	s.scorer = powerscore.New(s.scoreOpts...)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.dedupe = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.queueSize))
	return s
}

// Store returns the backing store.
func (s *Service) Store() repository.Store { return s.store }

// Start launches the worker pool used by Submit and RunAll. The pool
// outlives ctx; call Stop to end it.
func (s *Service) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.pool != nil {
		return nil
	}
	if s.queue.IsClosed() {
		return ErrQueueClosed
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = worker.NewPool(s.workerCount, s.queue, s,
		worker.WithPending(s.dedupe),
		worker.WithLogger(s.logger.Named("worker")))
	s.pool.Start(runCtx)
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize))
	return nil
}

// Stop drains pending jobs and stops the workers. Jobs still queued when
// ctx expires are answered with worker.ErrStopped.
func (s *Service) Stop(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.pool == nil {
		return nil
	}
	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.pool = nil
	if err != nil {
		s.logger.Warn(ctx, "worker pool stopped early", logger.Error(err))
		return fmt.Errorf("stop service: %w", err)
	}
	s.logger.Info(ctx, "service stopped")
	return nil
}

func (s *Service) started() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.pool != nil
}

// board returns the power score board of class, creating it on first use.
func (s *Service) board(class string) *repository.Scoreboard {
	s.boardsMu.RLock()
	b, ok := s.boards[class]
	s.boardsMu.RUnlock()
	if ok {
		return b
	}
	s.boardsMu.Lock()
	defer s.boardsMu.Unlock()
	if b, ok = s.boards[class]; !ok {
		b = repository.NewScoreboard()
		s.boards[class] = b
	}
	return b
}

// ranksFor returns the rank snapshot scoring runs against: the latest
// published ranking, or the roster ranks when none exists.
func (s *Service) ranksFor(ctx context.Context, class string) (map[string]int, error) {
	latest, err := s.store.LatestRanking(ctx, class)
	switch {
	case err == nil:
		return latest.Ranks(), nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load latest ranking for %s: %w", class, err)
	}
	roster, err := s.store.Roster(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("load roster for %s: %w", class, err)
	}
	ranks := make(map[string]int, len(roster))
	for _, e := range roster {
		if e.Ranked() {
			ranks[e.ID] = e.Rank
		}
	}
	return ranks, nil
}
