package service

import (
	"time"

	"github.com/okian/wrestlerank/internal/adapters/graphdb"
	"github.com/okian/wrestlerank/internal/adapters/lock"
	"github.com/okian/wrestlerank/internal/adapters/repository"
	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/internal/domain/optimizer"
	"github.com/okian/wrestlerank/internal/domain/powerscore"
	"github.com/okian/wrestlerank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. The default is in-memory.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithLocker sets the per weight class lock. The default is in-process.
func WithLocker(l lock.Locker) Option {
	return func(svc *Service) {
		if l != nil {
			svc.locker = l
		}
	}
}

// WithGraphOptions configures the relationship builder.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(svc *Service) {
		svc.graphOpts = append(svc.graphOpts, opts...)
	}
}

// WithOptimizerOptions configures every optimizer run.
func WithOptimizerOptions(opts ...optimizer.Option) Option {
	return func(svc *Service) {
		svc.optOpts = append(svc.optOpts, opts...)
	}
}

// WithScoringOptions configures the power score engine.
func WithScoringOptions(opts ...powerscore.Option) Option {
	return func(svc *Service) {
		svc.scoreOpts = append(svc.scoreOpts, opts...)
	}
}

// WithSeed sets the default optimizer seed.
func WithSeed(seed int64) Option {
	return func(svc *Service) {
		svc.seed = seed
	}
}

// WithIncludeAdjacent lets neighbouring weight classes supply common
// opponents by default.
func WithIncludeAdjacent(on bool) Option {
	return func(svc *Service) {
		svc.includeAdjacent = on
	}
}

// WithWorkerCount sets the number of pipeline workers.
func WithWorkerCount(count int) Option {
	return func(svc *Service) {
		if count > 0 {
			svc.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending jobs.
func WithQueueSize(size int) Option {
	return func(svc *Service) {
		if size > 0 {
			svc.queueSize = size
		}
	}
}

// WithExporter enables ExportGraph.
func WithExporter(e *graphdb.Exporter) Option {
	return func(svc *Service) {
		svc.exporter = e
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// WithClock sets the clock that dates rankings.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}
