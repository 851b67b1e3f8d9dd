package worker

import (
	"github.com/okian/wrestlerank/pkg/logger"
)

// Option applies a configuration option to an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker. Without it the global
// logger is used, which needs logger.Init.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.base = l
		}
	}
}

// WithPending releases a job's coalescing key when a worker picks it up.
func WithPending(p Pending) Option {
	return func(w *InMemoryWorker) {
		if p != nil {
			w.pending = p
		}
	}
}
