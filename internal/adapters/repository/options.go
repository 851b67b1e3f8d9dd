package repository

import (
	"github.com/okian/wrestlerank/internal/domain/model"
)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithCommitHook installs a hook run inside CommitBatch after validation and
// before any change is applied. A non-nil return aborts the batch. Tests use
// it to simulate a crash mid-batch.
func WithCommitHook(hook func(model.Batch) error) MemoryOption {
	return func(s *MemoryStore) {
		s.commitHook = hook
	}
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithMaxConns caps the pgx pool size.
func WithMaxConns(n int32) PostgresOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

// WithRunMigrations applies the embedded migrations on connect.
func WithRunMigrations(enabled bool) PostgresOption {
	return func(s *PostgresStore) {
		s.migrate = enabled
	}
}
