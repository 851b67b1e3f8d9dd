package lock

import (
	"time"

	"github.com/okian/wrestlerank/pkg/logger"
)

// Default lock configuration.
const (
	DefaultTTL       = 5 * time.Minute
	DefaultWait      = 30 * time.Second
	DefaultKeyPrefix = "wrestlerank:lock:"

	minBackoff = 10 * time.Millisecond
	maxBackoff = 500 * time.Millisecond
)

// Option configures a KeyedMutex.
type Option func(*KeyedMutex)

// WithWait bounds how long Acquire blocks. Zero waits until ctx is done.
func WithWait(d time.Duration) Option {
	return func(m *KeyedMutex) {
		if d >= 0 {
			m.wait = d
		}
	}
}

// RedisOption configures a RedisLocker.
type RedisOption func(*RedisLocker)

// WithTTL sets the lease expiry. Leases must be released or extended
// before it passes.
func WithTTL(d time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithRedisWait bounds how long Acquire keeps retrying.
func WithRedisWait(d time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.wait = d
		}
	}
}

// WithKeyPrefix namespaces lock keys.
func WithKeyPrefix(p string) RedisOption {
	return func(l *RedisLocker) {
		if p != "" {
			l.prefix = p
		}
	}
}

// WithLogger sets the locker logger.
func WithLogger(log logger.Logger) RedisOption {
	return func(l *RedisLocker) {
		if log != nil {
			l.log = log
		}
	}
}
