package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/wrestlerank/pkg/logger"
	"github.com/okian/wrestlerank/pkg/metrics"
)

const backendRedis = "redis"

var (
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	extendScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// RedisLocker is a Locker shared by every process pointed at the same
// Redis. Leases are SET NX values with a random token and an expiry.
type RedisLocker struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
	log    logger.Logger
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker wraps rdb.
func NewRedisLocker(rdb redis.UniversalClient, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		rdb:    rdb,
		prefix: DefaultKeyPrefix,
		ttl:    DefaultTTL,
		wait:   DefaultWait,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// TryAcquire makes a single attempt.
func (l *RedisLocker) TryAcquire(ctx context.Context, key string) (*RedisLease, error) {
	k := l.prefix + key
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	l.log.Debug(ctx, "lock acquired", logger.String("key", k))
	return &RedisLease{rdb: l.rdb, key: k, token: token, ttl: l.ttl, log: l.log}, nil
}

// Acquire retries with capped exponential backoff until the wait elapses.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	start := time.Now()
	deadline := start.Add(l.wait)
	backoff := minBackoff
	contended := false

	for {
		lease, err := l.TryAcquire(ctx, key)
		if err == nil {
			metrics.RecordLockWait(backendRedis, float64(time.Since(start).Milliseconds()))
			return lease, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		if !contended {
			contended = true
			metrics.RecordLockContention(backendRedis)
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s after %s", ErrLockNotAcquired, key, l.wait)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// RedisLease is a lease held in Redis.
type RedisLease struct {
	rdb   redis.UniversalClient
	key   string
	token string
	ttl   time.Duration
	log   logger.Logger
}

var _ Renewable = (*RedisLease)(nil)

// TTL returns the expiry the lease was taken with.
func (r *RedisLease) TTL() time.Duration { return r.ttl }

// Release deletes the key if this lease still owns it.
func (r *RedisLease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, r.rdb, []string{r.key}, r.token).Int64()
	if err != nil {
		return fmt.Errorf("release %s: %w", r.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, r.key)
	}
	r.log.Debug(ctx, "lock released", logger.String("key", r.key))
	return nil
}

// Extend pushes the expiry out to ttl from now.
func (r *RedisLease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, r.rdb, []string{r.key}, r.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend %s: %w", r.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, r.key)
	}
	return nil
}
