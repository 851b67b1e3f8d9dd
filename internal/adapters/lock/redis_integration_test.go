//go:build integration

package lock_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/okian/wrestlerank/internal/adapters/lock"
)

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisLocker(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	rdb, err := lock.Dial(ctx, addr, "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	a := lock.NewRedisLocker(rdb, lock.WithRedisWait(100*time.Millisecond), lock.WithKeyPrefix("test:"))
	b := lock.NewRedisLocker(rdb, lock.WithRedisWait(100*time.Millisecond), lock.WithKeyPrefix("test:"))

	t.Run("exclusive across lockers", func(t *testing.T) {
		lease, err := a.Acquire(ctx, "157")
		require.NoError(t, err)

		_, err = b.Acquire(ctx, "157")
		assert.True(t, errors.Is(err, lock.ErrLockNotAcquired))

		other, err := b.Acquire(ctx, "165")
		require.NoError(t, err)
		require.NoError(t, other.Release(ctx))

		require.NoError(t, lease.Release(ctx))
		assert.True(t, errors.Is(lease.Release(ctx), lock.ErrLockNotHeld))

		again, err := b.Acquire(ctx, "157")
		require.NoError(t, err)
		require.NoError(t, again.Release(ctx))
	})

	t.Run("expired lease cannot release a new owner", func(t *testing.T) {
		short := lock.NewRedisLocker(rdb, lock.WithTTL(50*time.Millisecond), lock.WithKeyPrefix("test:"))
		stale, err := short.TryAcquire(ctx, "174")
		require.NoError(t, err)
		time.Sleep(120 * time.Millisecond)

		fresh, err := b.Acquire(ctx, "174")
		require.NoError(t, err)
		assert.True(t, errors.Is(stale.Release(ctx), lock.ErrLockNotHeld))
		assert.True(t, errors.Is(stale.Extend(ctx, time.Minute), lock.ErrLockNotHeld))
		require.NoError(t, fresh.Release(ctx))
	})

	t.Run("with lock over several classes", func(t *testing.T) {
		ran := false
		err := lock.WithLock(ctx, a, []string{"165", "157"}, func(context.Context) error {
			ran = true
			_, err := b.Acquire(ctx, "165")
			assert.True(t, errors.Is(err, lock.ErrLockNotAcquired))
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
	})

	t.Run("with lock keeps a short lease alive", func(t *testing.T) {
		short := lock.NewRedisLocker(rdb, lock.WithTTL(150*time.Millisecond), lock.WithKeyPrefix("test:"))
		err := lock.WithLock(ctx, short, []string{"182"}, func(context.Context) error {
			time.Sleep(500 * time.Millisecond)
			_, err := b.Acquire(ctx, "182")
			assert.True(t, errors.Is(err, lock.ErrLockNotAcquired))
			return nil
		})
		require.NoError(t, err)
	})
}
