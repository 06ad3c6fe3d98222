package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T, ttl time.Duration) (Guard, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisGuard(client, ttl), mr, client
}

func TestOperationKey(t *testing.T) {
	assert.Equal(t, "lock:op:cancel:a1", OperationKey("cancel", "a1"))
	assert.Equal(t, "lock:op:book:doc-1:2025-03-10T10:00:00.000", OperationKey("book", "doc-1", "2025-03-10T10:00:00.000"))
}

func TestRedisGuard_RunsAndReleases(t *testing.T) {
	guard, mr, _ := newTestGuard(t, 5*time.Second)
	key := OperationKey("cancel", "a1")

	ran := false
	err := guard.WithOperationLock(context.Background(), key, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(key), "lock held while fn runs")
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(key), "lock released afterwards")
}

func TestRedisGuard_RejectsConcurrentDuplicate(t *testing.T) {
	guard, _, _ := newTestGuard(t, 5*time.Second)
	key := OperationKey("book", "doc-1", "2025-03-10T10:00:00.000")

	err := guard.WithOperationLock(context.Background(), key, func(ctx context.Context) error {
		inner := guard.WithOperationLock(ctx, key, func(context.Context) error {
			t.Fatal("duplicate should not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)

	// free again once the first holder is done
	err = guard.WithOperationLock(context.Background(), key, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestRedisGuard_ReleasesOnError(t *testing.T) {
	guard, mr, _ := newTestGuard(t, 5*time.Second)
	key := OperationKey("complete", "a1")
	boom := errors.New("boom")

	err := guard.WithOperationLock(context.Background(), key, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(key))
}

func TestRedisGuard_DoesNotReleaseForeignLock(t *testing.T) {
	guard, mr, client := newTestGuard(t, time.Second)
	key := OperationKey("reschedule", "a1")

	err := guard.WithOperationLock(context.Background(), key, func(ctx context.Context) error {
		// our lock expires and another holder takes the key
		mr.FastForward(2 * time.Second)
		require.NoError(t, client.Set(ctx, key, "someone-else", time.Minute).Err())
		return nil
	})
	require.NoError(t, err)

	val, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestRedisGuard_RedisDown(t *testing.T) {
	guard, mr, _ := newTestGuard(t, time.Second)
	mr.Close()

	err := guard.WithOperationLock(context.Background(), "k", func(context.Context) error {
		t.Fatal("should not run without a lock")
		return nil
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockNotAcquired)
}

func TestNopGuard(t *testing.T) {
	called := false
	err := NopGuard{}.WithOperationLock(context.Background(), "k", func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
