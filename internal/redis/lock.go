package redisclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("operation already in progress")
)

// Guard serialises identical in-flight transitions, e.g. a double-clicked
// cancel or two submissions booking the same practitioner slot.
type Guard interface {
	WithOperationLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// OperationKey builds the lock key for op on the given subject parts.
func OperationKey(op string, parts ...string) string {
	return "lock:op:" + op + ":" + strings.Join(parts, ":")
}

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a guard holding one Redis key per operation key
func NewRedisGuard(client *redis.Client, ttl time.Duration) Guard {
	return &redisGuard{
		client: client,
		ttl:    ttl,
	}
}

func (g *redisGuard) WithOperationLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire operation lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// release on a fresh context so a cancelled request still unlocks
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = g.release(releaseCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, g.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (g *redisGuard) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, g.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release operation lock: %w", err)
	}
	return nil
}

// NopGuard runs fn directly. Used when no Redis is configured.
type NopGuard struct{}

func (NopGuard) WithOperationLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
