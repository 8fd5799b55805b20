// Package lock provides a Redis-backed mutual exclusion used to keep
// expensive recomputations from running concurrently across instances.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned when the locker has no Redis client.
var ErrNotConfigured = errors.New("lock: redis client not configured")

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker serialises work per key. The zero Prefix uses "zemen:lock:".
type Locker struct {
	R            *redis.Client
	Prefix       string
	RetryBackoff time.Duration
}

func (l Locker) key(name string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "zemen:lock:"
	}
	return prefix + name
}

// WithLock runs fn while holding the lock for name. The lock expires after ttl
// so a crashed holder cannot block others forever, and is released once fn
// returns. Waiting ends with ctx.Err() when ctx is cancelled.
func (l Locker) WithLock(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return ErrNotConfigured
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	key := l.key(name)
	token := uuid.NewString()
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}

	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer l.release(context.WithoutCancel(ctx), key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l Locker) release(ctx context.Context, key, token string) {
	if err := l.R.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, key).Err()
		}
	}
}
