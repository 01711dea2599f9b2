package keylock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "archivist:lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared across processes. A key is held by SET NX with a
// random token and released only by the holder of that token.
type Redis struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

// NewRedis creates a Redis-backed Locker. ttl bounds how long a crashed holder
// can keep a key; retry is the polling interval while waiting.
func NewRedis(rdb redis.UniversalClient, ttl, retry time.Duration, logger *slog.Logger) *Redis {
	return &Redis{
		rdb:    rdb,
		ttl:    ttl,
		retry:  retry,
		logger: logger.With("system", "keylock"),
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("lock SETNX %s: %w", key, err)
		}
		if ok {
			return func() { r.unlock(k, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Redis) unlock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, r.rdb, []string{key}, token).Err(); err != nil {
		r.logger.Warn("lock release failed", "key", key, "error", err)
	}
}
