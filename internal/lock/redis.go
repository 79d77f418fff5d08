package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Ridham19/GYM-flow/internal/logger"
)

const keyPrefix = "gymflow:lock:"

// releaseScript deletes the key only while it still carries our token, so an
// expired-and-reacquired lock is never released by its previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process pointing at the same Redis.
// Each key is held with SET NX and a TTL; the TTL must exceed the longest
// admission section.
type Redis struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
}

func NewRedis(client *redis.Client, ttl, retryInterval time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, retryInterval: retryInterval}
}

func (r *Redis) Lock(ctx context.Context, keys []string) (func(), error) {
	keys = Normalize(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	for _, key := range keys {
		if err := r.acquire(ctx, keyPrefix+key, token); err != nil {
			r.release(held, token)
			return nil, err
		}
		held = append(held, keyPrefix+key)
	}

	return func() { r.release(held, token) }, nil
}

func (r *Redis) acquire(ctx context.Context, key, token string) error {
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryInterval):
		}
	}
}

func (r *Redis) release(keys []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, r.client, []string{keys[i]}, token).Err(); err != nil {
			logger.Warn("failed to release lock", "key", keys[i], "error", err)
		}
	}
}
