package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisLockTTL   = 2 * time.Minute
	redisRetryWait = 100 * time.Millisecond
)

var _ Locker = (*RedisLocker)(nil)

// RedisLocker serializes per-key work across replicas with SET NX and a TTL
// so a crashed holder cannot wedge a content item forever.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, prefix: "pubflow:lock:"}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.prefix + key
	holder := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, holder, redisLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire redis lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(redisRetryWait):
		}
	}

	release := func() {
		// Only the holder may delete the key; a TTL-expired lock taken over
		// by another replica must survive this release.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.client.Eval(releaseCtx, script, []string{redisKey}, holder)
	}

	return release, nil
}
