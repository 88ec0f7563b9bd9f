package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisStore counts requests in Redis so limits hold across server instances.
// Plain INCR with a TTL set on first increment gives the same fixed-window
// semantics as MemoryStore.
type RedisStore struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisStore(client *redis.Client, limit int, window time.Duration) *RedisStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisStore{client: client, limit: limit, window: window}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (Result, error) {
	k := redisKeyPrefix + key

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, k, s.window).Err(); err != nil {
			return Result{}, err
		}
	}

	ttl, err := s.client.PTTL(ctx, k).Result()
	if err != nil {
		return Result{}, err
	}
	if ttl < 0 {
		// key lost its TTL (e.g. expiry raced the INCR); re-arm the window
		ttl = s.window
		if err := s.client.PExpire(ctx, k, s.window).Err(); err != nil {
			return Result{}, err
		}
	}
	resetAt := time.Now().Add(ttl)

	if count <= int64(s.limit) {
		return Result{Allowed: true, Remaining: s.limit - int(count), ResetAt: resetAt}, nil
	}
	return Result{Allowed: false, Remaining: 0, RetryAfter: ttl, ResetAt: resetAt}, nil
}
