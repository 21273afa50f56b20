package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares counters across instances: INCR plus a window-length
// expiry set when a key is first seen. Configure it (REDIS_ADDR) whenever more
// than one process serves traffic.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	nowFunc func() time.Time
}

// NewRedisStore returns a store over the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  "payflow:ratelimit:",
		nowFunc: time.Now,
	}
}

// Incr implements Store.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := s.prefix + key

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis expire: %w", err)
		}
		return count, s.nowFunc().Add(window), nil
	}

	ttl, err := s.client.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		// key without expiry (Expire lost earlier); repair it
		_ = s.client.Expire(ctx, k, window).Err()
		ttl = window
	}
	return count, s.nowFunc().Add(ttl), nil
}
