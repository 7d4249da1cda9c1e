// Package cache provides a small string cache used to memoize computed
// loan metrics and dashboard summaries. Backed by Redis when configured,
// otherwise a no-op implementation keeps callers unconditional.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the interface consumed by services that memoize results
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed cache
func NewRedisCache(addr string) Cache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

type noopCache struct{}

// NewNoop creates a cache that stores nothing. Used when no Redis
// address is configured.
func NewNoop() Cache {
	return noopCache{}
}

func (noopCache) Get(ctx context.Context, key string) (string, bool) { return "", false }

func (noopCache) Set(ctx context.Context, key, value string, ttl time.Duration) error { return nil }

func (noopCache) Delete(ctx context.Context, keys ...string) error { return nil }
