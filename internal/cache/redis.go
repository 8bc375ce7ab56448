package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares bundles between replicas. Redis expires keys itself,
// so Sweep has nothing to do.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "dashboard"
	}
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *RedisCache) key(k Key) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, k.StoreID, k.Period)
}

func (c *RedisCache) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key Key, value []byte) error {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, storeID string) error {
	pattern := fmt.Sprintf("%s:%s:*", c.prefix, storeID)

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisCache) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}
