package database

import (
	"context"
	"fmt"
	"time"

	"github.com/radiusdt/storefront-insights/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisDB holds the client behind the shared dashboard cache.
type RedisDB struct {
	Client *redis.Client
	logger *zap.Logger
}

// NewRedisDB connects to Redis and pings it.
func NewRedisDB(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     20,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return &RedisDB{Client: client, logger: logger}, nil
}

// Close closes the client.
func (r *RedisDB) Close() error {
	if r.Client == nil {
		return nil
	}
	r.logger.Info("Redis connection closed")
	return r.Client.Close()
}

// Health pings Redis.
func (r *RedisDB) Health(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
