package database

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/radiusdt/storefront-insights/internal/config"
	"go.uber.org/zap"
)

// ClickHouseDB holds the native connection used by the analytical event store.
type ClickHouseDB struct {
	Conn   driver.Conn
	logger *zap.Logger
}

// NewClickHouseDB opens a native-protocol connection and pings it.
func NewClickHouseDB(ctx context.Context, cfg config.ClickHouseConfig, logger *zap.Logger) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	logger.Info("connected to ClickHouse",
		zap.Strings("addr", cfg.Addr),
		zap.String("database", cfg.Database),
	)

	return &ClickHouseDB{Conn: conn, logger: logger}, nil
}

// Close closes the connection.
func (c *ClickHouseDB) Close() error {
	if c.Conn == nil {
		return nil
	}
	c.logger.Info("ClickHouse connection closed")
	return c.Conn.Close()
}

// Health pings ClickHouse.
func (c *ClickHouseDB) Health(ctx context.Context) error {
	return c.Conn.Ping(ctx)
}
