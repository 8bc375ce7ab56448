package storage

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/radiusdt/storefront-insights/internal/models"
	"github.com/shopspring/decimal"
)

// ClickHouseEventStore reads click events from the analytical store.
// Rows are written denormalized by the search bot, so the product
// columns hold the snapshot taken when the click happened:
//
//	CREATE TABLE click_events (
//	    id               String,
//	    store_id         String,
//	    product_id       String,
//	    click_type       LowCardinality(String),
//	    occurred_at      DateTime64(3, 'UTC'),
//	    product_name     Nullable(String),
//	    product_price    Nullable(Decimal(12, 2)),
//	    product_store_id Nullable(String)
//	) ENGINE = MergeTree ORDER BY (store_id, occurred_at);
type ClickHouseEventStore struct {
	conn driver.Conn
}

// NewClickHouseEventStore creates a ClickHouse-backed event store.
func NewClickHouseEventStore(conn driver.Conn) *ClickHouseEventStore {
	return &ClickHouseEventStore{conn: conn}
}

func (s *ClickHouseEventStore) ListEvents(ctx context.Context, r models.DateRange, storeID string) ([]*models.ClickEvent, error) {
	query := `
		SELECT id, store_id, product_id, click_type, occurred_at,
		       product_name, product_price, product_store_id
		FROM click_events
		WHERE occurred_at >= ? AND occurred_at < ?`
	args := []any{r.Start, r.End}
	if storeID != "" {
		query += ` AND store_id = ?`
		args = append(args, storeID)
	}
	query += ` ORDER BY occurred_at ASC, id ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clickhouse events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.ClickEvent, 0)
	for rows.Next() {
		var ev models.ClickEvent
		var clickType string
		var productName, productStore *string
		var productPrice *decimal.Decimal

		if err := rows.Scan(
			&ev.ID, &ev.StoreID, &ev.ProductID, &clickType, &ev.OccurredAt,
			&productName, &productPrice, &productStore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan clickhouse event: %w", err)
		}
		ev.ClickType = models.ParseClickType(clickType)

		if productName != nil {
			ev.Product = &models.ProductSnapshot{
				ID:      ev.ProductID,
				Name:    *productName,
				Price:   productPrice,
				StoreID: deref(productStore),
			}
		}

		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read clickhouse events: %w", err)
	}

	return events, nil
}
