package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/storefront-insights/internal/models"
	"github.com/shopspring/decimal"
)

// PostgresStoreRepo implements StoreRepo using PostgreSQL.
type PostgresStoreRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresStoreRepo(pool *pgxpool.Pool) *PostgresStoreRepo {
	return &PostgresStoreRepo{pool: pool}
}

func (r *PostgresStoreRepo) GetByOwner(ctx context.Context, ownerID string) (*models.Store, error) {
	return r.getOne(ctx, `
		SELECT id::text, owner_id::text, name, COALESCE(city, ''), created_at
		FROM stores WHERE owner_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, ownerID)
}

func (r *PostgresStoreRepo) GetByID(ctx context.Context, id string) (*models.Store, error) {
	return r.getOne(ctx, `
		SELECT id::text, owner_id::text, name, COALESCE(city, ''), created_at
		FROM stores WHERE id = $1
	`, id)
}

func (r *PostgresStoreRepo) getOne(ctx context.Context, query string, arg string) (*models.Store, error) {
	var st models.Store
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&st.ID, &st.OwnerID, &st.Name, &st.City, &st.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return &st, nil
}

// PostgresProductRepo implements ProductRepo using PostgreSQL.
type PostgresProductRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresProductRepo(pool *pgxpool.Pool) *PostgresProductRepo {
	return &PostgresProductRepo{pool: pool}
}

// ListByStore returns the catalog ordered by creation, matching the order
// owners see in the portal.
func (r *PostgresProductRepo) ListByStore(ctx context.Context, storeID string) ([]*models.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, store_id::text, name, price::text, updated_at
		FROM products WHERE store_id = $1
		ORDER BY created_at ASC, id ASC
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		var p models.Product
		var price *string

		if err := rows.Scan(&p.ID, &p.StoreID, &p.Name, &price, &p.UpdatedAt); err != nil {
			return nil, err
		}

		p.Price, err = parsePrice(price)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.ID, err)
		}

		products = append(products, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

// PostgresEventStore implements EventStore using PostgreSQL.
type PostgresEventStore struct {
	pool *pgxpool.Pool
}

func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

func (s *PostgresEventStore) ListEvents(ctx context.Context, r models.DateRange, storeID string) ([]*models.ClickEvent, error) {
	query := `
		SELECT e.id::text, e.store_id::text, e.product_id::text, e.click_type, e.occurred_at,
		       p.id::text, p.name, p.price::text, p.store_id::text
		FROM click_events e
		LEFT JOIN products p ON p.id = e.product_id
		WHERE e.occurred_at >= $1 AND e.occurred_at < $2`
	args := []any{r.Start, r.End}
	if storeID != "" {
		query += ` AND e.store_id = $3`
		args = append(args, storeID)
	}
	query += ` ORDER BY e.occurred_at ASC, e.id ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.ClickEvent, 0)
	for rows.Next() {
		var ev models.ClickEvent
		var clickType string
		var productID, productName, productPrice, productStore *string

		if err := rows.Scan(
			&ev.ID, &ev.StoreID, &ev.ProductID, &clickType, &ev.OccurredAt,
			&productID, &productName, &productPrice, &productStore,
		); err != nil {
			return nil, err
		}
		ev.ClickType = models.ParseClickType(clickType)

		if productID != nil {
			price, err := parsePrice(productPrice)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", ev.ID, err)
			}
			ev.Product = &models.ProductSnapshot{
				ID:      *productID,
				Name:    deref(productName),
				Price:   price,
				StoreID: deref(productStore),
			}
		}

		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

// SaveEvent inserts a click event. Replays of the same id are ignored.
func (s *PostgresEventStore) SaveEvent(ctx context.Context, ev *models.ClickEvent) error {
	query := `
		INSERT INTO click_events (id, store_id, product_id, click_type, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, ev.ID, ev.StoreID, ev.ProductID, string(ev.ClickType), ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// parsePrice reads a NUMERIC rendered as text. NULL stays nil.
func parsePrice(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", *s, err)
	}
	return &d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
