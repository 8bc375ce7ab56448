package storage

import (
	"context"

	"github.com/radiusdt/storefront-insights/internal/models"
)

// =============================================
// STORE DIRECTORY
// =============================================

// StoreRepo resolves store profiles. Absent rows are returned as nil, nil.
type StoreRepo interface {
	GetByOwner(ctx context.Context, ownerID string) (*models.Store, error)
	GetByID(ctx context.Context, id string) (*models.Store, error)
}

// =============================================
// PRODUCT REPOSITORY
// =============================================

// ProductRepo reads store catalogs.
type ProductRepo interface {
	ListByStore(ctx context.Context, storeID string) ([]*models.Product, error)
}

// =============================================
// EVENT STORE
// =============================================

// EventStore reads click events in a date range. An empty storeID returns
// the events of every store (city-wide). Each event carries its joined
// product snapshot when the product still exists.
type EventStore interface {
	ListEvents(ctx context.Context, r models.DateRange, storeID string) ([]*models.ClickEvent, error)
}

// EventWriter appends click events. Saving an id twice is a no-op.
type EventWriter interface {
	SaveEvent(ctx context.Context, ev *models.ClickEvent) error
}
