package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry owned by a store. Price is nil when the
// owner has not published one.
type Product struct {
	ID        string           `json:"id"`
	StoreID   string           `json:"store_id"`
	Name      string           `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Snapshot returns the event-join view of the product.
func (p *Product) Snapshot() *ProductSnapshot {
	return &ProductSnapshot{
		ID:      p.ID,
		Name:    p.Name,
		Price:   p.Price,
		StoreID: p.StoreID,
	}
}

// Store is a store profile. OwnerID is the auth subject that manages it.
type Store struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}
