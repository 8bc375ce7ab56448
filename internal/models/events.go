package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ===========================================
// CLICK TYPES
// ===========================================

// ClickType tags what the shopper clicked on a search result.
type ClickType string

const (
	ClickContact  ClickType = "contact"
	ClickMapRoute ClickType = "map_route"
	ClickOther    ClickType = "other"
)

// ParseClickType maps a stored tag to a ClickType. Legacy spellings
// ("whatsapp", "map", "route") are accepted; anything else is ClickOther.
func ParseClickType(s string) ClickType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contact", "whatsapp":
		return ClickContact
	case "map_route", "map-route", "map", "route":
		return ClickMapRoute
	default:
		return ClickOther
	}
}

// ===========================================
// CLICK EVENT
// ===========================================

// ClickEvent is a single shopper interaction with a product listing.
// Events are immutable once written by the search bot.
type ClickEvent struct {
	ID         string    `json:"id"`
	StoreID    string    `json:"store_id"`
	ProductID  string    `json:"product_id"`
	ClickType  ClickType `json:"click_type"`
	OccurredAt time.Time `json:"occurred_at"`

	// Product is the joined product row at read time, nil when the
	// product was deleted.
	Product *ProductSnapshot `json:"product,omitempty"`
}

// ProductSnapshot is the subset of a product joined onto an event.
type ProductSnapshot struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Price   *decimal.Decimal `json:"price"`
	StoreID string           `json:"store_id"`
}

// ===========================================
// DATE RANGE
// ===========================================

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Duration returns the wall-clock length of the range.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}
