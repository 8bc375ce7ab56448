package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radiusdt/storefront-insights/internal/models"
)

// InMemoryStore implements StoreRepo, ProductRepo, EventStore and
// EventWriter in memory.
// It backs development runs without PostgreSQL and the service tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	stores   map[string]*models.Store
	products map[string]*models.Product
	events   []*models.ClickEvent

	// Indexes for faster lookups
	storesByOwner   map[string]string   // owner_id -> store_id
	productsByStore map[string][]string // store_id -> []product_id
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		stores:          make(map[string]*models.Store),
		products:        make(map[string]*models.Product),
		storesByOwner:   make(map[string]string),
		productsByStore: make(map[string][]string),
	}
}

// =============================================
// Stores
// =============================================

// PutStore adds or replaces a store profile.
func (s *InMemoryStore) PutStore(st *models.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stores[st.ID] = st
	if st.OwnerID != "" {
		s.storesByOwner[st.OwnerID] = st.ID
	}
}

func (s *InMemoryStore) GetByOwner(ctx context.Context, ownerID string) (*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.storesByOwner[ownerID]
	if !ok {
		return nil, nil
	}
	return s.stores[id], nil
}

func (s *InMemoryStore) GetByID(ctx context.Context, id string) (*models.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[id]
	if !ok {
		return nil, nil
	}
	return st, nil
}

// =============================================
// Products
// =============================================

// PutProduct adds or replaces a product.
func (s *InMemoryStore) PutProduct(p *models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; !exists {
		s.productsByStore[p.StoreID] = append(s.productsByStore[p.StoreID], p.ID)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	s.products[p.ID] = p
}

// ListByStore returns the store's products in insertion order.
func (s *InMemoryStore) ListByStore(ctx context.Context, storeID string) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.productsByStore[storeID]
	result := make([]*models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// =============================================
// Events
// =============================================

// AddEvent records a click event.
func (s *InMemoryStore) AddEvent(ev *models.ClickEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
}

// SaveEvent records a click event unless one with the same id exists.
func (s *InMemoryStore) SaveEvent(ctx context.Context, ev *models.ClickEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.events {
		if existing.ID == ev.ID {
			return nil
		}
	}
	stored := *ev
	stored.Product = nil
	s.events = append(s.events, &stored)
	return nil
}

// ListEvents returns matching events ordered by time, joined with the
// current product rows.
func (s *InMemoryStore) ListEvents(ctx context.Context, r models.DateRange, storeID string) ([]*models.ClickEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.ClickEvent, 0)
	for _, ev := range s.events {
		if storeID != "" && ev.StoreID != storeID {
			continue
		}
		if !r.Contains(ev.OccurredAt) {
			continue
		}
		joined := *ev
		if p, ok := s.products[ev.ProductID]; ok {
			joined.Product = p.Snapshot()
		} else {
			joined.Product = nil
		}
		result = append(result, &joined)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	return result, nil
}

// =============================================
// Cleanup (for retention)
// =============================================

// CleanupOldEvents drops events that occurred before the cutoff.
func (s *InMemoryStore) CleanupOldEvents(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	removed := 0
	for _, ev := range s.events {
		if ev.OccurredAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return removed
}
