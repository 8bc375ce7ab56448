// Package cache holds short-lived dashboard bundles keyed by store and
// period. Implementations never expire entries on a background timer:
// expired entries read as misses and are removed by Sweep, which the
// caller schedules.
package cache

import (
	"context"
	"sync"
	"time"
)

// Key identifies one cached bundle.
type Key struct {
	StoreID string
	Period  string
}

// DashboardCache is a read-through cache for encoded dashboard bundles.
type DashboardCache interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Set(ctx context.Context, key Key, value []byte) error
	// Invalidate drops every period cached for the store.
	Invalidate(ctx context.Context, storeID string) error
	// Sweep removes expired entries and reports how many were dropped.
	Sweep(ctx context.Context) (int, error)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[Key]memoryEntry
}

// NewMemoryCache creates a MemoryCache. A nil clock means time.Now.
func NewMemoryCache(ttl time.Duration, now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[Key]memoryEntry),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key Key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{value: value, expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, storeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if k.StoreID == storeID {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *MemoryCache) Sweep(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
