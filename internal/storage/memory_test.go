package storage

import (
	"context"
	"testing"
	"time"

	"github.com/radiusdt/storefront-insights/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) (*InMemoryStore, time.Time) {
	t.Helper()
	s := NewInMemoryStore()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	price := decimal.RequireFromString("15.90")

	s.PutStore(&models.Store{ID: "store-a", OwnerID: "owner-a", Name: "Loja A"})
	s.PutProduct(&models.Product{ID: "p1", StoreID: "store-a", Name: "Tinta Spray", Price: &price})
	s.PutProduct(&models.Product{ID: "p2", StoreID: "store-b", Name: "Pincel"})

	s.AddEvent(&models.ClickEvent{ID: "e3", StoreID: "store-a", ProductID: "p1", ClickType: models.ClickContact, OccurredAt: base.Add(2 * time.Hour)})
	s.AddEvent(&models.ClickEvent{ID: "e1", StoreID: "store-a", ProductID: "p1", ClickType: models.ClickMapRoute, OccurredAt: base})
	s.AddEvent(&models.ClickEvent{ID: "e2", StoreID: "store-b", ProductID: "p2", ClickType: models.ClickOther, OccurredAt: base.Add(time.Hour)})
	s.AddEvent(&models.ClickEvent{ID: "e4", StoreID: "store-b", ProductID: "gone", ClickType: models.ClickContact, OccurredAt: base.Add(3 * time.Hour)})
	return s, base
}

func TestInMemoryGetByOwner(t *testing.T) {
	s, _ := seedStore(t)
	ctx := context.Background()

	st, err := s.GetByOwner(ctx, "owner-a")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "store-a", st.ID)

	st, err = s.GetByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestInMemoryListEventsFiltersAndJoins(t *testing.T) {
	s, base := seedStore(t)
	ctx := context.Background()
	window := models.DateRange{Start: base, End: base.Add(3 * time.Hour)}

	own, err := s.ListEvents(ctx, window, "store-a")
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "e1", own[0].ID)
	assert.Equal(t, "e3", own[1].ID)
	require.NotNil(t, own[0].Product)
	assert.Equal(t, "Tinta Spray", own[0].Product.Name)

	city, err := s.ListEvents(ctx, window, "")
	require.NoError(t, err)
	assert.Len(t, city, 3, "end of range is exclusive")

	all, err := s.ListEvents(ctx, models.DateRange{Start: base, End: base.Add(4 * time.Hour)}, "store-b")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Nil(t, all[1].Product, "deleted product has no snapshot")
}

func TestInMemoryListEventsHonoursCancelledContext(t *testing.T) {
	s, base := seedStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListEvents(ctx, models.DateRange{Start: base, End: base.Add(time.Hour)}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryListByStoreKeepsInsertionOrder(t *testing.T) {
	s, _ := seedStore(t)
	s.PutProduct(&models.Product{ID: "p3", StoreID: "store-a", Name: "Rolo"})

	products, err := s.ListByStore(context.Background(), "store-a")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "p3", products[1].ID)
}

func TestInMemoryCleanupOldEvents(t *testing.T) {
	s, base := seedStore(t)

	removed := s.CleanupOldEvents(base.Add(90 * time.Minute))
	assert.Equal(t, 2, removed)

	left, err := s.ListEvents(context.Background(), models.DateRange{Start: base, End: base.Add(24 * time.Hour)}, "")
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestParsePrice(t *testing.T) {
	p, err := parsePrice(nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	raw := "15.90"
	p, err = parsePrice(&raw)
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("15.9")))

	bad := "abc"
	_, err = parsePrice(&bad)
	assert.Error(t, err)
}

func TestInMemorySaveEventIsIdempotent(t *testing.T) {
	s, base := seedStore(t)
	ctx := context.Background()
	ev := &models.ClickEvent{ID: "e9", StoreID: "store-a", ProductID: "p1", ClickType: models.ClickContact, OccurredAt: base.Add(30 * time.Minute)}

	require.NoError(t, s.SaveEvent(ctx, ev))
	require.NoError(t, s.SaveEvent(ctx, ev))

	own, err := s.ListEvents(ctx, models.DateRange{Start: base, End: base.Add(time.Hour)}, "store-a")
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "e9", own[1].ID)
}
