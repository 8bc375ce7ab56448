package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/radiusdt/storefront-insights/internal/models"
	"github.com/radiusdt/storefront-insights/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingInvalidator struct {
	stores []string
	err    error
}

func (r *recordingInvalidator) InvalidateStore(ctx context.Context, storeID string) error {
	r.stores = append(r.stores, storeID)
	return r.err
}

func newRecorder(t *testing.T) (*Recorder, *storage.InMemoryStore, *recordingInvalidator) {
	t.Helper()
	mem := storage.NewInMemoryStore()
	mem.PutStore(&models.Store{ID: "s1", OwnerID: "o1"})
	inv := &recordingInvalidator{}
	r := NewRecorder(mem, mem, inv, zap.NewNop())
	r.now = func() time.Time { return time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC) }
	return r, mem, inv
}

func TestRecordStoresAndInvalidates(t *testing.T) {
	r, mem, inv := newRecorder(t)
	ctx := context.Background()

	ev, err := r.Record(ctx, ClickParams{StoreID: "s1", ProductID: "p1", ClickType: "whatsapp"})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, models.ClickContact, ev.ClickType)
	assert.Equal(t, r.now(), ev.OccurredAt)
	assert.Equal(t, []string{"s1"}, inv.stores)

	events, err := mem.ListEvents(ctx, models.DateRange{Start: r.now().Add(-time.Hour), End: r.now().Add(time.Hour)}, "s1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev.ID, events[0].ID)
}

func TestRecordValidation(t *testing.T) {
	r, _, inv := newRecorder(t)
	ctx := context.Background()

	_, err := r.Record(ctx, ClickParams{StoreID: "s1"})
	assert.ErrorIs(t, err, ErrInvalidClick)

	_, err = r.Record(ctx, ClickParams{StoreID: "s1", ProductID: "p1", OccurredAt: r.now().Add(time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidClick)

	_, err = r.Record(ctx, ClickParams{StoreID: "nope", ProductID: "p1"})
	assert.ErrorIs(t, err, ErrUnknownStore)

	assert.Empty(t, inv.stores)
}

func TestRecordKeepsWritingWhenInvalidationFails(t *testing.T) {
	r, _, inv := newRecorder(t)
	inv.err = errors.New("redis down")

	ev, err := r.Record(context.Background(), ClickParams{ID: "fixed", StoreID: "s1", ProductID: "p1", ClickType: "map"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", ev.ID)
	assert.Equal(t, models.ClickMapRoute, ev.ClickType)
}
