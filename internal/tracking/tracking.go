package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/storefront-insights/internal/models"
	"github.com/radiusdt/storefront-insights/internal/storage"
	"go.uber.org/zap"
)

// maxClockSkew is how far in the future a reported click may be.
const maxClockSkew = 5 * time.Minute

var (
	ErrInvalidClick = errors.New("invalid click")
	ErrUnknownStore = errors.New("unknown store")
)

// Invalidator drops cached dashboards of a store.
type Invalidator interface {
	InvalidateStore(ctx context.Context, storeID string) error
}

// ClickParams is a click reported by the search bot.
type ClickParams struct {
	ID         string    `json:"id"`
	StoreID    string    `json:"storeId"`
	ProductID  string    `json:"productId"`
	ClickType  string    `json:"clickType"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Recorder validates and stores click events, then invalidates the
// store's cached dashboards so the owner sees the click on next load.
type Recorder struct {
	stores      storage.StoreRepo
	writer      storage.EventWriter
	invalidator Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewRecorder creates a Recorder. invalidator may be nil.
func NewRecorder(stores storage.StoreRepo, writer storage.EventWriter, invalidator Invalidator, logger *zap.Logger) *Recorder {
	return &Recorder{
		stores:      stores,
		writer:      writer,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// Record stores one click. A missing id gets a fresh UUID and a zero
// timestamp means now.
func (r *Recorder) Record(ctx context.Context, p ClickParams) (*models.ClickEvent, error) {
	if p.StoreID == "" || p.ProductID == "" {
		return nil, fmt.Errorf("%w: storeId and productId are required", ErrInvalidClick)
	}

	now := r.now().UTC()
	occurredAt := p.OccurredAt.UTC()
	if p.OccurredAt.IsZero() {
		occurredAt = now
	}
	if occurredAt.After(now.Add(maxClockSkew)) {
		return nil, fmt.Errorf("%w: occurredAt is in the future", ErrInvalidClick)
	}

	store, err := r.stores.GetByID(ctx, p.StoreID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, p.StoreID)
	}

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	ev := &models.ClickEvent{
		ID:         id,
		StoreID:    p.StoreID,
		ProductID:  p.ProductID,
		ClickType:  models.ParseClickType(p.ClickType),
		OccurredAt: occurredAt,
	}
	if err := r.writer.SaveEvent(ctx, ev); err != nil {
		return nil, err
	}

	if r.invalidator != nil {
		if err := r.invalidator.InvalidateStore(ctx, ev.StoreID); err != nil {
			r.logger.Warn("failed to invalidate dashboards after click",
				zap.String("store_id", ev.StoreID),
				zap.Error(err),
			)
		}
	}

	r.logger.Debug("click recorded",
		zap.String("click_id", ev.ID),
		zap.String("store_id", ev.StoreID),
		zap.String("click_type", string(ev.ClickType)),
	)
	return ev, nil
}
