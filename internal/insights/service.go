package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/radiusdt/storefront-insights/internal/cache"
	"github.com/radiusdt/storefront-insights/internal/metrics"
	"github.com/radiusdt/storefront-insights/internal/models"
	"github.com/radiusdt/storefront-insights/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetch sources, used as log fields and metric labels.
const (
	SourceStore          = "store"
	SourceProducts       = "products"
	SourceCurrentEvents  = "current_events"
	SourcePreviousEvents = "previous_events"
	SourceCityEvents     = "city_events"
)

// ServiceDeps groups the collaborators of a Service. Cache and Metrics
// are optional.
type ServiceDeps struct {
	Stores     storage.StoreRepo
	Products   storage.ProductRepo
	Events     storage.EventStore
	Cache      cache.DashboardCache
	Aggregator *Aggregator
	Metrics    *metrics.Metrics
	Logger     *zap.Logger

	// FetchTimeout bounds the concurrent fetches of one build. Zero
	// means no extra deadline beyond the caller's context.
	FetchTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service builds dashboard bundles for store owners.
type Service struct {
	stores   storage.StoreRepo
	products storage.ProductRepo
	events   storage.EventStore
	cache    cache.DashboardCache
	agg      *Aggregator
	metrics  *metrics.Metrics
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewService creates a Service.
func NewService(deps ServiceDeps) *Service {
	s := &Service{
		stores:   deps.Stores,
		products: deps.Products,
		events:   deps.Events,
		cache:    deps.Cache,
		agg:      deps.Aggregator,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		timeout:  deps.FetchTimeout,
		now:      deps.Now,
	}
	if s.agg == nil {
		s.agg = &Aggregator{Locale: LocaleFor(""), Location: time.UTC}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// fetchError tags a collaborator failure with where it came from.
type fetchError struct {
	source string
	err    error
}

func (e *fetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.source, e.err) }
func (e *fetchError) Unwrap() error { return e.err }

// Dashboard returns the bundle for the owner's store. It never fails:
// an owner without a store, a failed fetch or a panic while computing
// all yield EmptyBundle.
func (s *Service) Dashboard(ctx context.Context, ownerID string, sel Selector) (bundle Bundle) {
	began := time.Now()
	outcome := metrics.OutcomeOK
	log := s.logger.With(zap.String("owner_id", ownerID), zap.String("period", string(sel)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("dashboard build panicked", zap.Any("panic", r), zap.Stack("stack"))
			bundle = EmptyBundle(s.agg.Title(sel))
			outcome = metrics.OutcomeDegraded
		}
		s.recordBuild(sel, outcome, time.Since(began))
	}()

	store, err := s.stores.GetByOwner(ctx, ownerID)
	if err != nil {
		s.degrade(log, &fetchError{source: SourceStore, err: err})
		outcome = metrics.OutcomeDegraded
		return EmptyBundle(s.agg.Title(sel))
	}
	if store == nil {
		log.Debug("owner has no store")
		outcome = metrics.OutcomeNoStore
		return EmptyBundle(s.agg.Title(sel))
	}

	log = log.With(zap.String("store_id", store.ID))
	key := cache.Key{StoreID: store.ID, Period: string(sel)}

	if cached, ok := s.cached(ctx, log, key); ok {
		outcome = metrics.OutcomeCached
		return cached
	}

	now := s.now()
	period := NewPeriod(sel, now, s.agg.Location)

	snap, err := s.fetch(ctx, store.ID, period)
	if err != nil {
		s.degrade(log, err)
		outcome = metrics.OutcomeDegraded
		return EmptyBundle(s.agg.Title(sel))
	}

	bundle = s.agg.Compute(period, snap, now)
	s.store(ctx, log, key, bundle)
	return bundle
}

// InvalidateOwner drops cached bundles for the owner's store. An owner
// without a store is not an error.
func (s *Service) InvalidateOwner(ctx context.Context, ownerID string) error {
	store, err := s.stores.GetByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to resolve store: %w", err)
	}
	if store == nil {
		return nil
	}
	return s.InvalidateStore(ctx, store.ID)
}

// InvalidateStore drops cached bundles for storeID.
func (s *Service) InvalidateStore(ctx context.Context, storeID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, storeID); err != nil {
		s.recordCacheError("invalidate")
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	s.logger.Debug("dashboard cache invalidated", zap.String("store_id", storeID))
	return nil
}

// SweepCache removes expired cache entries.
func (s *Service) SweepCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	n, err := s.cache.Sweep(ctx)
	if err != nil {
		s.recordCacheError("sweep")
		return 0, fmt.Errorf("failed to sweep cache: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordEvictions(n)
	}
	return n, nil
}

// fetch loads the four inputs of a build concurrently. The first
// failure cancels the others.
func (s *Service) fetch(ctx context.Context, storeID string, p Period) (Snapshot, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(s.guard(SourceProducts, func() (err error) {
		snap.OwnProducts, err = s.products.ListByStore(gctx, storeID)
		return err
	}))
	g.Go(s.guard(SourceCurrentEvents, func() (err error) {
		snap.Current, err = s.listEvents(gctx, SourceCurrentEvents, p.Current, storeID)
		return err
	}))
	g.Go(s.guard(SourcePreviousEvents, func() (err error) {
		snap.Previous, err = s.listEvents(gctx, SourcePreviousEvents, p.Previous, storeID)
		return err
	}))
	g.Go(s.guard(SourceCityEvents, func() (err error) {
		snap.City, err = s.listEvents(gctx, SourceCityEvents, p.Current, "")
		return err
	}))

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Service) listEvents(ctx context.Context, source string, r models.DateRange, storeID string) ([]*models.ClickEvent, error) {
	events, err := s.events.ListEvents(ctx, r, storeID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordEventsFetched(source, len(events))
	}
	return events, nil
}

// guard turns an error or panic from fn into a *fetchError.
func (s *Service) guard(source string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &fetchError{source: source, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		if err := fn(); err != nil {
			return &fetchError{source: source, err: err}
		}
		return nil
	}
}

func (s *Service) degrade(log *zap.Logger, err error) {
	source := "unknown"
	var fe *fetchError
	if errors.As(err, &fe) {
		source = fe.source
	}
	log.Error("dashboard degraded to empty bundle", zap.String("source", source), zap.Error(err))
	if s.metrics != nil {
		s.metrics.RecordFetchError(source)
	}
}

func (s *Service) cached(ctx context.Context, log *zap.Logger, key cache.Key) (Bundle, bool) {
	if s.cache == nil {
		return Bundle{}, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("dashboard cache read failed", zap.Error(err))
		s.recordCacheError("get")
		ok = false
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(key.Period, ok)
	}
	if !ok {
		return Bundle{}, false
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		log.Warn("discarding undecodable cache entry", zap.Error(err))
		return Bundle{}, false
	}
	return b, true
}

func (s *Service) store(ctx context.Context, log *zap.Logger, key cache.Key, b Bundle) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(b)
	if err != nil {
		log.Warn("failed to encode bundle for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		log.Warn("dashboard cache write failed", zap.Error(err))
		s.recordCacheError("set")
	}
}

func (s *Service) recordBuild(sel Selector, outcome string, latency time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordBuild(string(sel), outcome, latency)
	}
}

func (s *Service) recordCacheError(op string) {
	if s.metrics != nil {
		s.metrics.RecordCacheError(op)
	}
}
