package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radiusdt/storefront-insights/internal/cache"
	"github.com/radiusdt/storefront-insights/internal/config"
	"github.com/radiusdt/storefront-insights/internal/database"
	"github.com/radiusdt/storefront-insights/internal/httpserver"
	"github.com/radiusdt/storefront-insights/internal/insights"
	"github.com/radiusdt/storefront-insights/internal/metrics"
	"github.com/radiusdt/storefront-insights/internal/middleware"
	"github.com/radiusdt/storefront-insights/internal/storage"
	"github.com/radiusdt/storefront-insights/internal/tracking"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// memoryRetention keeps two 30-day windows plus a day of slack.
const memoryRetention = 61 * 24 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	defer logger.Sync()

	logger.Info("starting storefront-insights",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("events_backend", cfg.Dashboard.EventsBackend),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	if cfg.IsProduction() && !cfg.Auth.Enabled {
		logger.Warn("authentication is disabled; owners are taken from the X-Owner-ID header")
	}

	m := metrics.NewMetrics(cfg.Metrics.Namespace)
	checks := make(map[string]httpserver.HealthChecker)

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelConnect()

	// Storage
	var (
		stores   storage.StoreRepo
		products storage.ProductRepo
		events   storage.EventStore
		writer   storage.EventWriter
		mem      *storage.InMemoryStore
	)

	db, err := database.NewPostgresDB(connectCtx, cfg.Database, logger)
	if err != nil {
		logger.Warn("PostgreSQL not available, using in-memory storage", zap.Error(err))
		mem = storage.NewInMemoryStore()
		stores, products, events, writer = mem, mem, mem, mem
	} else {
		defer db.Close()
		checks["postgres"] = db
		stores = storage.NewPostgresStoreRepo(db.Pool)
		products = storage.NewPostgresProductRepo(db.Pool)
		pgEvents := storage.NewPostgresEventStore(db.Pool)
		events, writer = pgEvents, pgEvents
	}

	switch cfg.Dashboard.EventsBackend {
	case "clickhouse":
		ch, err := database.NewClickHouseDB(connectCtx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Warn("ClickHouse not available, reading events from the primary store", zap.Error(err))
			break
		}
		defer ch.Close()
		checks["clickhouse"] = ch
		events = storage.NewClickHouseEventStore(ch.Conn)
	case "memory":
		if mem == nil {
			mem = storage.NewInMemoryStore()
		}
		events, writer = mem, mem
	}

	// Cache
	var dashboardCache cache.DashboardCache
	switch cfg.Cache.Backend {
	case "redis":
		rdb, err := database.NewRedisDB(connectCtx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis not available, caching dashboards in memory", zap.Error(err))
			dashboardCache = cache.NewMemoryCache(cfg.Cache.TTL, nil)
			break
		}
		defer rdb.Close()
		checks["redis"] = rdb
		dashboardCache = cache.NewRedisCache(rdb.Client, cfg.Cache.TTL, cfg.Cache.KeyPrefix)
	case "memory":
		dashboardCache = cache.NewMemoryCache(cfg.Cache.TTL, nil)
	}

	loc, err := time.LoadLocation(cfg.Dashboard.Location)
	if err != nil {
		logger.Fatal("invalid time zone", zap.Error(err))
	}

	svc := insights.NewService(insights.ServiceDeps{
		Stores:   stores,
		Products: products,
		Events:   events,
		Cache:    dashboardCache,
		Aggregator: &insights.Aggregator{
			Locale:   insights.LocaleFor(cfg.Dashboard.Locale),
			Location: loc,
			Ranker: insights.Ranker{
				Matcher: insights.MatcherFor(cfg.Dashboard.NameMatching),
				Limit:   cfg.Dashboard.RankingLimit,
			},
			FeedLimit: cfg.Dashboard.FeedLimit,
		},
		Metrics:      m,
		Logger:       logger.Named("insights"),
		FetchTimeout: cfg.Dashboard.FetchTimeout,
	})

	// Clicks always land in the primary store, even when ClickHouse serves reads.
	tracker := tracking.NewRecorder(stores, writer, svc, logger.Named("tracking"))

	rateLimiter := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger, m)

	// Scheduled jobs
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Cache.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := svc.SweepCache(ctx)
		if err != nil {
			logger.Warn("cache sweep failed", zap.Error(err))
			return
		}
		logger.Debug("cache swept", zap.Int("removed", n))
	}); err != nil {
		logger.Fatal("invalid cache sweep schedule", zap.String("schedule", cfg.Cache.SweepSchedule), zap.Error(err))
	}
	scheduler.AddFunc("@every 10m", func() {
		rateLimiter.CleanupIdle(10 * time.Minute)
	})
	if mem != nil {
		scheduler.AddFunc("@hourly", func() {
			n := mem.CleanupOldEvents(time.Now().Add(-memoryRetention))
			logger.Debug("expired in-memory events", zap.Int("removed", n))
		})
	}
	if db != nil {
		scheduler.AddFunc("@every 30s", func() { db.ReportStats(m) })
	}
	scheduler.Start()

	// Create HTTP server
	handler := httpserver.NewServer(&httpserver.Dependencies{
		Insights:    svc,
		Tracker:     tracker,
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		Checks:      checks,
		RateLimiter: rateLimiter,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Dashboard.FetchTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	<-scheduler.Stop().Done()

	logger.Info("server stopped")
}

func setupLogger(cfg *config.Config) *zap.Logger {
	format := cfg.Log.Format
	if cfg.IsDevelopment() {
		format = "console"
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, format)
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return logger
}
