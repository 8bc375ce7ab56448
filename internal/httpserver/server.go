package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/radiusdt/storefront-insights/internal/config"
	"github.com/radiusdt/storefront-insights/internal/insights"
	"github.com/radiusdt/storefront-insights/internal/metrics"
	"github.com/radiusdt/storefront-insights/internal/middleware"
	"github.com/radiusdt/storefront-insights/internal/tracking"
	"go.uber.org/zap"
)

// HealthChecker is a dependency that can be pinged.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Insights *insights.Service
	// Tracker enables click ingestion when set.
	Tracker *tracking.Recorder
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Checks are pinged by /health, keyed by dependency name.
	Checks map[string]HealthChecker
	// RateLimiter is optional; when nil one is built from Config.
	RateLimiter *middleware.RateLimitMiddleware
}

// Server exposes the dashboard over HTTP.
type Server struct {
	insights *insights.Service
	tracker  *tracking.Recorder
	checks   map[string]HealthChecker
	logger   *zap.Logger
	config   *config.Config
	metrics  *metrics.Metrics
}

// NewServer builds the handler with every route and the middleware chain.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		insights: deps.Insights,
		tracker:  deps.Tracker,
		checks:   deps.Checks,
		logger:   deps.Logger,
		config:   deps.Config,
		metrics:  deps.Metrics,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		mux.Handle("GET "+deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	// Dashboard
	mux.HandleFunc("GET /dashboard", s.instrument("/dashboard", s.handleDashboard))
	mux.HandleFunc("POST /dashboard/invalidate", s.instrument("/dashboard/invalidate", s.handleInvalidateOwn))

	// Collaborator hooks
	mux.HandleFunc("POST /internal/stores/{storeID}/invalidate", s.instrument("/internal/stores/invalidate", s.handleInvalidateStore))
	if s.tracker != nil {
		mux.HandleFunc("POST /internal/events", s.instrument("/internal/events", s.handleRecordClick))
	}

	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger, deps.Metrics)
	}

	var h http.Handler = mux
	h = middleware.NewAuthMiddleware(deps.Config.Auth, deps.Logger).Handler(h)
	h = rateLimiter.Handler(h)
	h = middleware.NewLoggingMiddleware(deps.Logger).Handler(h)
	h = middleware.NewRecoveryMiddleware(deps.Logger).Handler(h)
	return h
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name].Health(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = err.Error()
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.jsonResponse(w, code, map[string]interface{}{
		"status":       status,
		"dependencies": deps,
	})
}

// ---- Dashboard ----

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		s.errorResponse(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	sel, err := insights.ParseSelector(r.URL.Query().Get("period"))
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	bundle := s.insights.Dashboard(r.Context(), ownerID, sel)
	s.jsonResponse(w, http.StatusOK, bundle)
}

func (s *Server) handleInvalidateOwn(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		s.errorResponse(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	if err := s.insights.InvalidateOwner(r.Context(), ownerID); err != nil {
		s.logger.Error("cache invalidation failed", zap.String("owner_id", ownerID), zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- Internal hooks ----

func (s *Server) handleInvalidateStore(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeID")
	if storeID == "" {
		s.errorResponse(w, "missing store id", http.StatusBadRequest)
		return
	}

	if err := s.insights.InvalidateStore(r.Context(), storeID); err != nil {
		s.logger.Error("cache invalidation failed", zap.String("store_id", storeID), zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordClick(w http.ResponseWriter, r *http.Request) {
	var params tracking.ClickParams
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&params); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	ev, err := s.tracker.Record(r.Context(), params)
	switch {
	case errors.Is(err, tracking.ErrInvalidClick):
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, tracking.ErrUnknownStore):
		s.errorResponse(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		s.logger.Error("failed to record click", zap.String("store_id", params.StoreID), zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": ev.ID})
}

// ---- Helper Methods ----

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency under a fixed route label.
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.RecordHTTPRequest(route, rec.status, time.Since(start))
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
