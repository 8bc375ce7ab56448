package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/radiusdt/storefront-insights/internal/cache"
	"github.com/radiusdt/storefront-insights/internal/config"
	"github.com/radiusdt/storefront-insights/internal/insights"
	"github.com/radiusdt/storefront-insights/internal/metrics"
	"github.com/radiusdt/storefront-insights/internal/models"
	"github.com/radiusdt/storefront-insights/internal/storage"
	"github.com/radiusdt/storefront-insights/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "server-test-secret"

type pingFunc func(ctx context.Context) error

func (f pingFunc) Health(ctx context.Context) error { return f(ctx) }

type fixture struct {
	handler http.Handler
	owner   string
	mem     *storage.InMemoryStore
	cache   *cache.MemoryCache
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, checks map[string]HealthChecker) fixture {
	t.Helper()

	owner := uuid.NewString()
	now := time.Now()

	mem := storage.NewInMemoryStore()
	mem.PutStore(&models.Store{ID: "store-1", OwnerID: owner})
	mem.PutProduct(&models.Product{ID: "p1", StoreID: "store-1", Name: "Tinta Spray"})
	mem.AddEvent(&models.ClickEvent{ID: "e1", StoreID: "store-1", ProductID: "p1", ClickType: models.ClickContact, OccurredAt: now.Add(-time.Hour)})

	reg := prometheus.NewRegistry()
	m := metrics.NewMetricsWith("test", reg, reg)
	mc := cache.NewMemoryCache(time.Minute, nil)

	svc := insights.NewService(insights.ServiceDeps{
		Stores:     mem,
		Products:   mem,
		Events:     mem,
		Cache:      mc,
		Aggregator: &insights.Aggregator{Locale: insights.LocaleFor("en"), Location: time.UTC},
		Metrics:    m,
		Logger:     zap.NewNop(),
	})

	cfg := &config.Config{
		Auth: config.AuthConfig{
			Enabled:   true,
			JWTSecret: secret,
			APIKey:    "hook-key",
			SkipPaths: []string{"/health", "/metrics"},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	h := NewServer(&Dependencies{
		Insights: svc,
		Tracker:  tracking.NewRecorder(mem, mem, svc, zap.NewNop()),
		Config:   cfg,
		Logger:   zap.NewNop(),
		Metrics:  m,
		Checks:   checks,
	})
	return fixture{handler: h, owner: owner, mem: mem, cache: mc, metrics: m}
}

func (f fixture) token(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func (f fixture) do(t *testing.T, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestDashboardEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/dashboard?period=30d", f.token(t, f.owner))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, key := range []string{"kpis", "series", "ownRanking", "cityRanking", "recentActivity", "opportunityTerms"} {
		assert.Contains(t, body, key)
	}

	var bundle insights.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, 1, bundle.KPIs.Impressions)
	assert.Equal(t, "Last 30 days", bundle.Series.Title)
	assert.Len(t, bundle.Series.Labels, 4)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("/dashboard", "200")))
}

func TestDashboardEndpointDefaultsTo7d(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/dashboard", f.token(t, f.owner))
	require.Equal(t, http.StatusOK, rec.Code)

	var bundle insights.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Len(t, bundle.Series.Labels, 7)
}

func TestDashboardEndpointRejectsBadRequests(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/dashboard?period=90d", f.token(t, f.owner)).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/dashboard", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodDelete, "/dashboard", f.token(t, f.owner)).Code)
}

func TestDashboardEndpointUnknownOwnerGetsEmptyBundle(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/dashboard", f.token(t, uuid.NewString()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "null")
}

func TestInvalidateEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	tok := f.token(t, f.owner)
	ctx := context.Background()

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/dashboard", tok).Code)
	_, ok, _ := f.cache.Get(ctx, cache.Key{StoreID: "store-1", Period: "7d"})
	require.True(t, ok)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/dashboard/invalidate", tok).Code)
	_, ok, _ = f.cache.Get(ctx, cache.Key{StoreID: "store-1", Period: "7d"})
	assert.False(t, ok)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/dashboard?period=30d", tok).Code)

	req := httptest.NewRequest(http.MethodPost, "/internal/stores/store-1/invalidate", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("X-API-Key", "hook-key")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok, _ = f.cache.Get(ctx, cache.Key{StoreID: "store-1", Period: "30d"})
	assert.False(t, ok)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, map[string]HealthChecker{
		"postgres": pingFunc(func(context.Context) error { return nil }),
	})
	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","dependencies":{"postgres":"ok"}}`, rec.Body.String())

	f = newFixture(t, map[string]HealthChecker{
		"postgres": pingFunc(func(context.Context) error { return nil }),
		"redis":    pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	})
	rec = f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","dependencies":{"postgres":"ok","redis":"dial tcp: refused"}}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/dashboard", f.token(t, f.owner))

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_dashboard_builds_total{outcome="ok",period="7d"} 1`)
}

func TestRecordClickEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/internal/events", strings.NewReader(body))
		req.Header.Set("X-API-Key", "hook-key")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/dashboard", f.token(t, f.owner)).Code)

	rec := post(`{"id":"e2","storeId":"store-1","productId":"p1","clickType":"whatsapp"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"e2"}`, rec.Body.String())

	_, ok, _ := f.cache.Get(ctx, cache.Key{StoreID: "store-1", Period: "7d"})
	assert.False(t, ok, "recording a click drops the cached dashboard")

	var bundle insights.Bundle
	rec = f.do(t, http.MethodGet, "/dashboard", f.token(t, f.owner))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, 2, bundle.KPIs.Impressions)

	assert.Equal(t, http.StatusBadRequest, post(`{"storeId":"store-1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)
	assert.Equal(t, http.StatusNotFound, post(`{"storeId":"nope","productId":"p1"}`).Code)

	req := httptest.NewRequest(http.MethodPost, "/internal/events", strings.NewReader(`{}`))
	unauth := httptest.NewRecorder()
	f.handler.ServeHTTP(unauth, req)
	assert.Equal(t, http.StatusUnauthorized, unauth.Code)
}
