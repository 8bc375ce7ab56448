package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Build outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeCached   = "cached"
	OutcomeNoStore  = "no_store"
	OutcomeDegraded = "degraded"
)

// Metrics holds all Prometheus metrics for the insights service.
type Metrics struct {
	// Dashboard metrics
	DashboardBuilds *prometheus.CounterVec
	BuildLatency    *prometheus.HistogramVec
	FetchErrors     *prometheus.CounterVec
	EventsFetched   *prometheus.HistogramVec

	// Cache metrics
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheEvictions prometheus.Counter
	CacheErrors    *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec
	RateLimitHits *prometheus.CounterVec

	// System metrics
	DBConnections *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMetricsWith registers metrics on reg. Tests pass a fresh registry.
func NewMetricsWith(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		DashboardBuilds: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dashboard_builds_total",
				Help:      "Dashboard bundles served, by outcome",
			},
			[]string{"period", "outcome"},
		),
		BuildLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dashboard_build_seconds",
				Help:      "Time spent building a dashboard bundle",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"period", "outcome"},
		),
		FetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_errors_total",
				Help:      "Collaborator fetch failures, by source",
			},
			[]string{"source"},
		),
		EventsFetched: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "events_fetched",
				Help:      "Click events loaded per fetch",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"source"},
		),

		CacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Dashboard cache hits",
			},
			[]string{"period"},
		),
		CacheMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Dashboard cache misses",
			},
			[]string{"period"},
		),
		CacheEvictions: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_evictions_total",
				Help:      "Expired entries removed by the sweeper",
			},
		),
		CacheErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_errors_total",
				Help:      "Cache backend failures",
			},
			[]string{"operation"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		HTTPLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"route"},
		),

		DBConnections: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"}, // idle, in_use, total
		),

		gatherer: gatherer,
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordBuild records a served dashboard.
func (m *Metrics) RecordBuild(period, outcome string, latency time.Duration) {
	m.DashboardBuilds.WithLabelValues(period, outcome).Inc()
	m.BuildLatency.WithLabelValues(period, outcome).Observe(latency.Seconds())
}

// RecordFetchError records a failed collaborator call.
func (m *Metrics) RecordFetchError(source string) {
	m.FetchErrors.WithLabelValues(source).Inc()
}

// RecordEventsFetched records the size of an event fetch.
func (m *Metrics) RecordEventsFetched(source string, n int) {
	m.EventsFetched.WithLabelValues(source).Observe(float64(n))
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(period string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(period).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(period).Inc()
}

// RecordCacheError records a failed cache operation.
func (m *Metrics) RecordCacheError(operation string) {
	m.CacheErrors.WithLabelValues(operation).Inc()
}

// RecordEvictions records entries dropped by a sweep.
func (m *Metrics) RecordEvictions(n int) {
	if n > 0 {
		m.CacheEvictions.Add(float64(n))
	}
}

// RecordHTTPRequest records a completed request.
func (m *Metrics) RecordHTTPRequest(route string, status int, latency time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(latency.Seconds())
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(route string) {
	m.RateLimitHits.WithLabelValues(route).Inc()
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}
