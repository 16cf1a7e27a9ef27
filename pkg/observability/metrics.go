package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access decision metrics
	AuthzDecisionsTotal *prometheus.CounterVec
	OwnershipLookups    prometheus.Counter
	DecisionCacheHits   prometheus.Counter
	DecisionCacheMisses prometheus.Counter

	// Social graph metrics
	EdgeMutationsTotal *prometheus.CounterVec
	CounterDrift       *prometheus.GaugeVec

	// Storage metrics
	StorageErrorsTotal *prometheus.CounterVec
	CacheHitsTotal     *prometheus.CounterVec
	CacheMissesTotal   *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviecrew_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moviecrew_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviecrew_authz_decisions_total",
				Help: "Access decisions by outcome and denial reason",
			},
			[]string{"granted", "reason"},
		),
		OwnershipLookups: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "moviecrew_authz_ownership_lookups_total",
				Help: "Ownership resolver fetches performed by the decision engine",
			},
		),
		DecisionCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "moviecrew_authz_decision_cache_hits_total",
				Help: "Access decisions served from the decision cache",
			},
		),
		DecisionCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "moviecrew_authz_decision_cache_misses_total",
				Help: "Access decisions that missed the decision cache",
			},
		),
		EdgeMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviecrew_edge_mutations_total",
				Help: "Relationship edge mutations by type and operation",
			},
			[]string{"edge_type", "op"},
		),
		CounterDrift: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "moviecrew_counter_drift",
				Help: "Absolute drift between a denormalized counter and the true edge count",
			},
			[]string{"counter"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviecrew_storage_errors_total",
				Help: "Storage operation errors by operation",
			},
			[]string{"operation"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviecrew_cache_hits_total",
				Help: "Entity cache hits by entity type",
			},
			[]string{"entity"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviecrew_cache_misses_total",
				Help: "Entity cache misses by entity type",
			},
			[]string{"entity"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.OwnershipLookups,
		m.DecisionCacheHits,
		m.DecisionCacheMisses,
		m.EdgeMutationsTotal,
		m.CounterDrift,
		m.StorageErrorsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveAuthzDecision records one access decision.
func (m *Metrics) ObserveAuthzDecision(granted bool, reason string) {
	m.AuthzDecisionsTotal.WithLabelValues(strconv.FormatBool(granted), reason).Inc()
}

// ObserveEdgeMutation records one edge store mutation.
func (m *Metrics) ObserveEdgeMutation(edgeType, op string) {
	m.EdgeMutationsTotal.WithLabelValues(edgeType, op).Inc()
}
