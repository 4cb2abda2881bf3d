// v2
// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Badge lookup outcomes used as label values.
const (
	OutcomeRanked   = "ranked"
	OutcomeUnranked = "unranked"
	OutcomeDefault  = "default"
	OutcomeError    = "error"
)

// Metrics owns a private registry so several instances (tests, CLI runs) can
// coexist in one process. All methods are nil-safe.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	badgeLookups    *prometheus.CounterVec
	datasetLoads    *prometheus.CounterVec
	datasetEntities prometheus.Gauge
	generated       *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
}

// New registers every collector on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "badges_http_requests_total",
			Help: "Total HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badges_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),
		badgeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "badges_lookups_total",
			Help: "Badge renders by lookup outcome.",
		}, []string{"outcome"}),
		datasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "badges_dataset_loads_total",
			Help: "Leaderboard dataset loads by source and result.",
		}, []string{"source", "result"}),
		datasetEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "badges_dataset_entities",
			Help: "Number of ranked entities in the active index.",
		}),
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "badges_generated_total",
			Help: "Eagerly generated badge files by result.",
		}, []string{"result"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "badges_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half open, 2 open).",
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.badgeLookups,
		m.datasetLoads,
		m.datasetEntities,
		m.generated,
		m.breakerState,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records the status and latency of a routed request.
func (m *Metrics) ObserveRequest(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// IncLookup counts a badge render by outcome.
func (m *Metrics) IncLookup(outcome string) {
	if m == nil {
		return
	}
	m.badgeLookups.WithLabelValues(outcome).Inc()
}

// DatasetLoaded records a dataset load attempt and, on success, the size of
// the index built from it.
func (m *Metrics) DatasetLoaded(source string, entities int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.datasetLoads.WithLabelValues(source, "error").Inc()
		return
	}
	m.datasetLoads.WithLabelValues(source, "ok").Inc()
	m.datasetEntities.Set(float64(entities))
}

// IncGenerated counts eagerly generated badge files.
func (m *Metrics) IncGenerated(result string) {
	if m == nil {
		return
	}
	m.generated.WithLabelValues(result).Inc()
}

// SetBreakerState publishes the numeric breaker state for a target.
func (m *Metrics) SetBreakerState(target string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(target).Set(state)
}
