// Package metrics exposes Prometheus collectors for the server and the workers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fintrack"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	events       *prometheus.CounterVec
	recurring    prometheus.Counter
	mirrorSyncs  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_total",
			Help:      "Ledger events by kind and outcome.",
		}, []string{"kind", "result"}),
		recurring: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_materialized_total",
			Help:      "Expenses created from recurring templates.",
		}),
		mirrorSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheet_mirror_syncs_total",
			Help:      "Spreadsheet mirror rewrites by outcome.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.events, m.recurring, m.mirrorSyncs,
	)
	return m
}

// RegisterCacheStats exposes hit and miss counts read from stats on scrape.
func (m *Metrics) RegisterCacheStats(name string, stats func() (hits, misses uint64)) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_hits_total",
			Help:        "Cache hits.",
			ConstLabels: prometheus.Labels{"cache": name},
		}, func() float64 { h, _ := stats(); return float64(h) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_misses_total",
			Help:        "Cache misses.",
			ConstLabels: prometheus.Labels{"cache": name},
		}, func() float64 { _, miss := stats(); return float64(miss) }),
	)
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// EventPublished counts a publish attempt; err nil means it reached the broker.
func (m *Metrics) EventPublished(kind string, err error) {
	m.events.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Metrics) RecurringMaterialized(n int) {
	m.recurring.Add(float64(n))
}

func (m *Metrics) MirrorSynced(err error) {
	m.mirrorSyncs.WithLabelValues(outcome(err)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests and for callers adding their own collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
