// Package metrics provides custom Prometheus metrics for the Voyago components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics contains all Prometheus metrics related to the places provider client.
type ProviderMetrics struct {
	Requests        *prometheus.CounterVec
	RequestErrors   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	registry        *prometheus.Registry
}

// NewProviderMetrics creates a new instance of ProviderMetrics and registers
// it with the given registry.
func NewProviderMetrics(registry *prometheus.Registry) (*ProviderMetrics, error) {
	m := &ProviderMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register provider metrics: %w", err)
	}
	return m, nil
}

func (m *ProviderMetrics) initMetrics() {
	m.Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "places_provider_requests_total",
		Help: "Total number of requests sent to the places provider, by operation.",
	}, []string{"operation"})

	m.RequestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "places_provider_request_errors_total",
		Help: "Total number of failed places provider requests, by operation.",
	}, []string{"operation"})

	m.RequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "places_provider_request_duration_seconds",
		Help:    "Duration of places provider requests in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "places_provider_cache_hits_total",
		Help: "Total number of provider response cache hits.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "places_provider_cache_misses_total",
		Help: "Total number of provider response cache misses.",
	})
}

// IncrementRequests increases the request counter for the given operation.
func (m *ProviderMetrics) IncrementRequests(operation string) {
	m.Requests.WithLabelValues(operation).Inc()
}

// IncrementRequestErrors increases the error counter for the given operation.
func (m *ProviderMetrics) IncrementRequestErrors(operation string) {
	m.RequestErrors.WithLabelValues(operation).Inc()
}

// ObserveRequestDuration records the duration of one provider request in seconds.
func (m *ProviderMetrics) ObserveRequestDuration(durationSeconds float64) {
	m.RequestDuration.Observe(durationSeconds)
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *ProviderMetrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *ProviderMetrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *ProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Requests.Collect(ch)
	m.RequestErrors.Collect(ch)
	ch <- m.RequestDuration
	ch <- m.CacheHits
	ch <- m.CacheMisses
}

// Describe implements the prometheus.Collector interface.
func (m *ProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Requests.Describe(ch)
	m.RequestErrors.Describe(ch)
	ch <- m.RequestDuration.Desc()
	ch <- m.CacheHits.Desc()
	ch <- m.CacheMisses.Desc()
}
