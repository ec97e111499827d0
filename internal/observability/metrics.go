// Package observability provides Prometheus metrics for monitoring the
// Voyago population engine.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voyago/voyago-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Provider  *metrics.ProviderMetrics
	Media     *metrics.MediaMetrics
	Populate  *metrics.PopulateMetrics
	Datastore *metrics.DatastoreMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	providerMetrics, err := metrics.NewProviderMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider metrics: %w", err)
	}

	mediaMetrics, err := metrics.NewMediaMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create media metrics: %w", err)
	}

	populateMetrics, err := metrics.NewPopulateMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create populate metrics: %w", err)
	}

	datastoreMetrics, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Provider:  providerMetrics,
		Media:     mediaMetrics,
		Populate:  populateMetrics,
		Datastore: datastoreMetrics,
	}, nil
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", m.Handler())
}
