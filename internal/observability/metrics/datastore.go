package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains all Prometheus metrics related to database operations.
type DatastoreMetrics struct {
	Operations        *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	OperationDuration prometheus.Histogram
	registry          *prometheus.Registry
}

// NewDatastoreMetrics creates a new instance of DatastoreMetrics and registers
// it with the given registry.
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register datastore metrics: %w", err)
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datastore_operations_total",
		Help: "Total number of datastore operations, by operation name.",
	}, []string{"operation"})

	m.OperationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datastore_operation_errors_total",
		Help: "Total number of failed datastore operations, by operation name.",
	}, []string{"operation"})

	m.OperationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "datastore_operation_duration_seconds",
		Help:    "Duration of datastore operations in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
}

// IncrementOperations increases the operation counter for the given operation.
func (m *DatastoreMetrics) IncrementOperations(operation string) {
	m.Operations.WithLabelValues(operation).Inc()
}

// IncrementOperationErrors increases the error counter for the given operation.
func (m *DatastoreMetrics) IncrementOperationErrors(operation string) {
	m.OperationErrors.WithLabelValues(operation).Inc()
}

// ObserveOperationDuration records the duration of one datastore operation in seconds.
func (m *DatastoreMetrics) ObserveOperationDuration(durationSeconds float64) {
	m.OperationDuration.Observe(durationSeconds)
}

// Collect implements the prometheus.Collector interface.
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Operations.Collect(ch)
	m.OperationErrors.Collect(ch)
	ch <- m.OperationDuration
}

// Describe implements the prometheus.Collector interface.
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Operations.Describe(ch)
	m.OperationErrors.Describe(ch)
	ch <- m.OperationDuration.Desc()
}
