package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PopulateMetrics contains all Prometheus metrics related to coverage runs.
type PopulateMetrics struct {
	CoverageRuns      *prometheus.CounterVec
	CoverageHits      *prometheus.CounterVec
	EntitiesCreated   *prometheus.CounterVec
	CandidatesSkipped prometheus.Counter
	RunDuration       prometheus.Histogram
	registry          *prometheus.Registry
}

// NewPopulateMetrics creates a new instance of PopulateMetrics and registers
// it with the given registry.
func NewPopulateMetrics(registry *prometheus.Registry) (*PopulateMetrics, error) {
	m := &PopulateMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register populate metrics: %w", err)
	}
	return m, nil
}

func (m *PopulateMetrics) initMetrics() {
	m.CoverageRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "populate_coverage_runs_total",
		Help: "Total number of coverage runs, by entity type.",
	}, []string{"entity"})

	m.CoverageHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "populate_coverage_hits_total",
		Help: "Total number of coverage runs satisfied from local data alone, by entity type.",
	}, []string{"entity"})

	m.EntitiesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "populate_entities_created_total",
		Help: "Total number of entities created from provider records, by entity type.",
	}, []string{"entity"})

	m.CandidatesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "populate_candidates_skipped_total",
		Help: "Total number of provider candidates skipped because their external id was already stored.",
	})

	m.RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "populate_run_duration_seconds",
		Help:    "Duration of coverage runs in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
}

// IncrementCoverageRuns increases the run counter for the given entity type.
func (m *PopulateMetrics) IncrementCoverageRuns(entity string) {
	m.CoverageRuns.WithLabelValues(entity).Inc()
}

// IncrementCoverageHits increases the local-hit counter for the given entity type.
func (m *PopulateMetrics) IncrementCoverageHits(entity string) {
	m.CoverageHits.WithLabelValues(entity).Inc()
}

// IncrementEntitiesCreated increases the created counter for the given entity type.
func (m *PopulateMetrics) IncrementEntitiesCreated(entity string) {
	m.EntitiesCreated.WithLabelValues(entity).Inc()
}

// IncrementCandidatesSkipped increases the skipped candidate counter by one.
func (m *PopulateMetrics) IncrementCandidatesSkipped() {
	m.CandidatesSkipped.Inc()
}

// ObserveRunDuration records the duration of one coverage run in seconds.
func (m *PopulateMetrics) ObserveRunDuration(durationSeconds float64) {
	m.RunDuration.Observe(durationSeconds)
}

// Collect implements the prometheus.Collector interface.
func (m *PopulateMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CoverageRuns.Collect(ch)
	m.CoverageHits.Collect(ch)
	m.EntitiesCreated.Collect(ch)
	ch <- m.CandidatesSkipped
	ch <- m.RunDuration
}

// Describe implements the prometheus.Collector interface.
func (m *PopulateMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CoverageRuns.Describe(ch)
	m.CoverageHits.Describe(ch)
	m.EntitiesCreated.Describe(ch)
	ch <- m.CandidatesSkipped.Desc()
	ch <- m.RunDuration.Desc()
}
