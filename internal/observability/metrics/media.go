package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MediaMetrics contains all Prometheus metrics related to the photo pipeline.
type MediaMetrics struct {
	PhotoDownloads   prometheus.Counter
	DownloadErrors   prometheus.Counter
	DownloadRetries  prometheus.Counter
	DownloadDuration prometheus.Histogram
	PhotosStored     prometheus.Counter
	ResizeErrors     prometheus.Counter
	registry         *prometheus.Registry
}

// NewMediaMetrics creates a new instance of MediaMetrics and registers it
// with the given registry.
func NewMediaMetrics(registry *prometheus.Registry) (*MediaMetrics, error) {
	m := &MediaMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register media metrics: %w", err)
	}
	return m, nil
}

func (m *MediaMetrics) initMetrics() {
	m.PhotoDownloads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_photo_downloads_total",
		Help: "Total number of successful photo downloads.",
	})

	m.DownloadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_photo_download_errors_total",
		Help: "Total number of photos that failed to download after all retries.",
	})

	m.DownloadRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_photo_download_retries_total",
		Help: "Total number of photo download retry attempts.",
	})

	m.DownloadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "media_photo_download_duration_seconds",
		Help:    "Duration of photo downloads in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	m.PhotosStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_photos_stored_total",
		Help: "Total number of photos stored with all size variants written.",
	})

	m.ResizeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_resize_errors_total",
		Help: "Total number of photos dropped because a size variant failed to encode.",
	})
}

// IncrementPhotoDownloads increases the download counter by one.
func (m *MediaMetrics) IncrementPhotoDownloads() {
	m.PhotoDownloads.Inc()
}

// IncrementDownloadErrors increases the download error counter by one.
func (m *MediaMetrics) IncrementDownloadErrors() {
	m.DownloadErrors.Inc()
}

// IncrementDownloadRetries increases the retry counter by one.
func (m *MediaMetrics) IncrementDownloadRetries() {
	m.DownloadRetries.Inc()
}

// ObserveDownloadDuration records the duration of one photo download in seconds.
func (m *MediaMetrics) ObserveDownloadDuration(durationSeconds float64) {
	m.DownloadDuration.Observe(durationSeconds)
}

// IncrementPhotosStored increases the stored photo counter by one.
func (m *MediaMetrics) IncrementPhotosStored() {
	m.PhotosStored.Inc()
}

// IncrementResizeErrors increases the resize error counter by one.
func (m *MediaMetrics) IncrementResizeErrors() {
	m.ResizeErrors.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *MediaMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.PhotoDownloads
	ch <- m.DownloadErrors
	ch <- m.DownloadRetries
	ch <- m.DownloadDuration
	ch <- m.PhotosStored
	ch <- m.ResizeErrors
}

// Describe implements the prometheus.Collector interface.
func (m *MediaMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.PhotoDownloads.Desc()
	ch <- m.DownloadErrors.Desc()
	ch <- m.DownloadRetries.Desc()
	ch <- m.DownloadDuration.Desc()
	ch <- m.PhotosStored.Desc()
	ch <- m.ResizeErrors.Desc()
}
