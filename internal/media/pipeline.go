// Package media downloads remote photos and stores them on disk as a fixed
// set of JPEG size variants. Downloads run with bounded concurrency and are
// retried with exponential backoff; a photo is only reported as stored once
// every variant has been written.
package media

import (
	"context"
	"image"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/voyago/voyago-go/internal/conf"
	"github.com/voyago/voyago-go/internal/errors"
	"github.com/voyago/voyago-go/internal/logging"
	"github.com/voyago/voyago-go/internal/observability/metrics"
)

// Entity kinds name the directory a photo batch is stored under.
const (
	KindCity  = "cities"
	KindPlace = "places"
)

// Package-level logger specific to the media pipeline
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "media.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "media", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize media file logger at %s: %v. Using discard logger.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "media")
		closeLogger = func() error { return nil }
	}
}

// Source identifies one remote photo to ingest.
type Source struct {
	URL         string
	ExternalRef string
	Attribution string
}

// Stored describes one successfully ingested photo. PhotoOrder values in a
// batch result are contiguous from zero regardless of which sources failed.
type Stored struct {
	PhotoOrder  int
	ExternalRef string
	Attribution string
	SmallPath   string
	MediumPath  string
	LargePath   string
}

// Config holds the photo pipeline configuration
type Config struct {
	BasePath        string
	MaxConcurrent   int
	DownloadTimeout time.Duration
	Retry           RetryPolicy
	JPEGQuality     int
}

// DefaultConfig returns the default photo pipeline configuration
func DefaultConfig() Config {
	return Config{
		BasePath:        "media",
		MaxConcurrent:   10,
		DownloadTimeout: 30 * time.Second,
		Retry:           DefaultRetryPolicy(),
		JPEGQuality:     defaultJPEGQuality,
	}
}

// Ingestor downloads photo batches and writes their size variants to disk.
type Ingestor struct {
	config     Config
	httpClient *http.Client
	metrics    *metrics.MediaMetrics
	debug      bool
}

// NewIngestor creates a photo pipeline with the given configuration,
// backfilling zero values from DefaultConfig.
func NewIngestor(config Config) *Ingestor {
	defaults := DefaultConfig()
	if config.BasePath == "" {
		config.BasePath = defaults.BasePath
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.DownloadTimeout == 0 {
		config.DownloadTimeout = defaults.DownloadTimeout
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = defaults.Retry
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = defaults.JPEGQuality
	}

	settings := conf.GetSettings()
	debug := settings != nil && (settings.Debug || settings.Media.Debug)

	return &Ingestor{
		config: config,
		httpClient: &http.Client{
			Timeout: config.DownloadTimeout,
		},
		debug: debug,
	}
}

// SetMetrics attaches Prometheus metrics to the pipeline.
func (i *Ingestor) SetMetrics(m *metrics.MediaMetrics) {
	i.metrics = m
}

// Close flushes and closes the pipeline's file logger.
func (i *Ingestor) Close() {
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing media logger: %v", err)
		}
	}
}

// Ingest downloads every source with bounded concurrency and writes the size
// variants of the ones that succeed under {base}/{kind}/{entityID}/.
//
// A failed source never fails the batch: it is logged, its partial files are
// removed, and the remaining photos are renumbered so that the returned
// PhotoOrder values stay contiguous from zero. Only context cancellation
// aborts the whole batch.
func (i *Ingestor) Ingest(ctx context.Context, kind string, entityID uint, sources []Source) ([]Stored, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	if kind != KindCity && kind != KindPlace {
		return nil, errors.Newf("unknown entity kind: %s", kind).
			Category(errors.CategoryValidation).
			Component("media").
			Build()
	}

	decoded := make([]image.Image, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.config.MaxConcurrent)

	for idx := range sources {
		g.Go(func() error {
			img, err := i.fetchAndDecode(gctx, sources[idx])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("Photo ingestion failed",
					"kind", kind,
					"entity_id", entityID,
					"source_index", idx,
					"external_ref", sources[idx].ExternalRef,
					"error", err)
				if i.metrics != nil {
					i.metrics.IncrementDownloadErrors()
				}
				return nil
			}
			decoded[idx] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryCancellation).
			Context("kind", kind).
			Context("entity_id", entityID).
			Component("media").
			Build()
	}

	dir := filepath.Join(i.config.BasePath, kind, strconv.FormatUint(uint64(entityID), 10))

	stored := make([]Stored, 0, len(sources))
	for idx := range sources {
		if decoded[idx] == nil {
			continue
		}
		order := len(stored)
		paths, err := writeVariants(decoded[idx], dir, order, i.config.JPEGQuality)
		if err != nil {
			logger.Warn("Photo variant write failed",
				"kind", kind,
				"entity_id", entityID,
				"source_index", idx,
				"error", err)
			if i.metrics != nil {
				i.metrics.IncrementResizeErrors()
			}
			continue
		}
		stored = append(stored, Stored{
			PhotoOrder:  order,
			ExternalRef: sources[idx].ExternalRef,
			Attribution: sources[idx].Attribution,
			SmallPath:   paths["small"],
			MediumPath:  paths["medium"],
			LargePath:   paths["large"],
		})
		if i.metrics != nil {
			i.metrics.IncrementPhotosStored()
		}
	}

	logger.Info("Photo batch ingested",
		"kind", kind,
		"entity_id", entityID,
		"requested", len(sources),
		"stored", len(stored))

	return stored, nil
}

// fetchAndDecode downloads one photo with retries and decodes it. Transport
// errors and server-side failures are retried per the retry policy; client
// errors and undecodable payloads are permanent.
func (i *Ingestor) fetchAndDecode(ctx context.Context, src Source) (image.Image, error) {
	if src.URL == "" {
		return nil, errors.Newf("photo source has no download URL").
			Category(errors.CategoryValidation).
			Context("external_ref", src.ExternalRef).
			Component("media").
			Build()
	}

	var lastErr error
	for attempt := 0; attempt < i.config.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if i.metrics != nil {
				i.metrics.IncrementDownloadRetries()
			}
			if err := i.config.Retry.Wait(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		img, retryable, err := i.download(ctx, src.URL)
		if err == nil {
			return img, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		if i.debug {
			logger.Debug("Photo download attempt failed",
				"url", src.URL,
				"attempt", attempt+1,
				"will_retry", attempt < i.config.Retry.MaxAttempts-1,
				"error", err)
		}
	}

	return nil, errors.Newf("photo download failed after %d attempts: %w", i.config.Retry.MaxAttempts, lastErr).
		Category(errors.CategoryImageFetch).
		Context("url", src.URL).
		Context("max_attempts", i.config.Retry.MaxAttempts).
		Component("media").
		Build()
}

// download performs a single fetch attempt. The payload is spooled to a
// temporary file before decoding so a broken connection mid-body never
// leaves a half-read image in memory as a decode candidate.
func (i *Ingestor) download(ctx context.Context, photoURL string) (img image.Image, retryable bool, err error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, http.NoBody)
	if err != nil {
		return nil, false, errors.Newf("failed to create download request: %w", err).
			Category(errors.CategoryImageFetch).
			Context("url", photoURL).
			Component("media").
			Build()
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, true, errors.Newf("photo download failed: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", photoURL).
			Component("media").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		// Server-side failures are worth retrying, client errors are not.
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, errors.Newf("photo download returned status %d", resp.StatusCode).
			Category(errors.CategoryImageFetch).
			Context("url", photoURL).
			Context("status_code", resp.StatusCode).
			Component("media").
			Build()
	}

	tmp, err := os.CreateTemp("", "voyago-photo-*")
	if err != nil {
		return nil, false, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("url", photoURL).
			Component("media").
			Build()
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return nil, true, errors.Newf("failed to spool photo to disk: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", photoURL).
			Component("media").
			Build()
	}
	if err := tmp.Close(); err != nil {
		return nil, false, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("url", photoURL).
			Component("media").
			Build()
	}

	decodedImg, err := imaging.Open(tmpName)
	if err != nil {
		return nil, false, errors.Newf("failed to decode photo: %w", err).
			Category(errors.CategoryImageResize).
			Context("url", photoURL).
			Component("media").
			Build()
	}

	if i.metrics != nil {
		i.metrics.IncrementPhotoDownloads()
		i.metrics.ObserveDownloadDuration(time.Since(start).Seconds())
	}

	return decodedImg, false, nil
}

// BasePath returns the directory photo variants are written under.
func (i *Ingestor) BasePath() string {
	return i.config.BasePath
}
