package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/voyago/voyago-go/internal/conf"
	"github.com/voyago/voyago-go/internal/errors"
	"github.com/voyago/voyago-go/internal/logging"
	"github.com/voyago/voyago-go/internal/observability/metrics"
	"golang.org/x/time/rate"
)

// Package-level logger specific to the places service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "places.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "places", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize places file logger at %s: %v. Using discard logger.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "places")
		closeLogger = func() error { return nil }
	}
}

// Client provides methods for interacting with the places provider API.
// Calls are not retried internally; retrying API calls is the caller's choice,
// and photo download retry belongs to the media pipeline.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
	limiter    *rate.Limiter
	metrics    *metrics.ProviderMetrics
	debug      bool
}

// NewClient creates a new places provider API client
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("places provider API key is required").
			Category(errors.CategoryConfiguration).
			Component("places").
			Build()
	}

	// Use defaults for missing config values
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}
	if config.RateLimitPerSec == 0 {
		config.RateLimitPerSec = DefaultConfig().RateLimitPerSec
	}

	settings := conf.GetSettings()
	debug := settings != nil && (settings.Debug || settings.Places.Debug)

	client := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache:   cache.New(config.CacheTTL, config.CacheTTL*2),
		limiter: rate.NewLimiter(rate.Limit(config.RateLimitPerSec), 1),
		debug:   debug,
	}

	logger.Info("Places provider client initialized",
		"base_url", config.BaseURL,
		"cache_ttl", config.CacheTTL,
		"rate_limit_per_sec", config.RateLimitPerSec,
		"api_key_configured", config.APIKey != "")

	return client, nil
}

// SetMetrics attaches Prometheus metrics to the client.
func (c *Client) SetMetrics(m *metrics.ProviderMetrics) {
	c.metrics = m
}

// Close cleans up client resources
func (c *Client) Close() {
	logger.Info("Closing places provider client")
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing places logger: %v", err)
		}
	}
}

// Search performs a text search against the provider and returns candidate records.
// Results are intentionally not cached: the coordinator only calls Search on a
// coverage miss and expects fresh candidates.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]Candidate, error) {
	if strings.TrimSpace(term) == "" {
		return nil, errors.Newf("search term cannot be empty").
			Category(errors.CategoryValidation).
			Component("places").
			Build()
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/search?query=%s&limit=%d",
		c.config.BaseURL, url.QueryEscape(term), limit)

	var payload struct {
		Results []Candidate `json:"results"`
	}
	if err := c.doRequest(reqCtx, "search", http.MethodGet, endpoint, &payload); err != nil {
		return nil, err
	}

	return payload.Results, nil
}

// Details fetches the full provider record for one external id.
func (c *Client) Details(ctx context.Context, externalID string) (*Detail, error) {
	if externalID == "" {
		return nil, errors.Newf("external id cannot be empty").
			Category(errors.CategoryValidation).
			Component("places").
			Build()
	}

	cacheKey := "details:" + externalID
	if cached, found := c.cache.Get(cacheKey); found {
		if detail, ok := cached.(*Detail); ok {
			if c.debug {
				logger.Debug("Provider details cache hit", "external_id", externalID)
			}
			c.recordCacheLookup(true)
			return detail, nil
		}
	}
	c.recordCacheLookup(false)

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/details/%s", c.config.BaseURL, url.PathEscape(externalID))

	detail := &Detail{}
	if err := c.doRequest(reqCtx, "details", http.MethodGet, endpoint, detail); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, detail, cache.DefaultExpiration)

	return detail, nil
}

// Timezone resolves the IANA timezone id for a coordinate pair.
func (c *Client) Timezone(ctx context.Context, lat, lng float64) (*TimezoneInfo, error) {
	cacheKey := fmt.Sprintf("timezone:%.4f:%.4f", lat, lng)
	if cached, found := c.cache.Get(cacheKey); found {
		if info, ok := cached.(*TimezoneInfo); ok {
			c.recordCacheLookup(true)
			return info, nil
		}
	}
	c.recordCacheLookup(false)

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/timezone?lat=%s&lng=%s",
		c.config.BaseURL,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64))

	info := &TimezoneInfo{}
	if err := c.doRequest(reqCtx, "timezone", http.MethodGet, endpoint, info); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, info, cache.DefaultExpiration)

	return info, nil
}

// PhotoURL builds the full download URL for a remote photo reference.
// An empty reference yields an empty URL; the media pipeline treats that as an
// invalid reference and fails fast without retrying.
func (c *Client) PhotoURL(ref string) string {
	if ref == "" {
		return ""
	}
	return fmt.Sprintf("%s/photo?ref=%s&key=%s",
		c.config.BaseURL, url.QueryEscape(ref), url.QueryEscape(c.config.APIKey))
}

// doRequest performs one HTTP request with rate limiting and auth, recording
// request metrics per operation. Every failure is returned as an enhanced
// error; nothing is retried here.
func (c *Client) doRequest(ctx context.Context, operation, method, requestURL string, result any) error {
	start := time.Now()
	err := c.do(ctx, method, requestURL, result)
	if c.metrics != nil {
		c.metrics.IncrementRequests(operation)
		c.metrics.ObserveRequestDuration(time.Since(start).Seconds())
		if err != nil {
			c.metrics.IncrementRequestErrors(operation)
		}
	}
	return err
}

func (c *Client) do(ctx context.Context, method, requestURL string, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.New(err).
			Category(errors.CategoryCancellation).
			Context("url", requestURL).
			Component("places").
			Build()
	}

	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, requestURL, http.NoBody)
	if err != nil {
		return errors.Newf("failed to create HTTP request: %w", err).
			Category(errors.CategoryNetwork).
			Context("method", method).
			Context("url", requestURL).
			Context("request_id", reqID).
			Component("places").
			Build()
	}

	req.Header.Set("X-Api-Key", c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	if c.debug {
		logger.Debug("Provider API request",
			"method", method,
			"url", requestURL,
			"request_id", reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Provider API request failed",
			"error", err,
			"method", method,
			"url", requestURL,
			"request_id", reqID)
		return errors.Newf("HTTP request failed: %w", err).
			Category(categoryForTransportError(ctx, err)).
			Context("method", method).
			Context("url", requestURL).
			Context("request_id", reqID).
			Component("places").
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			_ = err
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Context("status_code", resp.StatusCode).
			Context("request_id", reqID).
			Component("places").
			Build()
	}

	if resp.StatusCode >= 400 {
		var apiErr Error
		if jsonErr := json.Unmarshal(bodyBytes, &apiErr); jsonErr != nil || apiErr.Detail == "" {
			apiErr.Detail = string(bodyBytes)
		}
		apiErr.Status = resp.StatusCode

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			logger.Error("Provider API authentication failed",
				"status_code", resp.StatusCode,
				"url", requestURL,
				"request_id", reqID,
				"message", "Check your places provider API key in the configuration")
		} else {
			logger.Warn("Provider API error response",
				"status_code", resp.StatusCode,
				"error_detail", apiErr.Detail,
				"url", requestURL,
				"request_id", reqID)
		}

		return errors.Newf("provider API error (status %d): %s", resp.StatusCode, apiErr.Detail).
			Category(getErrorCategory(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Context("url", requestURL).
			Context("request_id", reqID).
			Component("places").
			Build()
	}

	if result != nil {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			responsePreview := string(bodyBytes)
			if len(responsePreview) > 500 {
				responsePreview = responsePreview[:500] + "..."
			}
			logger.Error("Failed to parse provider API response",
				"error", err,
				"url", requestURL,
				"request_id", reqID,
				"response_preview", responsePreview)
			return errors.Newf("failed to parse provider response: %w", err).
				Category(errors.CategoryProvider).
				Context("url", requestURL).
				Context("response_size", len(bodyBytes)).
				Context("request_id", reqID).
				Component("places").
				Build()
		}
	}

	if c.debug {
		logger.Debug("Provider API response",
			"status_code", resp.StatusCode,
			"url", requestURL,
			"request_id", reqID,
			"duration_ms", time.Since(start).Milliseconds(),
			"response_size", len(bodyBytes))
	}

	return nil
}

// categoryForTransportError distinguishes timeouts and cancellations from
// generic transport failures.
func categoryForTransportError(ctx context.Context, err error) errors.ErrorCategory {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.CategoryTimeout
	case errors.Is(err, context.Canceled):
		return errors.CategoryCancellation
	default:
		return errors.CategoryNetwork
	}
}

// getErrorCategory determines the appropriate error category based on HTTP status code
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryConfiguration
	case http.StatusTooManyRequests:
		return errors.CategoryLimit
	case http.StatusNotFound:
		return errors.CategoryNotFound
	default:
		return errors.CategoryNetwork
	}
}

// recordCacheLookup counts one cache hit or miss when metrics are attached.
func (c *Client) recordCacheLookup(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.IncrementCacheHits()
	} else {
		c.metrics.IncrementCacheMisses()
	}
}

// ClearCache clears all cached provider responses
func (c *Client) ClearCache() {
	c.cache.Flush()
	logger.Info("Places provider cache cleared")
}
