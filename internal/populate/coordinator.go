// Package populate implements the cache-aside population workflow: search the
// local store first, and only when coverage falls short of the requested count
// pull candidates from the places provider, deduplicate them by external id,
// persist them and ingest their photos.
package populate

import (
	"context"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/voyago/voyago-go/internal/conf"
	"github.com/voyago/voyago-go/internal/datastore"
	"github.com/voyago/voyago-go/internal/errors"
	"github.com/voyago/voyago-go/internal/logging"
	"github.com/voyago/voyago-go/internal/media"
	"github.com/voyago/voyago-go/internal/observability/metrics"
	"github.com/voyago/voyago-go/internal/places"
)

// Package-level logger specific to the populate service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "populate.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "populate", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize populate file logger at %s: %v. Using discard logger.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "populate")
		closeLogger = func() error { return nil }
	}
}

// Tags that mark a provider "place" as a locality rather than a point of
// interest. Such records are stored but hidden from place searches.
var localityTags = map[string]struct{}{
	"locality":            {},
	"political":           {},
	"administrative_area": {},
}

// Provider is the subset of the places client the coordinator depends on.
// It is injected at construction so tests can substitute a fake.
type Provider interface {
	Search(ctx context.Context, term string, limit int) ([]places.Candidate, error)
	Details(ctx context.Context, externalID string) (*places.Detail, error)
	Timezone(ctx context.Context, lat, lng float64) (*places.TimezoneInfo, error)
	PhotoURL(ref string) string
}

// Ingestor is the subset of the media pipeline the coordinator depends on.
type Ingestor interface {
	Ingest(ctx context.Context, kind string, entityID uint, sources []media.Source) ([]media.Stored, error)
}

// CityResult is the outcome of a city coverage run: the matching rows and the
// unscoped total count after any population took place.
type CityResult struct {
	Cities []datastore.City
	Total  int64
}

// PlaceResult is the outcome of a place coverage run.
type PlaceResult struct {
	Places []datastore.Place
	Total  int64
}

// Coordinator orchestrates local reads, provider fetches, persistence and
// photo ingestion for one search term at a time.
type Coordinator struct {
	provider  Provider
	store     datastore.Interface
	media     Ingestor
	metrics   *metrics.PopulateMetrics
	needed    int
	maxPhotos int
	debug     bool
}

// New creates a coordinator. Default counts come from the application
// settings when available.
func New(provider Provider, store datastore.Interface, ingestor Ingestor) *Coordinator {
	needed := 5
	maxPhotos := 10
	debug := false

	if settings := conf.GetSettings(); settings != nil {
		if settings.Populate.DefaultNeededCount > 0 {
			needed = settings.Populate.DefaultNeededCount
		}
		if settings.Media.MaxPhotosPerEntity > 0 {
			maxPhotos = settings.Media.MaxPhotosPerEntity
		}
		debug = settings.Debug || settings.Populate.Debug
	}

	return &Coordinator{
		provider:  provider,
		store:     store,
		media:     ingestor,
		needed:    needed,
		maxPhotos: maxPhotos,
		debug:     debug,
	}
}

// SetMetrics attaches Prometheus metrics to the coordinator.
func (c *Coordinator) SetMetrics(m *metrics.PopulateMetrics) {
	c.metrics = m
}

// Close flushes and closes the coordinator's file logger.
func (c *Coordinator) Close() {
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing populate logger: %v", err)
		}
	}
}

// EnsureCityCoverage returns cities matching term, populating the local store
// from the provider first when fewer than needed rows exist. The provider is
// never contacted when local coverage is already sufficient, and provider
// failures degrade to whatever the local store already holds.
func (c *Coordinator) EnsureCityCoverage(ctx context.Context, term string, needed int) (*CityResult, error) {
	start := time.Now()
	if needed <= 0 {
		needed = c.needed
	}
	if c.metrics != nil {
		c.metrics.IncrementCoverageRuns("city")
	}

	rows, err := c.store.SearchCities(term, needed)
	if err != nil {
		return nil, err
	}

	if len(rows) >= needed {
		if c.metrics != nil {
			c.metrics.IncrementCoverageHits("city")
		}
		return c.cityResult(term, needed, start)
	}

	candidates, err := c.provider.Search(ctx, term, needed)
	if err != nil {
		logger.Warn("Provider search failed, serving local rows only",
			"term", term,
			"error", err)
		return c.cityResult(term, needed, start)
	}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryCancellation).
				Context("term", term).
				Component("populate").
				Build()
		}
		if err := c.populateCity(ctx, candidate); err != nil {
			return nil, err
		}
	}

	return c.cityResult(term, needed, start)
}

// populateCity turns one provider candidate into a stored city with photos.
// Provider errors are logged and skip the candidate; datastore errors abort
// the run.
func (c *Coordinator) populateCity(ctx context.Context, candidate places.Candidate) error {
	if candidate.ExternalID == "" {
		logger.Warn("Skipping provider candidate without external id", "name", candidate.Name)
		return nil
	}

	exists, err := c.store.CityExternalIDExists(candidate.ExternalID)
	if err != nil {
		return err
	}
	if exists {
		if c.debug {
			logger.Debug("Candidate already stored, skipping detail fetch",
				"external_id", candidate.ExternalID)
		}
		if c.metrics != nil {
			c.metrics.IncrementCandidatesSkipped()
		}
		return nil
	}

	detail, err := c.provider.Details(ctx, candidate.ExternalID)
	if err != nil {
		logger.Warn("Provider details fetch failed, skipping candidate",
			"external_id", candidate.ExternalID,
			"error", err)
		return nil
	}

	externalID := detail.ExternalID
	city := &datastore.City{
		ExternalID: &externalID,
		Name:       detail.Name,
		Latitude:   detail.Latitude,
		Longitude:  detail.Longitude,
	}
	if city.Name == "" {
		city.Name = candidate.Name
	}
	if city.Latitude == 0 && city.Longitude == 0 {
		city.Latitude = candidate.Latitude
		city.Longitude = candidate.Longitude
	}

	if detail.RegionCode != "" {
		region, err := c.store.GetOrCreateRegion(detail.RegionCode, detail.RegionName)
		if err != nil {
			return err
		}
		city.RegionID = region.ID
	}

	// Best-effort: a missing timezone never blocks entity creation, and a
	// candidate without coordinates has nothing to resolve.
	if city.Latitude != 0 || city.Longitude != 0 {
		if tz, err := c.provider.Timezone(ctx, city.Latitude, city.Longitude); err != nil {
			logger.Warn("Timezone lookup failed",
				"external_id", externalID,
				"error", err)
		} else if tz.TimezoneID != "" {
			city.Timezone = &tz.TimezoneID
		}
	}

	saved, err := c.store.UpsertCity(city)
	if err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.IncrementEntitiesCreated("city")
	}

	stored, err := c.ingestPhotos(ctx, media.KindCity, saved.ID, detail.Photos)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return nil
	}

	photos := make([]datastore.CityPhoto, 0, len(stored))
	for _, s := range stored {
		photos = append(photos, datastore.CityPhoto{
			CityID:      saved.ID,
			PhotoOrder:  s.PhotoOrder,
			ExternalRef: s.ExternalRef,
			Attribution: s.Attribution,
			SmallPath:   s.SmallPath,
			MediumPath:  s.MediumPath,
			LargePath:   s.LargePath,
		})
	}
	return c.store.InsertCityPhotos(photos)
}

// EnsurePlaceCoverage returns places matching term within a city, populating
// the local store from the provider first when fewer than needed rows exist.
func (c *Coordinator) EnsurePlaceCoverage(ctx context.Context, term string, cityID uint, needed int) (*PlaceResult, error) {
	start := time.Now()
	if needed <= 0 {
		needed = c.needed
	}
	if c.metrics != nil {
		c.metrics.IncrementCoverageRuns("place")
	}

	rows, err := c.store.SearchPlaces(term, cityID, needed)
	if err != nil {
		return nil, err
	}

	if len(rows) >= needed {
		if c.metrics != nil {
			c.metrics.IncrementCoverageHits("place")
		}
		return c.placeResult(term, cityID, needed, start)
	}

	candidates, err := c.provider.Search(ctx, term, needed)
	if err != nil {
		logger.Warn("Provider search failed, serving local rows only",
			"term", term,
			"city_id", cityID,
			"error", err)
		return c.placeResult(term, cityID, needed, start)
	}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryCancellation).
				Context("term", term).
				Component("populate").
				Build()
		}
		if err := c.populatePlace(ctx, candidate, cityID); err != nil {
			return nil, err
		}
	}

	return c.placeResult(term, cityID, needed, start)
}

func (c *Coordinator) populatePlace(ctx context.Context, candidate places.Candidate, cityID uint) error {
	if candidate.ExternalID == "" {
		logger.Warn("Skipping provider candidate without external id", "name", candidate.Name)
		return nil
	}

	exists, err := c.store.PlaceExternalIDExists(candidate.ExternalID)
	if err != nil {
		return err
	}
	if exists {
		if c.debug {
			logger.Debug("Candidate already stored, skipping detail fetch",
				"external_id", candidate.ExternalID)
		}
		if c.metrics != nil {
			c.metrics.IncrementCandidatesSkipped()
		}
		return nil
	}

	detail, err := c.provider.Details(ctx, candidate.ExternalID)
	if err != nil {
		logger.Warn("Provider details fetch failed, skipping candidate",
			"external_id", candidate.ExternalID,
			"error", err)
		return nil
	}

	externalID := detail.ExternalID
	place := &datastore.Place{
		ExternalID: &externalID,
		Name:       detail.Name,
		CityID:     cityID,
		Latitude:   detail.Latitude,
		Longitude:  detail.Longitude,
		Rating:     detail.Rating,
		PriceLevel: detail.PriceLevel,
		Visible:    !isLocality(detail.CategoryTags),
	}
	if place.Name == "" {
		place.Name = candidate.Name
	}
	if place.Latitude == 0 && place.Longitude == 0 {
		place.Latitude = candidate.Latitude
		place.Longitude = candidate.Longitude
	}
	place.SetTags(detail.CategoryTags)

	if place.Latitude != 0 || place.Longitude != 0 {
		if tz, err := c.provider.Timezone(ctx, place.Latitude, place.Longitude); err != nil {
			logger.Warn("Timezone lookup failed",
				"external_id", externalID,
				"error", err)
		} else if tz.TimezoneID != "" {
			place.Timezone = &tz.TimezoneID
		}
	}

	saved, err := c.store.UpsertPlace(place)
	if err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.IncrementEntitiesCreated("place")
	}

	stored, err := c.ingestPhotos(ctx, media.KindPlace, saved.ID, detail.Photos)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return nil
	}

	photos := make([]datastore.PlacePhoto, 0, len(stored))
	for _, s := range stored {
		photos = append(photos, datastore.PlacePhoto{
			PlaceID:     saved.ID,
			PhotoOrder:  s.PhotoOrder,
			ExternalRef: s.ExternalRef,
			Attribution: s.Attribution,
			SmallPath:   s.SmallPath,
			MediumPath:  s.MediumPath,
			LargePath:   s.LargePath,
		})
	}
	return c.store.InsertPlacePhotos(photos)
}

// ingestPhotos runs the media pipeline for up to maxPhotos references.
// Pipeline failures are logged and leave the entity without photos; only
// cancellation propagates.
func (c *Coordinator) ingestPhotos(ctx context.Context, kind string, entityID uint, refs []places.PhotoRef) ([]media.Stored, error) {
	if len(refs) == 0 || c.media == nil {
		return nil, nil
	}
	if len(refs) > c.maxPhotos {
		refs = refs[:c.maxPhotos]
	}

	sources := make([]media.Source, 0, len(refs))
	for _, ref := range refs {
		sources = append(sources, media.Source{
			URL:         c.provider.PhotoURL(ref.Ref),
			ExternalRef: ref.Ref,
			Attribution: ref.Attribution,
		})
	}

	stored, err := c.media.Ingest(ctx, kind, entityID, sources)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logger.Warn("Photo ingestion failed for entity",
			"kind", kind,
			"entity_id", entityID,
			"error", err)
		return nil, nil
	}
	return stored, nil
}

func (c *Coordinator) cityResult(term string, needed int, start time.Time) (*CityResult, error) {
	rows, err := c.store.SearchCities(term, needed)
	if err != nil {
		return nil, err
	}
	total, err := c.store.CountCities(term)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.ObserveRunDuration(time.Since(start).Seconds())
	}
	return &CityResult{Cities: rows, Total: total}, nil
}

func (c *Coordinator) placeResult(term string, cityID uint, needed int, start time.Time) (*PlaceResult, error) {
	rows, err := c.store.SearchPlaces(term, cityID, needed)
	if err != nil {
		return nil, err
	}
	total, err := c.store.CountPlaces(term, cityID)
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.ObserveRunDuration(time.Since(start).Seconds())
	}
	return &PlaceResult{Places: rows, Total: total}, nil
}

// isLocality reports whether the provider tags mark the record as a city-like
// entity rather than a point of interest.
func isLocality(tags []string) bool {
	for _, tag := range tags {
		if _, ok := localityTags[tag]; ok {
			return true
		}
	}
	return false
}
