package populate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voyago/voyago-go/internal/datastore"
	"github.com/voyago/voyago-go/internal/errors"
	"github.com/voyago/voyago-go/internal/media"
	"github.com/voyago/voyago-go/internal/places"
)

// testStore adapts an in-memory DataStore to the full datastore interface.
type testStore struct {
	*datastore.DataStore
}

func (s *testStore) Open() error  { return nil }
func (s *testStore) Close() error { return nil }

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&datastore.Region{}, &datastore.City{}, &datastore.Place{},
		&datastore.CityPhoto{}, &datastore.PlacePhoto{}))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return &testStore{DataStore: &datastore.DataStore{DB: db}}
}

// mockProvider is a canned places provider with per-operation call counters.
type mockProvider struct {
	candidates []places.Candidate
	details    map[string]*places.Detail

	searchErr   error
	detailsErr  error
	timezoneErr error
	timezoneID  string

	searchCalls   int
	detailsCalls  map[string]int
	timezoneCalls int
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		details:      make(map[string]*places.Detail),
		detailsCalls: make(map[string]int),
		timezoneID:   "America/Chicago",
	}
}

func (m *mockProvider) Search(_ context.Context, term string, limit int) ([]places.Candidate, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.candidates, nil
}

func (m *mockProvider) Details(_ context.Context, externalID string) (*places.Detail, error) {
	m.detailsCalls[externalID]++
	if m.detailsErr != nil {
		return nil, m.detailsErr
	}
	detail, ok := m.details[externalID]
	if !ok {
		return nil, errors.Newf("no detail for %s", externalID).
			Category(errors.CategoryNotFound).
			Component("places").
			Build()
	}
	return detail, nil
}

func (m *mockProvider) Timezone(_ context.Context, lat, lng float64) (*places.TimezoneInfo, error) {
	m.timezoneCalls++
	if m.timezoneErr != nil {
		return nil, m.timezoneErr
	}
	return &places.TimezoneInfo{TimezoneID: m.timezoneID}, nil
}

func (m *mockProvider) PhotoURL(ref string) string {
	if ref == "" {
		return ""
	}
	return "https://provider.test/photo?ref=" + ref
}

// addCityCandidate registers a candidate with a matching detail record.
func (m *mockProvider) addCityCandidate(id, name, regionCode string, photos ...places.PhotoRef) {
	m.candidates = append(m.candidates, places.Candidate{
		ExternalID: id, Name: name, Latitude: 30.26, Longitude: -97.74, Kind: "city",
	})
	m.details[id] = &places.Detail{
		ExternalID: id,
		Name:       name,
		RegionCode: regionCode,
		RegionName: "United States",
		Latitude:   30.26,
		Longitude:  -97.74,
		Photos:     photos,
	}
}

// fakeIngestor pretends every source was downloaded and resized successfully.
type fakeIngestor struct {
	calls        int
	lastKind     string
	lastEntityID uint
	lastSources  []media.Source
}

func (f *fakeIngestor) Ingest(_ context.Context, kind string, entityID uint, sources []media.Source) ([]media.Stored, error) {
	f.calls++
	f.lastKind = kind
	f.lastEntityID = entityID
	f.lastSources = sources

	stored := make([]media.Stored, 0, len(sources))
	for i, src := range sources {
		stored = append(stored, media.Stored{
			PhotoOrder:  i,
			ExternalRef: src.ExternalRef,
			Attribution: src.Attribution,
			SmallPath:   fmt.Sprintf("media/%s/%d/%d_small.jpg", kind, entityID, i),
			MediumPath:  fmt.Sprintf("media/%s/%d/%d_medium.jpg", kind, entityID, i),
			LargePath:   fmt.Sprintf("media/%s/%d/%d_large.jpg", kind, entityID, i),
		})
	}
	return stored, nil
}

func seedCities(t *testing.T, store *testStore, names ...string) {
	t.Helper()
	for i, name := range names {
		externalID := fmt.Sprintf("seed-city-%d", i)
		city := datastore.City{ExternalID: &externalID, Name: name, Latitude: 30, Longitude: -97}
		require.NoError(t, store.DB.Create(&city).Error)
	}
}

func TestEnsureCityCoverage_SufficientLocalRowsSkipsProvider(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	seedCities(t, store, "Austin", "Austin North", "Austintown", "Port Austin", "Austin Mill")

	coordinator := New(provider, store, &fakeIngestor{})

	result, err := coordinator.EnsureCityCoverage(context.Background(), "Austin", 5)

	require.NoError(t, err)
	assert.Len(t, result.Cities, 5)
	assert.EqualValues(t, 5, result.Total)
	assert.Equal(t, 0, provider.searchCalls, "provider must not be called when coverage is sufficient")
}

func TestEnsureCityCoverage_PopulatesOnMiss(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	seedCities(t, store, "Austin", "Austintown")
	provider.addCityCandidate("prov-austin-tx", "Austin", "US")
	provider.addCityCandidate("prov-austin-mn", "Austin South", "US")
	provider.addCityCandidate("prov-austin-ar", "Austin Heights", "US")

	coordinator := New(provider, store, &fakeIngestor{})

	result, err := coordinator.EnsureCityCoverage(context.Background(), "Austin", 5)

	require.NoError(t, err)
	assert.Equal(t, 1, provider.searchCalls)
	assert.Len(t, result.Cities, 5)
	assert.EqualValues(t, 5, result.Total)

	// Region and timezone resolved for new rows.
	city, err := store.GetCity(result.Cities[0].ID)
	require.NoError(t, err)
	assert.NotZero(t, city.ID)
}

func TestEnsureCityCoverage_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	provider.addCityCandidate("prov-austin-tx", "Austin", "US")

	coordinator := New(provider, store, &fakeIngestor{})

	_, err := coordinator.EnsureCityCoverage(context.Background(), "Austin", 5)
	require.NoError(t, err)
	_, err = coordinator.EnsureCityCoverage(context.Background(), "Austin", 5)
	require.NoError(t, err)

	var count int64
	require.NoError(t, store.DB.Model(&datastore.City{}).
		Where("external_id = ?", "prov-austin-tx").Count(&count).Error)
	assert.EqualValues(t, 1, count, "two coverage runs must not duplicate an external id")

	// The second run must skip the detail fetch for the known candidate.
	assert.Equal(t, 1, provider.detailsCalls["prov-austin-tx"])
}

func TestEnsureCityCoverage_ProviderFailureDegrades(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	provider.searchErr = errors.Newf("provider timeout").
		Category(errors.CategoryTimeout).
		Component("places").
		Build()
	seedCities(t, store, "Austin", "Austintown")

	coordinator := New(provider, store, &fakeIngestor{})

	result, err := coordinator.EnsureCityCoverage(context.Background(), "Austin", 5)

	require.NoError(t, err, "provider failure must not propagate")
	assert.Len(t, result.Cities, 2)
	assert.EqualValues(t, 2, result.Total)
}

func TestEnsureCityCoverage_TimezoneFailureIsBestEffort(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	provider.addCityCandidate("prov-austin-tx", "Austin", "US")
	provider.timezoneErr = errors.Newf("timezone service down").
		Category(errors.CategoryNetwork).
		Component("places").
		Build()

	coordinator := New(provider, store, &fakeIngestor{})

	result, err := coordinator.EnsureCityCoverage(context.Background(), "Austin", 5)

	require.NoError(t, err)
	require.Len(t, result.Cities, 1)
	assert.Nil(t, result.Cities[0].Timezone)
}

func TestEnsureCityCoverage_SkipsTimezoneWithoutCoordinates(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	provider.candidates = append(provider.candidates, places.Candidate{
		ExternalID: "prov-nowhere", Name: "Nowhere", Kind: "city",
	})
	provider.details["prov-nowhere"] = &places.Detail{ExternalID: "prov-nowhere", Name: "Nowhere"}

	coordinator := New(provider, store, &fakeIngestor{})

	result, err := coordinator.EnsureCityCoverage(context.Background(), "Nowhere", 1)

	require.NoError(t, err)
	require.Len(t, result.Cities, 1)
	assert.Nil(t, result.Cities[0].Timezone)
	// Without coordinates there is nothing to resolve.
	assert.Equal(t, 0, provider.timezoneCalls)
}

func TestEnsureCityCoverage_DetailFailureSkipsCandidate(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	provider.addCityCandidate("prov-austin-tx", "Austin", "US")
	provider.addCityCandidate("prov-broken", "Austin East", "US")
	delete(provider.details, "prov-broken")

	coordinator := New(provider, store, &fakeIngestor{})

	result, err := coordinator.EnsureCityCoverage(context.Background(), "Austin", 5)

	require.NoError(t, err)
	assert.Len(t, result.Cities, 1)
	assert.Equal(t, "Austin", result.Cities[0].Name)
}

func TestEnsureCityCoverage_IngestsPhotos(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	provider.addCityCandidate("prov-austin-tx", "Austin", "US",
		places.PhotoRef{Ref: "photo-1", Attribution: "One"},
		places.PhotoRef{Ref: "photo-2", Attribution: "Two"})
	ingestor := &fakeIngestor{}

	coordinator := New(provider, store, ingestor)

	result, err := coordinator.EnsureCityCoverage(context.Background(), "Austin", 5)

	require.NoError(t, err)
	require.Len(t, result.Cities, 1)
	assert.Equal(t, media.KindCity, ingestor.lastKind)
	assert.Equal(t, result.Cities[0].ID, ingestor.lastEntityID)
	require.Len(t, ingestor.lastSources, 2)
	assert.Equal(t, "https://provider.test/photo?ref=photo-1", ingestor.lastSources[0].URL)

	photos, err := store.CityPhotos(result.Cities[0].ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	for i, p := range photos {
		assert.Equal(t, i, p.PhotoOrder)
	}
}

func TestEnsureCityCoverage_CapsPhotoCount(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	refs := make([]places.PhotoRef, 0, 12)
	for i := 0; i < 12; i++ {
		refs = append(refs, places.PhotoRef{Ref: fmt.Sprintf("photo-%d", i)})
	}
	provider.addCityCandidate("prov-austin-tx", "Austin", "US", refs...)
	ingestor := &fakeIngestor{}

	coordinator := New(provider, store, ingestor)

	_, err := coordinator.EnsureCityCoverage(context.Background(), "Austin", 5)

	require.NoError(t, err)
	assert.Len(t, ingestor.lastSources, 10)
}

func TestEnsurePlaceCoverage_HidesLocalities(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	provider.candidates = []places.Candidate{
		{ExternalID: "prov-museum", Name: "History Museum", Latitude: 30.26, Longitude: -97.74},
		{ExternalID: "prov-downtown", Name: "Downtown", Latitude: 30.27, Longitude: -97.75},
	}
	provider.details["prov-museum"] = &places.Detail{
		ExternalID:   "prov-museum",
		Name:         "History Museum",
		Latitude:     30.26,
		Longitude:    -97.74,
		CategoryTags: []string{"museum", "point_of_interest"},
	}
	provider.details["prov-downtown"] = &places.Detail{
		ExternalID:   "prov-downtown",
		Name:         "Downtown",
		Latitude:     30.27,
		Longitude:    -97.75,
		CategoryTags: []string{"locality", "political"},
	}

	city := datastore.City{Name: "Austin"}
	require.NoError(t, store.DB.Create(&city).Error)

	coordinator := New(provider, store, &fakeIngestor{})

	result, err := coordinator.EnsurePlaceCoverage(context.Background(), "o", city.ID, 5)

	require.NoError(t, err)
	require.Len(t, result.Places, 1, "locality records must stay hidden")
	assert.Equal(t, "History Museum", result.Places[0].Name)
	assert.Equal(t, []string{"museum", "point_of_interest"}, result.Places[0].Tags())

	// The hidden row is still stored for future dedup.
	var hidden datastore.Place
	require.NoError(t, store.DB.Where("external_id = ?", "prov-downtown").First(&hidden).Error)
	assert.False(t, hidden.Visible)
}

func TestEnsurePlaceCoverage_SufficientLocalRowsSkipsProvider(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()

	city := datastore.City{Name: "Austin"}
	require.NoError(t, store.DB.Create(&city).Error)
	for i := 0; i < 5; i++ {
		externalID := fmt.Sprintf("seed-place-%d", i)
		place := datastore.Place{
			ExternalID: &externalID,
			Name:       fmt.Sprintf("Museum %d", i),
			CityID:     city.ID,
			Visible:    true,
		}
		require.NoError(t, store.DB.Create(&place).Error)
	}

	coordinator := New(provider, store, &fakeIngestor{})

	result, err := coordinator.EnsurePlaceCoverage(context.Background(), "Museum", city.ID, 5)

	require.NoError(t, err)
	assert.Len(t, result.Places, 5)
	assert.Equal(t, 0, provider.searchCalls)
}

func TestEnsureCityCoverage_DefaultNeededCount(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	seedCities(t, store, "Austin", "Austintown", "Port Austin", "Austin Mill", "Austin North")

	coordinator := New(provider, store, &fakeIngestor{})

	result, err := coordinator.EnsureCityCoverage(context.Background(), "Austin", 0)

	require.NoError(t, err)
	assert.Len(t, result.Cities, 5)
	assert.Equal(t, 0, provider.searchCalls)
}

func TestEnsureCityCoverage_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	provider := newMockProvider()
	provider.addCityCandidate("prov-austin-tx", "Austin", "US")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coordinator := New(provider, store, &fakeIngestor{})

	_, err := coordinator.EnsureCityCoverage(ctx, "Austin", 5)

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}
