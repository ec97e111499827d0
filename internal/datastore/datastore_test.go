package datastore

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/voyago-go/internal/observability/metrics"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore opens an in-memory SQLite database with the full schema migrated.
func newTestStore(t *testing.T) *DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&Region{}, &City{}, &Place{}, &CityPhoto{}, &PlacePhoto{}))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return &DataStore{DB: db}
}

func strPtr(s string) *string { return &s }

func TestGetOrCreateRegionIsIdempotent(t *testing.T) {
	ds := newTestStore(t)

	first, err := ds.GetOrCreateRegion("US", "United States")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := ds.GetOrCreateRegion("US", "United States")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, ds.DB.Model(&Region{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetOrCreateRegionEmptyCode(t *testing.T) {
	ds := newTestStore(t)

	_, err := ds.GetOrCreateRegion("", "Nowhere")
	assert.Error(t, err)
}

func TestUpsertCityCreatesOncePerExternalID(t *testing.T) {
	ds := newTestStore(t)

	city := &City{ExternalID: strPtr("ext-austin"), Name: "Austin", Latitude: 30.27, Longitude: -97.74}
	created, err := ds.UpsertCity(city)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	// Second upsert with the same external id must not create a second row.
	again, err := ds.UpsertCity(&City{ExternalID: strPtr("ext-austin"), Name: "Austin"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	var count int64
	require.NoError(t, ds.DB.Model(&City{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertCityMergeKeepsNonNullFields(t *testing.T) {
	ds := newTestStore(t)

	tz := "America/Chicago"
	_, err := ds.UpsertCity(&City{ExternalID: strPtr("ext-1"), Name: "Austin", Timezone: &tz})
	require.NoError(t, err)

	// Incoming row without timezone must not clear the stored one.
	merged, err := ds.UpsertCity(&City{ExternalID: strPtr("ext-1"), Name: "Austin, TX"})
	require.NoError(t, err)
	require.NotNil(t, merged.Timezone)
	assert.Equal(t, tz, *merged.Timezone)
	assert.Equal(t, "Austin, TX", merged.Name)
}

func TestUpsertCityWithoutExternalIDAlwaysCreates(t *testing.T) {
	ds := newTestStore(t)

	_, err := ds.UpsertCity(&City{Name: "Manualville"})
	require.NoError(t, err)
	_, err = ds.UpsertCity(&City{Name: "Manualville"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, ds.DB.Model(&City{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestUpsertPlaceMerge(t *testing.T) {
	ds := newTestStore(t)

	rating := 4.5
	price := 2
	_, err := ds.UpsertPlace(&Place{
		ExternalID: strPtr("ext-p1"),
		Name:       "Franklin Barbecue",
		Rating:     &rating,
		PriceLevel: &price,
		Visible:    true,
	})
	require.NoError(t, err)

	merged, err := ds.UpsertPlace(&Place{ExternalID: strPtr("ext-p1"), Name: "Franklin Barbecue", Visible: true})
	require.NoError(t, err)
	require.NotNil(t, merged.Rating)
	assert.Equal(t, rating, *merged.Rating)
	require.NotNil(t, merged.PriceLevel)
	assert.Equal(t, price, *merged.PriceLevel)
}

func TestUpsertPlaceVisibilityRevocationSticks(t *testing.T) {
	ds := newTestStore(t)

	_, err := ds.UpsertPlace(&Place{ExternalID: strPtr("ext-p2"), Name: "Downtown", Visible: true})
	require.NoError(t, err)

	merged, err := ds.UpsertPlace(&Place{ExternalID: strPtr("ext-p2"), Name: "Downtown", Visible: false})
	require.NoError(t, err)
	assert.False(t, merged.Visible)
}

func TestSearchCitiesOrderingAndLimit(t *testing.T) {
	ds := newTestStore(t)

	for _, name := range []string{"Berlin", "Austin", "Boston", "Aurora"} {
		_, err := ds.UpsertCity(&City{ExternalID: strPtr("ext-" + name), Name: name})
		require.NoError(t, err)
	}

	cities, err := ds.SearchCities("o", 10)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "Aurora", cities[0].Name)
	assert.Equal(t, "Boston", cities[1].Name)

	limited, err := ds.SearchCities("", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	count, err := ds.CountCities("")
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)
}

func TestSearchPlacesExcludesHidden(t *testing.T) {
	ds := newTestStore(t)

	_, err := ds.UpsertPlace(&Place{ExternalID: strPtr("p-vis"), Name: "Zilker Park", CityID: 1, Visible: true})
	require.NoError(t, err)
	_, err = ds.UpsertPlace(&Place{ExternalID: strPtr("p-hid"), Name: "Zilker Locality", CityID: 1, Visible: false})
	require.NoError(t, err)

	places, err := ds.SearchPlaces("Zilker", 1, 10)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Zilker Park", places[0].Name)

	count, err := ds.CountPlaces("Zilker", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestExternalIDExists(t *testing.T) {
	ds := newTestStore(t)

	_, err := ds.UpsertCity(&City{ExternalID: strPtr("known"), Name: "Known"})
	require.NoError(t, err)

	exists, err := ds.CityExternalIDExists("known")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = ds.CityExternalIDExists("unknown")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInsertCityPhotosIgnoresDuplicates(t *testing.T) {
	ds := newTestStore(t)

	city, err := ds.UpsertCity(&City{ExternalID: strPtr("ext-photos"), Name: "Photoville"})
	require.NoError(t, err)

	photos := make([]CityPhoto, 3)
	for i := range photos {
		photos[i] = CityPhoto{
			CityID:      city.ID,
			PhotoOrder:  i,
			ExternalRef: fmt.Sprintf("ref-%d", i),
			SmallPath:   fmt.Sprintf("images/cities/%d/%d_small.jpg", city.ID, i),
			MediumPath:  fmt.Sprintf("images/cities/%d/%d_medium.jpg", city.ID, i),
			LargePath:   fmt.Sprintf("images/cities/%d/%d_large.jpg", city.ID, i),
		}
	}

	require.NoError(t, ds.InsertCityPhotos(photos))
	// A retried ingestion for the same city must no-op, not error.
	require.NoError(t, ds.InsertCityPhotos(photos))

	stored, err := ds.CityPhotos(city.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for i, photo := range stored {
		assert.Equal(t, i, photo.PhotoOrder)
	}
}

func TestGetCityNotFound(t *testing.T) {
	ds := newTestStore(t)

	_, err := ds.GetCity(42)
	assert.Error(t, err)
}

func TestWriteOperationsRecordMetrics(t *testing.T) {
	ds := newTestStore(t)

	m, err := metrics.NewDatastoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	ds.SetMetrics(m)

	_, err = ds.GetOrCreateRegion("FI", "Finland")
	require.NoError(t, err)

	_, err = ds.UpsertCity(&City{ExternalID: strPtr("prov-metrics"), Name: "Helsinki"})
	require.NoError(t, err)
	_, err = ds.UpsertCity(&City{ExternalID: strPtr("prov-metrics"), Name: "Helsinki"})
	require.NoError(t, err)

	assert.EqualValues(t, 1, testutil.ToFloat64(m.Operations.WithLabelValues("get_or_create_region")))
	assert.EqualValues(t, 2, testutil.ToFloat64(m.Operations.WithLabelValues("upsert_city")))
	assert.EqualValues(t, 0, testutil.ToFloat64(m.OperationErrors.WithLabelValues("upsert_city")))

	_, err = ds.GetOrCreateRegion("", "Nowhere")
	require.Error(t, err)
	assert.EqualValues(t, 1, testutil.ToFloat64(m.OperationErrors.WithLabelValues("get_or_create_region")))
}
