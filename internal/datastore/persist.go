package datastore

import (
	"time"

	"github.com/voyago/voyago-go/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetOrCreateRegion upserts a region record keyed by its code.
// Concurrent callers racing on the same code are absorbed by the unique
// constraint; the surviving row is re-read and returned.
func (ds *DataStore) GetOrCreateRegion(code, name string) (region *Region, err error) {
	start := time.Now()
	defer func() { ds.recordOperation("get_or_create_region", start, err) }()

	if code == "" {
		return nil, errors.Newf("region code cannot be empty").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	record := &Region{Code: code, Name: name}
	err = ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(record).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_or_create_region").
			Context("code", code).
			Build()
	}

	// On conflict the insert is a no-op and the record carries no ID; read the
	// row that won the race.
	if record.ID == 0 {
		if err := ds.DB.Where("code = ?", code).First(record).Error; err != nil {
			return nil, errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("operation", "get_or_create_region").
				Context("code", code).
				Build()
		}
	}

	return record, nil
}

// UpsertCity creates a city or merges the incoming fields into the existing row
// found by external id. Merging never overwrites a non-null stored field with a
// null incoming value. Cities without an external id are always created.
func (ds *DataStore) UpsertCity(city *City) (saved *City, err error) {
	start := time.Now()
	defer func() { ds.recordOperation("upsert_city", start, err) }()

	if city.ExternalID == nil {
		if err := ds.DB.Create(city).Error; err != nil {
			return nil, persistError(err, "upsert_city", city.Name)
		}
		return city, nil
	}

	var existing City
	err = ds.DB.Where("external_id = ?", *city.ExternalID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		createErr := ds.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).Create(city).Error
		if createErr != nil {
			return nil, persistError(createErr, "upsert_city", city.Name)
		}
		if city.ID != 0 {
			return city, nil
		}
		// A concurrent populate run won the insert race; fall through to merge
		// into the row it created.
		if err := ds.DB.Where("external_id = ?", *city.ExternalID).First(&existing).Error; err != nil {
			return nil, persistError(err, "upsert_city", city.Name)
		}
	case err != nil:
		return nil, persistError(err, "upsert_city", city.Name)
	}

	mergeCity(&existing, city)
	if err := ds.DB.Save(&existing).Error; err != nil {
		return nil, persistError(err, "upsert_city", city.Name)
	}
	return &existing, nil
}

// UpsertPlace creates a place or merges the incoming fields into the existing
// row found by external id, with the same merge rules as UpsertCity.
func (ds *DataStore) UpsertPlace(place *Place) (saved *Place, err error) {
	start := time.Now()
	defer func() { ds.recordOperation("upsert_place", start, err) }()

	if place.ExternalID == nil {
		if err := ds.DB.Create(place).Error; err != nil {
			return nil, persistError(err, "upsert_place", place.Name)
		}
		return place, nil
	}

	var existing Place
	err = ds.DB.Where("external_id = ?", *place.ExternalID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		createErr := ds.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).Create(place).Error
		if createErr != nil {
			return nil, persistError(createErr, "upsert_place", place.Name)
		}
		if place.ID != 0 {
			return place, nil
		}
		if err := ds.DB.Where("external_id = ?", *place.ExternalID).First(&existing).Error; err != nil {
			return nil, persistError(err, "upsert_place", place.Name)
		}
	case err != nil:
		return nil, persistError(err, "upsert_place", place.Name)
	}

	mergePlace(&existing, place)
	if err := ds.DB.Save(&existing).Error; err != nil {
		return nil, persistError(err, "upsert_place", place.Name)
	}
	return &existing, nil
}

// InsertCityPhotos bulk-inserts photo rows with duplicate-ignoring semantics so
// that a retried or racing ingestion for the same city no-ops on conflict.
func (ds *DataStore) InsertCityPhotos(photos []CityPhoto) (err error) {
	if len(photos) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { ds.recordOperation("insert_city_photos", start, err) }()

	err = ds.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&photos).Error
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "insert_city_photos").
			Context("count", len(photos)).
			Build()
	}
	return nil
}

// InsertPlacePhotos bulk-inserts photo rows with duplicate-ignoring semantics.
func (ds *DataStore) InsertPlacePhotos(photos []PlacePhoto) (err error) {
	if len(photos) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { ds.recordOperation("insert_place_photos", start, err) }()

	err = ds.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&photos).Error
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "insert_place_photos").
			Context("count", len(photos)).
			Build()
	}
	return nil
}

// mergeCity copies non-null incoming fields onto the existing row.
func mergeCity(existing, incoming *City) {
	if incoming.Name != "" {
		existing.Name = incoming.Name
	}
	if incoming.Latitude != 0 || incoming.Longitude != 0 {
		existing.Latitude = incoming.Latitude
		existing.Longitude = incoming.Longitude
	}
	if incoming.RegionID != 0 {
		existing.RegionID = incoming.RegionID
	}
	if incoming.Timezone != nil {
		existing.Timezone = incoming.Timezone
	}
}

// mergePlace copies non-null incoming fields onto the existing row.
func mergePlace(existing, incoming *Place) {
	if incoming.Name != "" {
		existing.Name = incoming.Name
	}
	if incoming.CityID != 0 {
		existing.CityID = incoming.CityID
	}
	if incoming.Latitude != 0 || incoming.Longitude != 0 {
		existing.Latitude = incoming.Latitude
		existing.Longitude = incoming.Longitude
	}
	if incoming.Rating != nil {
		existing.Rating = incoming.Rating
	}
	if incoming.PriceLevel != nil {
		existing.PriceLevel = incoming.PriceLevel
	}
	if incoming.CategoryTags != "" {
		existing.CategoryTags = incoming.CategoryTags
	}
	if incoming.Timezone != nil {
		existing.Timezone = incoming.Timezone
	}
	// Visibility can only be revoked by new provider data, never silently restored.
	if !incoming.Visible {
		existing.Visible = false
	}
}

func persistError(err error, operation, name string) *errors.EnhancedError {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Context("name", name).
		Build()
}
