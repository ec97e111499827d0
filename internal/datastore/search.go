package datastore

import (
	"github.com/voyago/voyago-go/internal/errors"
	"gorm.io/gorm"
)

// SearchCities returns cities whose name matches the term, ordered by name ascending.
// A limit of 0 or less returns all matching rows. No side effects; safe to call
// twice in the same request, the second call reflects newly committed rows.
func (ds *DataStore) SearchCities(term string, limit int) ([]City, error) {
	var cities []City
	query := ds.DB.Where("name LIKE ?", "%"+term+"%").Order("name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&cities).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "search_cities").
			Context("term", term).
			Build()
	}
	return cities, nil
}

// CountCities returns the total number of cities matching the term, without any limit.
func (ds *DataStore) CountCities(term string) (int64, error) {
	var count int64
	if err := ds.DB.Model(&City{}).Where("name LIKE ?", "%"+term+"%").Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count_cities").
			Context("term", term).
			Build()
	}
	return count, nil
}

// SearchPlaces returns visible places whose name matches the term, ordered by name
// ascending. A cityID of 0 searches across all cities.
func (ds *DataStore) SearchPlaces(term string, cityID uint, limit int) ([]Place, error) {
	var places []Place
	query := ds.DB.Where("name LIKE ?", "%"+term+"%").Where("visible = ?", true).Order("name ASC")
	if cityID > 0 {
		query = query.Where("city_id = ?", cityID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&places).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "search_places").
			Context("term", term).
			Context("city_id", cityID).
			Build()
	}
	return places, nil
}

// CountPlaces returns the total number of visible places matching the term, without any limit.
func (ds *DataStore) CountPlaces(term string, cityID uint) (int64, error) {
	var count int64
	query := ds.DB.Model(&Place{}).Where("name LIKE ?", "%"+term+"%").Where("visible = ?", true)
	if cityID > 0 {
		query = query.Where("city_id = ?", cityID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count_places").
			Context("term", term).
			Build()
	}
	return count, nil
}

// CityExternalIDExists reports whether a city row with the given external id exists.
func (ds *DataStore) CityExternalIDExists(externalID string) (bool, error) {
	var count int64
	if err := ds.DB.Model(&City{}).Where("external_id = ?", externalID).Count(&count).Error; err != nil {
		return false, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "city_external_id_exists").
			Context("external_id", externalID).
			Build()
	}
	return count > 0, nil
}

// PlaceExternalIDExists reports whether a place row with the given external id exists.
func (ds *DataStore) PlaceExternalIDExists(externalID string) (bool, error) {
	var count int64
	if err := ds.DB.Model(&Place{}).Where("external_id = ?", externalID).Count(&count).Error; err != nil {
		return false, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "place_external_id_exists").
			Context("external_id", externalID).
			Build()
	}
	return count > 0, nil
}

// GetCity retrieves a city by its ID.
func (ds *DataStore) GetCity(id uint) (*City, error) {
	var city City
	if err := ds.DB.First(&city, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("city not found: %d", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_city").
			Context("city_id", id).
			Build()
	}
	return &city, nil
}

// GetPlace retrieves a place by its ID.
func (ds *DataStore) GetPlace(id uint) (*Place, error) {
	var place Place
	if err := ds.DB.First(&place, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("place not found: %d", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_place").
			Context("place_id", id).
			Build()
	}
	return &place, nil
}

// CityPhotos returns the photos of a city ordered by photo order.
func (ds *DataStore) CityPhotos(cityID uint) ([]CityPhoto, error) {
	var photos []CityPhoto
	if err := ds.DB.Where("city_id = ?", cityID).Order("photo_order ASC").Find(&photos).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "city_photos").
			Context("city_id", cityID).
			Build()
	}
	return photos, nil
}

// PlacePhotos returns the photos of a place ordered by photo order.
func (ds *DataStore) PlacePhotos(placeID uint) ([]PlacePhoto, error) {
	var photos []PlacePhoto
	if err := ds.DB.Where("place_id = ?", placeID).Order("photo_order ASC").Find(&photos).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "place_photos").
			Context("place_id", placeID).
			Build()
	}
	return photos, nil
}
