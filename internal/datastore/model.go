// model.go this code defines the data model for the application
package datastore

import (
	"strings"
	"time"
)

// Region represents a country-level grouping for cities, keyed by external code.
type Region struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex;size:8;not null"` // ISO 3166-1 alpha-2 code from the provider
	Name string
}

// City represents a city record, either populated from the places provider or entered manually.
type City struct {
	ID         uint    `gorm:"primaryKey"`
	ExternalID *string `gorm:"uniqueIndex"` // provider correlation key; nil for manually entered rows
	Name       string  `gorm:"index:idx_cities_name"`
	Latitude   float64
	Longitude  float64
	RegionID   uint    `gorm:"index"`
	Region     *Region `gorm:"foreignKey:RegionID"`
	Timezone   *string // IANA timezone id, best-effort resolved
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Photos     []CityPhoto `gorm:"foreignKey:CityID;constraint:OnDelete:CASCADE"`
}

// Place represents a point of interest within a city.
type Place struct {
	ID           uint    `gorm:"primaryKey"`
	ExternalID   *string `gorm:"uniqueIndex"` // provider correlation key; nil for manually entered rows
	Name         string  `gorm:"index:idx_places_name"`
	CityID       uint    `gorm:"index"`
	Latitude     float64
	Longitude    float64
	Rating       *float64
	PriceLevel   *int
	CategoryTags string // provider category tags, comma-joined in provider order
	Visible      bool   `gorm:"default:true"` // false when provider tags mark this as a locality, not a place
	Timezone     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Photos       []PlacePhoto `gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE"`
}

// Tags returns the ordered category tags of the place.
func (p *Place) Tags() []string {
	if p.CategoryTags == "" {
		return nil
	}
	return strings.Split(p.CategoryTags, ",")
}

// SetTags stores the ordered category tags of the place.
func (p *Place) SetTags(tags []string) {
	p.CategoryTags = strings.Join(tags, ",")
}

// CityPhoto represents one derived photo of a city with its three size variants.
// The (city_id, photo_order) pair is unique so racing ingestions no-op on conflict.
type CityPhoto struct {
	ID          uint   `gorm:"primaryKey"`
	CityID      uint   `gorm:"uniqueIndex:idx_city_photos_order;not null"`
	PhotoOrder  int    `gorm:"uniqueIndex:idx_city_photos_order"` // zero-based, contiguous within one ingested batch
	ExternalRef string // provider photo reference
	Attribution string
	SmallPath   string
	MediumPath  string
	LargePath   string
	CreatedAt   time.Time
}

// PlacePhoto represents one derived photo of a place with its three size variants.
type PlacePhoto struct {
	ID          uint   `gorm:"primaryKey"`
	PlaceID     uint   `gorm:"uniqueIndex:idx_place_photos_order;not null"`
	PhotoOrder  int    `gorm:"uniqueIndex:idx_place_photos_order"`
	ExternalRef string
	Attribution string
	SmallPath   string
	MediumPath  string
	LargePath   string
	CreatedAt   time.Time
}
