package api

import (
	"path/filepath"
	"strings"

	"github.com/voyago/voyago-go/internal/datastore"
)

// PhotoResponse is one photo of an entity with its variant URLs.
type PhotoResponse struct {
	Order       int    `json:"order"`
	Attribution string `json:"attribution,omitempty"`
	Small       string `json:"small"`
	Medium      string `json:"medium"`
	Large       string `json:"large"`
}

// CityResponse is the API shape of a city row.
type CityResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Timezone  *string         `json:"timezone,omitempty"`
	Photos    []PhotoResponse `json:"photos"`
}

// PlaceResponse is the API shape of a place row.
type PlaceResponse struct {
	ID         uint            `json:"id"`
	Name       string          `json:"name"`
	CityID     uint            `json:"city_id"`
	Latitude   float64         `json:"latitude"`
	Longitude  float64         `json:"longitude"`
	Rating     *float64        `json:"rating,omitempty"`
	PriceLevel *int            `json:"price_level,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	Timezone   *string         `json:"timezone,omitempty"`
	Photos     []PhotoResponse `json:"photos"`
}

func (c *Controller) cityResponse(city *datastore.City, photos []datastore.CityPhoto) CityResponse {
	resp := CityResponse{
		ID:        city.ID,
		Name:      city.Name,
		Latitude:  city.Latitude,
		Longitude: city.Longitude,
		Timezone:  city.Timezone,
		Photos:    make([]PhotoResponse, 0, len(photos)),
	}
	for _, p := range photos {
		resp.Photos = append(resp.Photos, PhotoResponse{
			Order:       p.PhotoOrder,
			Attribution: p.Attribution,
			Small:       c.AbsoluteMediaURL(p.SmallPath),
			Medium:      c.AbsoluteMediaURL(p.MediumPath),
			Large:       c.AbsoluteMediaURL(p.LargePath),
		})
	}
	return resp
}

func (c *Controller) placeResponse(place *datastore.Place, photos []datastore.PlacePhoto) PlaceResponse {
	resp := PlaceResponse{
		ID:         place.ID,
		Name:       place.Name,
		CityID:     place.CityID,
		Latitude:   place.Latitude,
		Longitude:  place.Longitude,
		Rating:     place.Rating,
		PriceLevel: place.PriceLevel,
		Tags:       place.Tags(),
		Timezone:   place.Timezone,
		Photos:     make([]PhotoResponse, 0, len(photos)),
	}
	for _, p := range photos {
		resp.Photos = append(resp.Photos, PhotoResponse{
			Order:       p.PhotoOrder,
			Attribution: p.Attribution,
			Small:       c.AbsoluteMediaURL(p.SmallPath),
			Medium:      c.AbsoluteMediaURL(p.MediumPath),
			Large:       c.AbsoluteMediaURL(p.LargePath),
		})
	}
	return resp
}

// AbsoluteMediaURL rewrites a stored variant path into the URL it is served
// under. Paths are stored relative to the media base path on disk; the public
// URL prefix comes from the webserver settings and may be empty, in which
// case a host-relative URL is returned.
func (c *Controller) AbsoluteMediaURL(storedPath string) string {
	if storedPath == "" {
		return ""
	}

	rel := storedPath
	if c.mediaBasePath != "" {
		if r, err := filepath.Rel(c.mediaBasePath, storedPath); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)

	publicURL := strings.TrimSuffix(c.Settings.WebServer.PublicURL, "/")
	return publicURL + "/images/" + rel
}
