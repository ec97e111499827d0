package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// initSearchRoutes registers the search-related routes
func (c *Controller) initSearchRoutes() {
	c.Group.GET("/search/cities", c.HandleCitySearch)
	c.Group.GET("/search/places", c.HandlePlaceSearch)
}

// SearchCounts carries the aggregate counts of a search response.
type SearchCounts struct {
	Cities *int64 `json:"cities,omitempty"`
	Places *int64 `json:"places,omitempty"`
	Total  int64  `json:"total"`
}

// CitySearchResponse is the response shape of GET /search/cities.
type CitySearchResponse struct {
	Results []CityResponse `json:"results"`
	Counts  SearchCounts   `json:"counts"`
}

// PlaceSearchResponse is the response shape of GET /search/places.
type PlaceSearchResponse struct {
	Results []PlaceResponse `json:"results"`
	Counts  SearchCounts    `json:"counts"`
}

// HandleCitySearch serves city search, populating from the provider when
// local coverage falls short of the requested count.
func (c *Controller) HandleCitySearch(ctx echo.Context) error {
	term := ctx.QueryParam("q")
	if term == "" {
		return c.HandleError(ctx, nil, "Missing query parameter 'q'", http.StatusBadRequest)
	}
	needed := queryInt(ctx, "limit", 0)

	result, err := c.Populator.EnsureCityCoverage(ctx.Request().Context(), term, needed)
	if err != nil {
		return c.HandleError(ctx, err, "City search failed", http.StatusInternalServerError)
	}

	results := make([]CityResponse, 0, len(result.Cities))
	for i := range result.Cities {
		city := &result.Cities[i]
		photos, err := c.DS.CityPhotos(city.ID)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to load city photos", http.StatusInternalServerError)
		}
		results = append(results, c.cityResponse(city, photos))
	}

	total := result.Total
	return ctx.JSON(http.StatusOK, CitySearchResponse{
		Results: results,
		Counts:  SearchCounts{Cities: &total, Total: total},
	})
}

// HandlePlaceSearch serves place search scoped to a city.
func (c *Controller) HandlePlaceSearch(ctx echo.Context) error {
	term := ctx.QueryParam("q")
	if term == "" {
		return c.HandleError(ctx, nil, "Missing query parameter 'q'", http.StatusBadRequest)
	}
	cityID := queryInt(ctx, "city_id", 0)
	if cityID < 0 {
		return c.HandleError(ctx, nil, "Invalid city_id", http.StatusBadRequest)
	}
	needed := queryInt(ctx, "limit", 0)

	result, err := c.Populator.EnsurePlaceCoverage(ctx.Request().Context(), term, uint(cityID), needed)
	if err != nil {
		return c.HandleError(ctx, err, "Place search failed", http.StatusInternalServerError)
	}

	results := make([]PlaceResponse, 0, len(result.Places))
	for i := range result.Places {
		place := &result.Places[i]
		photos, err := c.DS.PlacePhotos(place.ID)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to load place photos", http.StatusInternalServerError)
		}
		results = append(results, c.placeResponse(place, photos))
	}

	total := result.Total
	return ctx.JSON(http.StatusOK, PlaceSearchResponse{
		Results: results,
		Counts:  SearchCounts{Places: &total, Total: total},
	})
}

// queryInt parses an integer query parameter, falling back to def on absence
// or garbage.
func queryInt(ctx echo.Context, name string, def int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}
