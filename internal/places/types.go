// Package places provides a client for the external geodata/places provider API
package places

import "time"

// Candidate represents one result of a provider text search.
type Candidate struct {
	ExternalID string  `json:"id"`
	Name       string  `json:"name"`
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lng"`
	Kind       string  `json:"kind,omitempty"` // "city" or "place" when the provider distinguishes
}

// PhotoRef represents a remote photo reference attached to a detail record.
type PhotoRef struct {
	Ref         string `json:"ref"`
	Attribution string `json:"attribution,omitempty"`
}

// Detail represents the full provider record for one entity.
type Detail struct {
	ExternalID   string     `json:"id"`
	Name         string     `json:"name"`
	RegionCode   string     `json:"region_code"` // ISO 3166-1 alpha-2
	RegionName   string     `json:"region_name"`
	Latitude     float64    `json:"lat"`
	Longitude    float64    `json:"lng"`
	Rating       *float64   `json:"rating,omitempty"`
	PriceLevel   *int       `json:"price_level,omitempty"`
	CategoryTags []string   `json:"tags,omitempty"` // ordered provider category tags
	Photos       []PhotoRef `json:"photos,omitempty"`
}

// TimezoneInfo represents a provider timezone lookup result.
type TimezoneInfo struct {
	TimezoneID string `json:"timezone_id"` // IANA timezone id
}

// Config holds configuration for the places provider client
type Config struct {
	APIKey          string        `json:"api_key"`
	BaseURL         string        `json:"base_url"`
	Timeout         time.Duration `json:"timeout"`
	CacheTTL        time.Duration `json:"cache_ttl"`
	RateLimitPerSec float64       `json:"rate_limit_per_sec"`
}

// DefaultConfig returns the default provider client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://places.googleapis.com/v1",
		Timeout:         10 * time.Second,
		CacheTTL:        15 * time.Minute,
		RateLimitPerSec: 10,
	}
}

// Error represents a provider API error response
type Error struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	return e.Detail
}
