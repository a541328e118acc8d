package models

import "time"

// SearchCriteria is a buyer's active property search. At most one active
// search exists per buyer; saving a new one updates it in place.
//
// Attributes is an open key/value bag (financing, timeline, amenities) stored
// as JSONB so new questionnaire fields do not require schema changes.
type SearchCriteria struct {
	ID            int64          `json:"id"`
	BuyerID       int64          `json:"buyer_id"`
	PriceMin      float64        `json:"price_min"`
	PriceMax      float64        `json:"price_max"`
	SurfaceMin    float64        `json:"surface_min"`
	SurfaceMax    float64        `json:"surface_max"`
	PropertyTypes []string       `json:"property_types"`
	Rooms         []int          `json:"rooms"`
	Localities    []string       `json:"localities"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	Active        bool           `json:"active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
