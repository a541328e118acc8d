package models

import "time"

const (
	ListingAvailable   = "available"
	ListingUnavailable = "unavailable"
)

type Listing struct {
	ID           int64     `json:"id"`
	AgencyID     int64     `json:"agency_id"`
	Title        string    `json:"title"`
	Price        float64   `json:"price"`
	Surface      float64   `json:"surface"`
	PropertyType string    `json:"property_type"`
	Rooms        int       `json:"rooms"`
	City         string    `json:"city"`
	PostalCode   string    `json:"postal_code"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
