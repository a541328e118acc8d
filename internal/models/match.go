package models

import "time"

// Match is a scored (buyer, listing) association derived from the buyer's
// active search. Unique per pair; recomputation refreshes the stored row
// instead of duplicating it.
type Match struct {
	ID          int64     `json:"id"`
	BuyerID     int64     `json:"buyer_id"`
	ListingID   int64     `json:"listing_id"`
	SearchID    int64     `json:"search_id"`
	Score       int       `json:"score"`
	Reasons     []string  `json:"reasons"`
	Suggestions []string  `json:"suggestions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MatchDetail pairs a match with its listing for buyer-facing lists.
type MatchDetail struct {
	Match
	Listing *Listing `json:"listing,omitempty"`
}
