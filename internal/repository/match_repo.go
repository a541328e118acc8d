package repository

import (
	"context"

	"github.com/helloneovia/immocible-sub000/internal/models"
)

type UpsertMatchInput struct {
	BuyerID     int64
	ListingID   int64
	SearchID    int64
	Score       int
	Reasons     []string
	Suggestions []string
}

type MatchRepository struct {
	db DBTX
}

func NewMatchRepository(db DBTX) *MatchRepository {
	return &MatchRepository{db: db}
}

// Upsert writes the computed score for a (buyer, listing) pair. Recomputing
// an existing pair refreshes the stored row; it never creates a duplicate.
func (r *MatchRepository) Upsert(ctx context.Context, input UpsertMatchInput) (*models.Match, error) {
	query := `
		INSERT INTO matches (buyer_id, listing_id, search_id, score, reasons, suggestions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (buyer_id, listing_id)
		DO UPDATE SET
			search_id = EXCLUDED.search_id,
			score = EXCLUDED.score,
			reasons = EXCLUDED.reasons,
			suggestions = EXCLUDED.suggestions,
			updated_at = NOW()
		RETURNING id, buyer_id, listing_id, search_id, score, reasons, suggestions,
		          created_at, updated_at
	`

	var match models.Match
	err := r.db.QueryRow(ctx, query,
		input.BuyerID,
		input.ListingID,
		input.SearchID,
		input.Score,
		input.Reasons,
		input.Suggestions,
	).Scan(
		&match.ID,
		&match.BuyerID,
		&match.ListingID,
		&match.SearchID,
		&match.Score,
		&match.Reasons,
		&match.Suggestions,
		&match.CreatedAt,
		&match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *MatchRepository) Delete(ctx context.Context, buyerID, listingID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM matches
		WHERE buyer_id = $1 AND listing_id = $2
	`, buyerID, listingID)
	return err
}

func (r *MatchRepository) DeleteForListing(ctx context.Context, listingID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM matches WHERE listing_id = $1`, listingID)
	return err
}

func (r *MatchRepository) DeleteForBuyer(ctx context.Context, buyerID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM matches WHERE buyer_id = $1`, buyerID)
	return err
}

func (r *MatchRepository) ListByBuyer(ctx context.Context, buyerID int64) ([]models.MatchDetail, error) {
	query := `
		SELECT m.id, m.buyer_id, m.listing_id, m.search_id, m.score,
		       m.reasons, m.suggestions, m.created_at, m.updated_at,
		       ` + listingColumnsPrefixed + `
		FROM matches m
		JOIN listings l ON l.id = m.listing_id
		WHERE m.buyer_id = $1 AND l.status = 'available'
		ORDER BY m.score DESC, m.id
	`
	return r.queryDetails(ctx, query, buyerID)
}

func (r *MatchRepository) ListForAgency(ctx context.Context, agencyID int64) ([]models.MatchDetail, error) {
	query := `
		SELECT m.id, m.buyer_id, m.listing_id, m.search_id, m.score,
		       m.reasons, m.suggestions, m.created_at, m.updated_at,
		       ` + listingColumnsPrefixed + `
		FROM matches m
		JOIN listings l ON l.id = m.listing_id
		WHERE l.agency_id = $1
		ORDER BY m.score DESC, m.id
	`
	return r.queryDetails(ctx, query, agencyID)
}

const listingColumnsPrefixed = `l.id, l.agency_id, l.title, l.price, l.surface,
	l.property_type, l.rooms, l.city, l.postal_code, l.status, l.created_at, l.updated_at`

func (r *MatchRepository) queryDetails(ctx context.Context, query string, args ...any) ([]models.MatchDetail, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.MatchDetail, 0)
	for rows.Next() {
		var detail models.MatchDetail
		var listing models.Listing
		if err := rows.Scan(
			&detail.ID,
			&detail.BuyerID,
			&detail.ListingID,
			&detail.SearchID,
			&detail.Score,
			&detail.Reasons,
			&detail.Suggestions,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&listing.ID,
			&listing.AgencyID,
			&listing.Title,
			&listing.Price,
			&listing.Surface,
			&listing.PropertyType,
			&listing.Rooms,
			&listing.City,
			&listing.PostalCode,
			&listing.Status,
			&listing.CreatedAt,
			&listing.UpdatedAt,
		); err != nil {
			return nil, err
		}
		detail.Listing = &listing
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return details, nil
}
