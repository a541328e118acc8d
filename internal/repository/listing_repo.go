package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/helloneovia/immocible-sub000/internal/models"
)

type CreateListingInput struct {
	AgencyID     int64
	Title        string
	Price        float64
	Surface      float64
	PropertyType string
	Rooms        int
	City         string
	PostalCode   string
}

type UpdateListingInput struct {
	Title        string
	Price        float64
	Surface      float64
	PropertyType string
	Rooms        int
	City         string
	PostalCode   string
	Status       string
}

type ListingRepository struct {
	db DBTX
}

func NewListingRepository(db DBTX) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingColumns = `id, agency_id, title, price, surface, property_type,
	rooms, city, postal_code, status, created_at, updated_at`

func (r *ListingRepository) Create(ctx context.Context, input CreateListingInput) (*models.Listing, error) {
	query := `
		INSERT INTO listings
			(agency_id, title, price, surface, property_type, rooms, city, postal_code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'available')
		RETURNING ` + listingColumns

	return r.scanListing(r.db.QueryRow(ctx, query,
		input.AgencyID,
		input.Title,
		input.Price,
		input.Surface,
		input.PropertyType,
		input.Rooms,
		input.City,
		input.PostalCode,
	))
}

// Update is owner-scoped: it only touches a listing belonging to agencyID and
// returns pgx.ErrNoRows otherwise.
func (r *ListingRepository) Update(
	ctx context.Context,
	listingID int64,
	agencyID int64,
	input UpdateListingInput,
) (*models.Listing, error) {
	query := `
		UPDATE listings
		SET title = $3, price = $4, surface = $5, property_type = $6,
		    rooms = $7, city = $8, postal_code = $9, status = $10, updated_at = NOW()
		WHERE id = $1 AND agency_id = $2
		RETURNING ` + listingColumns

	return r.scanListing(r.db.QueryRow(ctx, query,
		listingID,
		agencyID,
		input.Title,
		input.Price,
		input.Surface,
		input.PropertyType,
		input.Rooms,
		input.City,
		input.PostalCode,
		input.Status,
	))
}

func (r *ListingRepository) GetByID(ctx context.Context, listingID int64) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	return r.scanListing(r.db.QueryRow(ctx, query, listingID))
}

func (r *ListingRepository) ListByAgency(ctx context.Context, agencyID int64) ([]models.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE agency_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.queryListings(ctx, query, agencyID)
}

func (r *ListingRepository) ListAvailable(ctx context.Context) ([]models.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE status = 'available'
		ORDER BY id
	`
	return r.queryListings(ctx, query)
}

func (r *ListingRepository) queryListings(ctx context.Context, query string, args ...any) ([]models.Listing, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]models.Listing, 0)
	for rows.Next() {
		var listing models.Listing
		if err := rows.Scan(
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
		listings = append(listings, listing)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return listings, nil
}

func (r *ListingRepository) scanListing(row pgx.Row) (*models.Listing, error) {
	var listing models.Listing
	err := row.Scan(
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
	)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
