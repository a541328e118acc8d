package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/helloneovia/immocible-sub000/internal/models"
)

type UpsertSearchInput struct {
	BuyerID       int64
	PriceMin      float64
	PriceMax      float64
	SurfaceMin    float64
	SurfaceMax    float64
	PropertyTypes []string
	Rooms         []int
	Localities    []string
	Attributes    map[string]any
}

type SearchRepository struct {
	db DBTX
}

func NewSearchRepository(db DBTX) *SearchRepository {
	return &SearchRepository{db: db}
}

// UpsertActive saves the buyer's active search. If the buyer already has an
// active search it is updated in place rather than duplicated.
func (r *SearchRepository) UpsertActive(
	ctx context.Context,
	input UpsertSearchInput,
) (*models.SearchCriteria, error) {
	query := `
		INSERT INTO search_criteria
			(buyer_id, price_min, price_max, surface_min, surface_max,
			 property_types, rooms, localities, attributes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		ON CONFLICT (buyer_id) WHERE active
		DO UPDATE SET
			price_min = EXCLUDED.price_min,
			price_max = EXCLUDED.price_max,
			surface_min = EXCLUDED.surface_min,
			surface_max = EXCLUDED.surface_max,
			property_types = EXCLUDED.property_types,
			rooms = EXCLUDED.rooms,
			localities = EXCLUDED.localities,
			attributes = EXCLUDED.attributes,
			updated_at = NOW()
		RETURNING id, buyer_id, price_min, price_max, surface_min, surface_max,
		          property_types, rooms, localities, attributes, active,
		          created_at, updated_at
	`

	return r.scanSearch(r.db.QueryRow(ctx, query,
		input.BuyerID,
		input.PriceMin,
		input.PriceMax,
		input.SurfaceMin,
		input.SurfaceMax,
		input.PropertyTypes,
		input.Rooms,
		input.Localities,
		input.Attributes,
	))
}

func (r *SearchRepository) GetActiveByBuyer(
	ctx context.Context,
	buyerID int64,
) (*models.SearchCriteria, error) {
	query := `
		SELECT id, buyer_id, price_min, price_max, surface_min, surface_max,
		       property_types, rooms, localities, attributes, active,
		       created_at, updated_at
		FROM search_criteria
		WHERE buyer_id = $1 AND active
	`
	return r.scanSearch(r.db.QueryRow(ctx, query, buyerID))
}

func (r *SearchRepository) Deactivate(ctx context.Context, buyerID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE search_criteria
		SET active = FALSE, updated_at = NOW()
		WHERE buyer_id = $1 AND active
	`, buyerID)
	return err
}

func (r *SearchRepository) ListActive(ctx context.Context) ([]models.SearchCriteria, error) {
	query := `
		SELECT id, buyer_id, price_min, price_max, surface_min, surface_max,
		       property_types, rooms, localities, attributes, active,
		       created_at, updated_at
		FROM search_criteria
		WHERE active
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	searches := make([]models.SearchCriteria, 0)
	for rows.Next() {
		var search models.SearchCriteria
		if err := rows.Scan(
			&search.ID,
			&search.BuyerID,
			&search.PriceMin,
			&search.PriceMax,
			&search.SurfaceMin,
			&search.SurfaceMax,
			&search.PropertyTypes,
			&search.Rooms,
			&search.Localities,
			&search.Attributes,
			&search.Active,
			&search.CreatedAt,
			&search.UpdatedAt,
		); err != nil {
			return nil, err
		}
		searches = append(searches, search)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return searches, nil
}

func (r *SearchRepository) scanSearch(row pgx.Row) (*models.SearchCriteria, error) {
	var search models.SearchCriteria
	err := row.Scan(
		&search.ID,
		&search.BuyerID,
		&search.PriceMin,
		&search.PriceMax,
		&search.SurfaceMin,
		&search.SurfaceMax,
		&search.PropertyTypes,
		&search.Rooms,
		&search.Localities,
		&search.Attributes,
		&search.Active,
		&search.CreatedAt,
		&search.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &search, nil
}
