package repository

import (
	"context"

	"github.com/helloneovia/immocible-sub000/internal/models"
)

// UnlockRepository is the ledger of paid contact unlocks. Existence of a row
// for an (agency, buyer) pair is the sole source of truth for disclosure.
type UnlockRepository struct {
	db DBTX
}

func NewUnlockRepository(db DBTX) *UnlockRepository {
	return &UnlockRepository{db: db}
}

func (r *UnlockRepository) Exists(ctx context.Context, agencyID, buyerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM unlock_records
			WHERE agency_id = $1 AND buyer_id = $2
		)
	`, agencyID, buyerID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts the unlock record if absent. A second call for the same
// pair is a silent success: the unique constraint swallows the duplicate and
// created reports false.
func (r *UnlockRepository) Create(
	ctx context.Context,
	agencyID int64,
	buyerID int64,
	amount float64,
) (created bool, err error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO unlock_records (agency_id, buyer_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (agency_id, buyer_id) DO NOTHING
	`, agencyID, buyerID, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UnlockRepository) ListByAgency(ctx context.Context, agencyID int64) ([]models.UnlockRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, agency_id, buyer_id, amount, created_at
		FROM unlock_records
		WHERE agency_id = $1
		ORDER BY created_at DESC, id DESC
	`, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.UnlockRecord, 0)
	for rows.Next() {
		var record models.UnlockRecord
		if err := rows.Scan(
			&record.ID,
			&record.AgencyID,
			&record.BuyerID,
			&record.Amount,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
