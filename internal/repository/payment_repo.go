package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/helloneovia/immocible-sub000/internal/models"
)

type CreatePaymentInput struct {
	ProviderSessionID string
	PaymentIntentID   string
	UserID            int64
	Amount            float64
	Currency          string
	Status            string
	Plan              string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateIfAbsent appends the audit row for a provider session. The session id
// carries a unique index, so a replay (webhook retry, page refresh, or a
// concurrent verification call) inserts nothing and created reports false.
func (r *PaymentRepository) CreateIfAbsent(
	ctx context.Context,
	input CreatePaymentInput,
) (*models.Payment, bool, error) {
	query := `
		INSERT INTO payments
			(provider_session_id, payment_intent_id, user_id, amount, currency, status, plan)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider_session_id) DO NOTHING
		RETURNING id, provider_session_id, payment_intent_id, user_id, amount,
		          currency, status, plan, created_at
	`

	payment, err := r.scanPayment(r.db.QueryRow(ctx, query,
		input.ProviderSessionID,
		input.PaymentIntentID,
		input.UserID,
		input.Amount,
		input.Currency,
		input.Status,
		input.Plan,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// conflict: the session was already processed
			return nil, false, nil
		}
		return nil, false, err
	}
	return payment, true, nil
}

func (r *PaymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	query := `
		SELECT id, provider_session_id, payment_intent_id, user_id, amount,
		       currency, status, plan, created_at
		FROM payments
		WHERE provider_session_id = $1
	`
	return r.scanPayment(r.db.QueryRow(ctx, query, sessionID))
}

// UpdateStatusIfCurrent flips the payment status only when it still holds the
// expected current value; pgx.ErrNoRows signals a lost race.
func (r *PaymentRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	paymentID int64,
	currentStatus string,
	nextStatus string,
) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING id, provider_session_id, payment_intent_id, user_id, amount,
		          currency, status, plan, created_at
	`
	return r.scanPayment(r.db.QueryRow(ctx, query, paymentID, currentStatus, nextStatus))
}

func (r *PaymentRepository) scanPayment(row pgx.Row) (*models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.ProviderSessionID,
		&payment.PaymentIntentID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.Plan,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
