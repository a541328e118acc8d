package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helloneovia/immocible-sub000/internal/models"
	"github.com/helloneovia/immocible-sub000/internal/payments"
	"github.com/helloneovia/immocible-sub000/internal/repository"
)

const checkoutTypeUnlockContact = "unlock_contact"

type checkoutProvider interface {
	CreateCheckoutSession(ctx context.Context, input payments.CheckoutSessionInput) (*payments.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*payments.CheckoutSession, error)
	CreateRefund(ctx context.Context, paymentIntentID string) (*payments.Refund, error)
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type paymentLog interface {
	GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	UpdateStatusIfCurrent(ctx context.Context, paymentID int64, currentStatus, nextStatus string) (*models.Payment, error)
}

type subscriptionWriter interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateSubscription(ctx context.Context, userID int64, plan *string, endDate *time.Time) error
}

// PaymentService drives the unlock payment flow: checkout creation tagged
// with the (agency, buyer) pair, and the idempotent verification that turns a
// paid session into exactly one unlock record and one payment row.
type PaymentService struct {
	db          txBeginner
	provider    checkoutProvider
	unlockRepo  unlockLedger
	paymentRepo paymentLog
	userRepo    subscriptionWriter
	searchRepo  activeSearchReader
	settings    settingsSource
	appBaseURL  string
}

func NewPaymentService(
	db txBeginner,
	provider checkoutProvider,
	unlockRepo unlockLedger,
	paymentRepo paymentLog,
	userRepo subscriptionWriter,
	searchRepo activeSearchReader,
	settings settingsSource,
	appBaseURL string,
) *PaymentService {
	return &PaymentService{
		db:          db,
		provider:    provider,
		unlockRepo:  unlockRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		searchRepo:  searchRepo,
		settings:    settings,
		appBaseURL:  appBaseURL,
	}
}

// StartUnlock creates a checkout session for agencyID to unlock buyerID's
// contact details. The session metadata carries the pair so verification can
// reconstruct it without trusting the caller.
func (s *PaymentService) StartUnlock(
	ctx context.Context,
	agencyID int64,
	buyerID int64,
) (string, error) {
	agency, err := s.userRepo.GetByID(ctx, agencyID)
	if err != nil {
		return "", err
	}

	buyer, err := s.userRepo.GetByID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrBuyerNotFound
		}
		return "", err
	}
	if buyer.Role != models.RoleBuyer {
		return "", ErrBuyerNotFound
	}

	unlocked, err := s.unlockRepo.Exists(ctx, agencyID, buyerID)
	if err != nil {
		return "", err
	}
	if unlocked {
		return "", ErrAlreadyUnlocked
	}

	price, err := s.unlockPriceFor(ctx, buyerID)
	if err != nil {
		return "", err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutSessionInput{
		AmountCents:   int64(price * 100),
		Currency:      "eur",
		ProductName:   "Déblocage des coordonnées acquéreur",
		SuccessURL:    s.appBaseURL + "/unlock/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.appBaseURL + "/unlock/cancel",
		CustomerEmail: agency.Email,
		ClientRef:     uuid.NewString(),
		Metadata: map[string]string{
			"type":      checkoutTypeUnlockContact,
			"agency_id": strconv.FormatInt(agencyID, 10),
			"buyer_id":  strconv.FormatInt(buyerID, 10),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return session.URL, nil
}

func (s *PaymentService) unlockPriceFor(ctx context.Context, buyerID int64) (float64, error) {
	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	priceMax := 0.0
	search, err := s.searchRepo.GetActiveByBuyer(ctx, buyerID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	if search != nil {
		priceMax = search.PriceMax
	}

	return UnlockPrice(priceMax, settings.UnlockPricePercent), nil
}

type VerifyResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// VerifyUnlock reconciles a checkout session with the unlock ledger. It is
// safe to call any number of times for the same session — the success page,
// a user refresh and a webhook retry all converge on one unlock record and
// one payment row.
func (s *PaymentService) VerifyUnlock(ctx context.Context, sessionID string) (*VerifyResult, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if session.PaymentStatus != "paid" {
		// nothing to record yet; the caller may retry once payment completes
		return &VerifyResult{Success: false, Reason: "not_completed"}, nil
	}

	agencyID, buyerID, err := unlockPairFromMetadata(session.Metadata)
	if err != nil {
		return nil, err
	}

	unlocked, err := s.unlockRepo.Exists(ctx, agencyID, buyerID)
	if err != nil {
		return nil, err
	}
	if unlocked {
		return &VerifyResult{Success: true}, nil
	}

	amount := float64(session.AmountTotal) / 100

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPaymentRepo := repository.NewPaymentRepository(tx)
	txUnlockRepo := repository.NewUnlockRepository(tx)

	// the unique index on provider_session_id closes the race between two
	// concurrent verifications: the loser inserts nothing and reports success
	_, created, err := txPaymentRepo.CreateIfAbsent(ctx, repository.CreatePaymentInput{
		ProviderSessionID: session.ID,
		PaymentIntentID:   session.PaymentIntentID,
		UserID:            agencyID,
		Amount:            amount,
		Currency:          session.Currency,
		Status:            models.PaymentStatusPaid,
		Plan:              models.PlanUnlockContact,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return &VerifyResult{Success: true}, nil
	}

	if _, err := txUnlockRepo.Create(ctx, agencyID, buyerID, amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &VerifyResult{Success: true}, nil
}

func unlockPairFromMetadata(metadata map[string]string) (agencyID, buyerID int64, err error) {
	if metadata == nil {
		return 0, 0, ErrMalformedSession
	}
	if metadata["type"] != checkoutTypeUnlockContact {
		return 0, 0, ErrMalformedSession
	}

	agencyID, err = strconv.ParseInt(metadata["agency_id"], 10, 64)
	if err != nil || agencyID <= 0 {
		return 0, 0, ErrMalformedSession
	}
	buyerID, err = strconv.ParseInt(metadata["buyer_id"], 10, 64)
	if err != nil || buyerID <= 0 {
		return 0, 0, ErrMalformedSession
	}

	return agencyID, buyerID, nil
}

// RefundPayment refunds a paid session for its payer. Unlock records already
// granted are deliberately left intact; only a plan payment additionally
// drops the payer's subscription.
func (s *PaymentService) RefundPayment(
	ctx context.Context,
	actorID int64,
	sessionID string,
) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != actorID {
		return nil, ErrForbidden
	}
	if payment.Status != models.PaymentStatusPaid {
		return nil, ErrConflict
	}

	if _, err := s.provider.CreateRefund(ctx, payment.PaymentIntentID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	updated, err := s.paymentRepo.UpdateStatusIfCurrent(
		ctx,
		payment.ID,
		models.PaymentStatusPaid,
		models.PaymentStatusRefunded,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if updated.Plan != models.PlanUnlockContact {
		if err := s.userRepo.UpdateSubscription(ctx, updated.UserID, nil, nil); err != nil {
			return nil, err
		}
	}

	return updated, nil
}
