package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helloneovia/immocible-sub000/internal/models"
	"github.com/helloneovia/immocible-sub000/internal/payments"
)

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		switch target := dest[i].(type) {
		case *int64:
			*target = r.values[i].(int64)
		case *int:
			*target = r.values[i].(int)
		case *float64:
			*target = r.values[i].(float64)
		case *bool:
			*target = r.values[i].(bool)
		case *string:
			*target = r.values[i].(string)
		case **string:
			*target = r.values[i].(*string)
		case *time.Time:
			*target = r.values[i].(time.Time)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

// stubTx satisfies pgx.Tx for service tests that run tx-scoped repositories.
type stubTx struct {
	queryRowFn func(query string, args ...any) pgx.Row
	execFn     func(query string, args ...any) (pgconn.CommandTag, error)
	committed  bool
	rolledBack bool
}

func (t *stubTx) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }

func (t *stubTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *stubTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}

func (t *stubTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }

func (t *stubTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *stubTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}

func (t *stubTx) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if t.execFn == nil {
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return t.execFn(query, args...)
}

func (t *stubTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (t *stubTx) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if t.queryRowFn == nil {
		return stubRow{err: errors.New("unexpected QueryRow")}
	}
	return t.queryRowFn(query, args...)
}

func (t *stubTx) Conn() *pgx.Conn { return nil }

type stubTxBeginner struct {
	tx     *stubTx
	begun  int
	beginE error
}

func (b *stubTxBeginner) Begin(_ context.Context) (pgx.Tx, error) {
	b.begun++
	if b.beginE != nil {
		return nil, b.beginE
	}
	return b.tx, nil
}

type stubCheckoutProvider struct {
	session     *payments.CheckoutSession
	sessionErr  error
	refund      *payments.Refund
	refundErr   error
	lastInput   payments.CheckoutSessionInput
	lastSession string
	lastIntent  string
}

func (p *stubCheckoutProvider) CreateCheckoutSession(_ context.Context, input payments.CheckoutSessionInput) (*payments.CheckoutSession, error) {
	p.lastInput = input
	return p.session, p.sessionErr
}

func (p *stubCheckoutProvider) RetrieveSession(_ context.Context, sessionID string) (*payments.CheckoutSession, error) {
	p.lastSession = sessionID
	return p.session, p.sessionErr
}

func (p *stubCheckoutProvider) CreateRefund(_ context.Context, paymentIntentID string) (*payments.Refund, error) {
	p.lastIntent = paymentIntentID
	return p.refund, p.refundErr
}

type stubPaymentLog struct {
	payment    *models.Payment
	getErr     error
	updated    *models.Payment
	updateErr  error
	lastStatus string
}

func (l *stubPaymentLog) GetBySessionID(_ context.Context, _ string) (*models.Payment, error) {
	return l.payment, l.getErr
}

func (l *stubPaymentLog) UpdateStatusIfCurrent(_ context.Context, _ int64, _, nextStatus string) (*models.Payment, error) {
	l.lastStatus = nextStatus
	return l.updated, l.updateErr
}

func paidSession(metadata map[string]string) *payments.CheckoutSession {
	return &payments.CheckoutSession{
		ID:              "cs_test_123",
		URL:             "https://checkout.example/cs_test_123",
		PaymentStatus:   "paid",
		AmountTotal:     3000,
		Currency:        "eur",
		PaymentIntentID: "pi_test_123",
		Metadata:        metadata,
	}
}

func unlockMetadata() map[string]string {
	return map[string]string{
		"type":      "unlock_contact",
		"agency_id": "9",
		"buyer_id":  "42",
	}
}

func newPaymentServiceForTest(
	db *stubTxBeginner,
	provider *stubCheckoutProvider,
	ledger *stubUnlockLedger,
	log *stubPaymentLog,
	users *stubUserStore,
) *PaymentService {
	return NewPaymentService(
		db,
		provider,
		ledger,
		log,
		users,
		&stubSearchReader{search: &models.SearchCriteria{BuyerID: 42, PriceMax: 300000}},
		&stubSettingsSource{settings: models.DefaultSettings()},
		"https://app.example",
	)
}

func paymentTestUsers() *stubUserStore {
	return &stubUserStore{users: map[int64]*models.User{
		9:  {ID: 9, Role: models.RoleAgency, Email: "contact@agence.fr"},
		42: testBuyer(),
	}}
}

func TestStartUnlockCreatesTaggedCheckoutSession(t *testing.T) {
	provider := &stubCheckoutProvider{session: paidSession(nil)}
	service := newPaymentServiceForTest(
		&stubTxBeginner{},
		provider,
		&stubUnlockLedger{},
		&stubPaymentLog{},
		paymentTestUsers(),
	)

	url, err := service.StartUnlock(context.Background(), 9, 42)
	if err != nil {
		t.Fatalf("StartUnlock: %v", err)
	}

	if url != "https://checkout.example/cs_test_123" {
		t.Fatalf("unexpected checkout url %q", url)
	}
	if provider.lastInput.AmountCents != 3000 {
		t.Fatalf("expected 3000 cents for a 300000 budget, got %d", provider.lastInput.AmountCents)
	}
	if provider.lastInput.Metadata["agency_id"] != "9" || provider.lastInput.Metadata["buyer_id"] != "42" {
		t.Fatalf("metadata must carry the pair: %v", provider.lastInput.Metadata)
	}
	if provider.lastInput.CustomerEmail != "contact@agence.fr" {
		t.Fatalf("unexpected customer email %q", provider.lastInput.CustomerEmail)
	}
}

func TestStartUnlockRejectsAlreadyUnlockedPair(t *testing.T) {
	service := newPaymentServiceForTest(
		&stubTxBeginner{},
		&stubCheckoutProvider{},
		&stubUnlockLedger{exists: true},
		&stubPaymentLog{},
		paymentTestUsers(),
	)

	_, err := service.StartUnlock(context.Background(), 9, 42)
	if !errors.Is(err, ErrAlreadyUnlocked) {
		t.Fatalf("expected ErrAlreadyUnlocked, got %v", err)
	}
}

func TestStartUnlockUnknownBuyer(t *testing.T) {
	users := &stubUserStore{users: map[int64]*models.User{
		9: {ID: 9, Role: models.RoleAgency, Email: "contact@agence.fr"},
	}}
	service := newPaymentServiceForTest(
		&stubTxBeginner{},
		&stubCheckoutProvider{},
		&stubUnlockLedger{},
		&stubPaymentLog{},
		users,
	)

	_, err := service.StartUnlock(context.Background(), 9, 42)
	if !errors.Is(err, ErrBuyerNotFound) {
		t.Fatalf("expected ErrBuyerNotFound, got %v", err)
	}
}

func TestVerifyUnlockPendingPaymentReportsNotCompleted(t *testing.T) {
	session := paidSession(unlockMetadata())
	session.PaymentStatus = "unpaid"
	db := &stubTxBeginner{}
	service := newPaymentServiceForTest(
		db,
		&stubCheckoutProvider{session: session},
		&stubUnlockLedger{},
		&stubPaymentLog{},
		paymentTestUsers(),
	)

	result, err := service.VerifyUnlock(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("VerifyUnlock: %v", err)
	}

	if result.Success || result.Reason != "not_completed" {
		t.Fatalf("unexpected result %+v", result)
	}
	if db.begun != 0 {
		t.Fatalf("nothing must be written for an unpaid session")
	}
}

func TestVerifyUnlockMalformedMetadata(t *testing.T) {
	cases := []map[string]string{
		nil,
		{"type": "unlock_contact"},
		{"type": "unlock_contact", "agency_id": "9", "buyer_id": "abc"},
		{"type": "plan_purchase", "agency_id": "9", "buyer_id": "42"},
	}

	for _, metadata := range cases {
		db := &stubTxBeginner{}
		service := newPaymentServiceForTest(
			db,
			&stubCheckoutProvider{session: paidSession(metadata)},
			&stubUnlockLedger{},
			&stubPaymentLog{},
			paymentTestUsers(),
		)

		_, err := service.VerifyUnlock(context.Background(), "cs_test_123")
		if !errors.Is(err, ErrMalformedSession) {
			t.Fatalf("metadata %v: expected ErrMalformedSession, got %v", metadata, err)
		}
		if db.begun != 0 {
			t.Fatalf("metadata %v: no transaction expected", metadata)
		}
	}
}

func TestVerifyUnlockRecordsPaymentAndUnlockOnce(t *testing.T) {
	var unlockInserts int
	tx := &stubTx{
		queryRowFn: func(query string, args ...any) pgx.Row {
			if !strings.Contains(query, "INSERT INTO payments") {
				return stubRow{err: errors.New("unexpected query " + query)}
			}
			return stubRow{values: []any{
				int64(1), args[0].(string), args[1].(string), args[2].(int64),
				args[3].(float64), args[4].(string), args[5].(string), args[6].(string),
				time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
			}}
		},
		execFn: func(query string, args ...any) (pgconn.CommandTag, error) {
			if strings.Contains(query, "INSERT INTO unlock_records") {
				unlockInserts++
			}
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}
	db := &stubTxBeginner{tx: tx}
	service := newPaymentServiceForTest(
		db,
		&stubCheckoutProvider{session: paidSession(unlockMetadata())},
		&stubUnlockLedger{exists: false},
		&stubPaymentLog{},
		paymentTestUsers(),
	)

	result, err := service.VerifyUnlock(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("VerifyUnlock: %v", err)
	}

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if unlockInserts != 1 {
		t.Fatalf("expected one unlock insert, got %d", unlockInserts)
	}
	if !tx.committed {
		t.Fatalf("transaction must be committed")
	}
}

func TestVerifyUnlockReplayWithExistingRecordSucceedsWithoutWrites(t *testing.T) {
	db := &stubTxBeginner{}
	service := newPaymentServiceForTest(
		db,
		&stubCheckoutProvider{session: paidSession(unlockMetadata())},
		&stubUnlockLedger{exists: true},
		&stubPaymentLog{},
		paymentTestUsers(),
	)

	result, err := service.VerifyUnlock(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("VerifyUnlock: %v", err)
	}

	if !result.Success {
		t.Fatalf("replay must report success, got %+v", result)
	}
	if db.begun != 0 {
		t.Fatalf("replay must not open a transaction")
	}
}

func TestVerifyUnlockConcurrentLoserSeesProcessedSession(t *testing.T) {
	var unlockInserts int
	tx := &stubTx{
		// the unique index on provider_session_id swallowed the insert
		queryRowFn: func(_ string, _ ...any) pgx.Row {
			return stubRow{err: pgx.ErrNoRows}
		},
		execFn: func(query string, _ ...any) (pgconn.CommandTag, error) {
			if strings.Contains(query, "INSERT INTO unlock_records") {
				unlockInserts++
			}
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}
	service := newPaymentServiceForTest(
		&stubTxBeginner{tx: tx},
		&stubCheckoutProvider{session: paidSession(unlockMetadata())},
		&stubUnlockLedger{exists: false},
		&stubPaymentLog{},
		paymentTestUsers(),
	)

	result, err := service.VerifyUnlock(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("VerifyUnlock: %v", err)
	}

	if !result.Success {
		t.Fatalf("loser must converge on success, got %+v", result)
	}
	if unlockInserts != 0 {
		t.Fatalf("loser must not insert an unlock record")
	}
	if tx.committed {
		t.Fatalf("nothing to commit for the loser")
	}
}

func TestVerifyUnlockProviderFailureIsUpstream(t *testing.T) {
	service := newPaymentServiceForTest(
		&stubTxBeginner{},
		&stubCheckoutProvider{sessionErr: errors.New("connect timeout")},
		&stubUnlockLedger{},
		&stubPaymentLog{},
		paymentTestUsers(),
	)

	_, err := service.VerifyUnlock(context.Background(), "cs_test_123")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestRefundPaymentMarksRefundedAndKeepsUnlock(t *testing.T) {
	provider := &stubCheckoutProvider{refund: &payments.Refund{ID: "re_1", Status: "succeeded"}}
	log := &stubPaymentLog{
		payment: &models.Payment{
			ID: 5, ProviderSessionID: "cs_test_123", PaymentIntentID: "pi_test_123",
			UserID: 9, Amount: 30, Status: models.PaymentStatusPaid, Plan: models.PlanUnlockContact,
		},
		updated: &models.Payment{
			ID: 5, UserID: 9, Status: models.PaymentStatusRefunded, Plan: models.PlanUnlockContact,
		},
	}
	users := paymentTestUsers()
	service := newPaymentServiceForTest(&stubTxBeginner{}, provider, &stubUnlockLedger{}, log, users)

	refunded, err := service.RefundPayment(context.Background(), 9, "cs_test_123")
	if err != nil {
		t.Fatalf("RefundPayment: %v", err)
	}

	if refunded.Status != models.PaymentStatusRefunded {
		t.Fatalf("expected refunded payment, got %+v", refunded)
	}
	if provider.lastIntent != "pi_test_123" {
		t.Fatalf("expected refund against pi_test_123, got %q", provider.lastIntent)
	}
	// a refunded unlock payment never retracts the disclosure
	if users.subUpdateCalled {
		t.Fatalf("unlock refund must not touch the subscription")
	}
}

func TestRefundPaymentPlanRefundClearsSubscription(t *testing.T) {
	provider := &stubCheckoutProvider{refund: &payments.Refund{ID: "re_1", Status: "succeeded"}}
	log := &stubPaymentLog{
		payment: &models.Payment{
			ID: 6, PaymentIntentID: "pi_plan", UserID: 9,
			Status: models.PaymentStatusPaid, Plan: "pro",
		},
		updated: &models.Payment{ID: 6, UserID: 9, Status: models.PaymentStatusRefunded, Plan: "pro"},
	}
	users := paymentTestUsers()
	service := newPaymentServiceForTest(&stubTxBeginner{}, provider, &stubUnlockLedger{}, log, users)

	if _, err := service.RefundPayment(context.Background(), 9, "cs_plan"); err != nil {
		t.Fatalf("RefundPayment: %v", err)
	}

	if !users.subUpdateCalled || users.lastSubUserID != 9 {
		t.Fatalf("plan refund must clear the subscription")
	}
	if users.lastSubPlan != nil || users.lastSubEndDate != nil {
		t.Fatalf("subscription must be cleared, got %v %v", users.lastSubPlan, users.lastSubEndDate)
	}
}

func TestRefundPaymentRejectsForeignPayment(t *testing.T) {
	log := &stubPaymentLog{
		payment: &models.Payment{ID: 5, UserID: 9, Status: models.PaymentStatusPaid},
	}
	service := newPaymentServiceForTest(&stubTxBeginner{}, &stubCheckoutProvider{}, &stubUnlockLedger{}, log, paymentTestUsers())

	_, err := service.RefundPayment(context.Background(), 11, "cs_test_123")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRefundPaymentRejectsNonPaidStatus(t *testing.T) {
	log := &stubPaymentLog{
		payment: &models.Payment{ID: 5, UserID: 9, Status: models.PaymentStatusRefunded},
	}
	service := newPaymentServiceForTest(&stubTxBeginner{}, &stubCheckoutProvider{}, &stubUnlockLedger{}, log, paymentTestUsers())

	_, err := service.RefundPayment(context.Background(), 9, "cs_test_123")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
