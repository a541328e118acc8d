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
)

type stubConversationStore struct {
	conversation    *models.Conversation
	byPair          *models.Conversation
	created         *models.Conversation
	createCalls     int
	monthlyCount    int
	countCalls      int
	lastCountAgency int64
	lastCountSince  time.Time
	summaries       []models.ConversationSummary
}

func (s *stubConversationStore) CreateOrGet(_ context.Context, agencyID, buyerID int64) (*models.Conversation, error) {
	s.createCalls++
	if s.created != nil {
		return s.created, nil
	}
	return &models.Conversation{ID: 1, AgencyID: agencyID, BuyerID: buyerID}, nil
}

func (s *stubConversationStore) GetByPair(_ context.Context, _, _ int64) (*models.Conversation, error) {
	if s.byPair == nil {
		return nil, pgx.ErrNoRows
	}
	return s.byPair, nil
}

func (s *stubConversationStore) GetByIDForParticipant(_ context.Context, _, _ int64) (*models.Conversation, error) {
	if s.conversation == nil {
		return nil, pgx.ErrNoRows
	}
	return s.conversation, nil
}

func (s *stubConversationStore) CountCreatedSince(_ context.Context, agencyID int64, since time.Time) (int, error) {
	s.countCalls++
	s.lastCountAgency = agencyID
	s.lastCountSince = since
	return s.monthlyCount, nil
}

func (s *stubConversationStore) ListForParticipant(_ context.Context, _ int64) ([]models.ConversationSummary, error) {
	return s.summaries, nil
}

type stubNotifier struct {
	sent chan MessageNotification
	err  error
}

func (n *stubNotifier) SendMessageNotification(_ context.Context, notification MessageNotification) error {
	if n.sent != nil {
		n.sent <- notification
	}
	return n.err
}

func subscribedAgency() *models.User {
	plan := "pro"
	endDate := time.Now().Add(30 * 24 * time.Hour)
	return &models.User{
		ID:                  9,
		Email:               "contact@agence.fr",
		Role:                models.RoleAgency,
		FullName:            "Agence du Parc",
		SubscriptionPlan:    &plan,
		SubscriptionEndDate: &endDate,
	}
}

func expiredAgency() *models.User {
	agency := subscribedAgency()
	endDate := time.Now().Add(-24 * time.Hour)
	agency.SubscriptionEndDate = &endDate
	return agency
}

func chatTestUsers(agency *models.User) *stubUserStore {
	return &stubUserStore{users: map[int64]*models.User{
		agency.ID: agency,
		42:        testBuyer(),
	}}
}

func messageTx() *stubTx {
	return &stubTx{
		queryRowFn: func(query string, args ...any) pgx.Row {
			if !strings.Contains(query, "INSERT INTO messages") {
				return stubRow{err: errors.New("unexpected query " + query)}
			}
			return stubRow{values: []any{
				int64(100), args[0].(int64), args[1].(int64), args[2].(string),
				false, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
			}}
		},
		execFn: func(_ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}
}

func newChatServiceForTest(
	db *stubTxBeginner,
	store *stubConversationStore,
	users *stubUserStore,
	notifier MessageNotifier,
) *ChatService {
	return NewChatService(
		db,
		store,
		nil,
		users,
		&stubSettingsSource{settings: models.DefaultSettings()},
		notifier,
	)
}

func TestSendMessageRedactsContactDetailsBeforePersisting(t *testing.T) {
	tx := messageTx()
	store := &stubConversationStore{
		conversation: &models.Conversation{ID: 17, AgencyID: 9, BuyerID: 42},
	}
	notifier := &stubNotifier{sent: make(chan MessageNotification, 1)}
	service := newChatServiceForTest(&stubTxBeginner{tx: tx}, store, chatTestUsers(subscribedAgency()), notifier)

	delivery, err := service.SendMessage(
		context.Background(),
		9,
		models.RoleAgency,
		17,
		"Appelez-moi au 06 12 34 56 78 ou sur paul@agence.fr",
	)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	content := delivery.Message.Content
	if strings.Contains(content, "06 12 34 56 78") || strings.Contains(content, "paul@agence.fr") {
		t.Fatalf("contact details persisted: %q", content)
	}
	if !strings.Contains(content, PhonePlaceholder) || !strings.Contains(content, EmailPlaceholder) {
		t.Fatalf("placeholders missing: %q", content)
	}
	if delivery.RecipientID != 42 {
		t.Fatalf("expected buyer 42 as recipient, got %d", delivery.RecipientID)
	}
	if !tx.committed {
		t.Fatalf("message transaction must be committed")
	}

	select {
	case notification := <-notifier.sent:
		if strings.Contains(notification.Body, "06 12 34 56 78") {
			t.Fatalf("notification leaked contact details: %q", notification.Body)
		}
		if notification.RecipientEmail != "jean.dupont@example.com" {
			t.Fatalf("unexpected notification recipient %q", notification.RecipientEmail)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("notification was never dispatched")
	}
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	db := &stubTxBeginner{}
	service := newChatServiceForTest(db, &stubConversationStore{}, chatTestUsers(subscribedAgency()), &stubNotifier{})

	_, err := service.SendMessage(context.Background(), 77, models.RoleBuyer, 17, "bonjour")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if db.begun != 0 {
		t.Fatalf("nothing must be written for a non-participant")
	}
}

func TestSendMessageRejectsExpiredAgencySubscription(t *testing.T) {
	db := &stubTxBeginner{}
	store := &stubConversationStore{
		conversation: &models.Conversation{ID: 17, AgencyID: 9, BuyerID: 42},
	}
	service := newChatServiceForTest(db, store, chatTestUsers(expiredAgency()), &stubNotifier{})

	_, err := service.SendMessage(context.Background(), 9, models.RoleAgency, 17, "bonjour")
	if !errors.Is(err, ErrSubscriptionExpired) {
		t.Fatalf("expected ErrSubscriptionExpired, got %v", err)
	}
	if db.begun != 0 {
		t.Fatalf("no message may be persisted past an expired subscription")
	}
}

func TestSendMessageBuyerIsNotSubscriptionGated(t *testing.T) {
	tx := messageTx()
	store := &stubConversationStore{
		conversation: &models.Conversation{ID: 17, AgencyID: 9, BuyerID: 42},
	}
	service := newChatServiceForTest(&stubTxBeginner{tx: tx}, store, chatTestUsers(expiredAgency()), &stubNotifier{})

	delivery, err := service.SendMessage(context.Background(), 42, models.RoleBuyer, 17, "toujours intéressé")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if delivery.RecipientID != 9 {
		t.Fatalf("expected agency 9 as recipient, got %d", delivery.RecipientID)
	}
}

func TestSendMessageSucceedsWhenNotificationFails(t *testing.T) {
	tx := messageTx()
	store := &stubConversationStore{
		conversation: &models.Conversation{ID: 17, AgencyID: 9, BuyerID: 42},
	}
	notifier := &stubNotifier{sent: make(chan MessageNotification, 1), err: errors.New("smtp down")}
	service := newChatServiceForTest(&stubTxBeginner{tx: tx}, store, chatTestUsers(subscribedAgency()), notifier)

	delivery, err := service.SendMessage(context.Background(), 9, models.RoleAgency, 17, "bonjour")
	if err != nil {
		t.Fatalf("notification failure must not fail the send: %v", err)
	}
	if delivery.Message == nil || !tx.committed {
		t.Fatalf("message must be persisted regardless of notification outcome")
	}

	select {
	case <-notifier.sent:
	case <-time.After(2 * time.Second):
		t.Fatalf("notification attempt expected")
	}
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	service := newChatServiceForTest(&stubTxBeginner{}, &stubConversationStore{}, chatTestUsers(subscribedAgency()), &stubNotifier{})

	_, err := service.SendMessage(context.Background(), 9, models.RoleAgency, 17, "   ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestInitiateConversationReusesExistingWithoutQuota(t *testing.T) {
	store := &stubConversationStore{
		byPair:       &models.Conversation{ID: 17, AgencyID: 9, BuyerID: 42},
		monthlyCount: 1000,
	}
	service := newChatServiceForTest(&stubTxBeginner{}, store, chatTestUsers(expiredAgency()), &stubNotifier{})

	conversation, err := service.InitiateConversation(context.Background(), 9, models.RoleAgency, 42)
	if err != nil {
		t.Fatalf("InitiateConversation: %v", err)
	}

	if conversation.ID != 17 {
		t.Fatalf("expected existing conversation, got %+v", conversation)
	}
	if store.countCalls != 0 || store.createCalls != 0 {
		t.Fatalf("existing conversation must bypass quota and creation")
	}
}

func TestInitiateConversationEnforcesMonthlyQuota(t *testing.T) {
	store := &stubConversationStore{monthlyCount: 50}
	service := newChatServiceForTest(&stubTxBeginner{}, store, chatTestUsers(subscribedAgency()), &stubNotifier{})

	_, err := service.InitiateConversation(context.Background(), 9, models.RoleAgency, 42)
	if !errors.Is(err, ErrConversationLimit) {
		t.Fatalf("expected ErrConversationLimit for a pro plan at 50, got %v", err)
	}
	if store.createCalls != 0 {
		t.Fatalf("conversation must not be created past the quota")
	}

	since := store.lastCountSince
	if since.Day() != 1 || since.Hour() != 0 || since.Location() != time.UTC {
		t.Fatalf("quota window must start at the first of the month UTC, got %v", since)
	}
}

func TestInitiateConversationUnlimitedPlanSkipsQuota(t *testing.T) {
	agency := subscribedAgency()
	plan := "unlimited"
	agency.SubscriptionPlan = &plan

	store := &stubConversationStore{monthlyCount: 100000}
	service := newChatServiceForTest(&stubTxBeginner{}, store, chatTestUsers(agency), &stubNotifier{})

	if _, err := service.InitiateConversation(context.Background(), 9, models.RoleAgency, 42); err != nil {
		t.Fatalf("InitiateConversation: %v", err)
	}
	if store.createCalls != 1 {
		t.Fatalf("expected conversation creation, got %d calls", store.createCalls)
	}
}

func TestInitiateConversationRequiresActiveSubscription(t *testing.T) {
	store := &stubConversationStore{}
	service := newChatServiceForTest(&stubTxBeginner{}, store, chatTestUsers(expiredAgency()), &stubNotifier{})

	_, err := service.InitiateConversation(context.Background(), 9, models.RoleAgency, 42)
	if !errors.Is(err, ErrSubscriptionExpired) {
		t.Fatalf("expected ErrSubscriptionExpired, got %v", err)
	}
}

func TestInitiateConversationAgencyOnly(t *testing.T) {
	service := newChatServiceForTest(&stubTxBeginner{}, &stubConversationStore{}, chatTestUsers(subscribedAgency()), &stubNotifier{})

	_, err := service.InitiateConversation(context.Background(), 42, models.RoleBuyer, 9)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestInitiateConversationRejectsNonBuyerTarget(t *testing.T) {
	users := &stubUserStore{users: map[int64]*models.User{
		9:  subscribedAgency(),
		10: {ID: 10, Role: models.RoleAgency},
	}}
	service := newChatServiceForTest(&stubTxBeginner{}, &stubConversationStore{}, users, &stubNotifier{})

	_, err := service.InitiateConversation(context.Background(), 9, models.RoleAgency, 10)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
