package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helloneovia/immocible-sub000/internal/models"
	"github.com/helloneovia/immocible-sub000/internal/repository"
)

type conversationStore interface {
	CreateOrGet(ctx context.Context, agencyID, buyerID int64) (*models.Conversation, error)
	GetByPair(ctx context.Context, agencyID, buyerID int64) (*models.Conversation, error)
	GetByIDForParticipant(ctx context.Context, conversationID, participantID int64) (*models.Conversation, error)
	CountCreatedSince(ctx context.Context, agencyID int64, since time.Time) (int, error)
	ListForParticipant(ctx context.Context, participantID int64) ([]models.ConversationSummary, error)
}

// ChatService runs the message pipeline: participant gate, subscription gate,
// redaction, persistence, then best-effort notification.
type ChatService struct {
	db               txBeginner
	conversationRepo conversationStore
	messageRepo      *repository.MessageRepository
	userRepo         userReader
	settings         settingsSource
	notifier         MessageNotifier
}

type ChatDelivery struct {
	Conversation *models.Conversation
	Message      *models.ChatMessage
	RecipientID  int64
}

func NewChatService(
	db txBeginner,
	conversationRepo conversationStore,
	messageRepo *repository.MessageRepository,
	userRepo userReader,
	settings settingsSource,
	notifier MessageNotifier,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		settings:         settings,
		notifier:         notifier,
	}
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actorID int64,
	role string,
) ([]models.ConversationSummary, error) {
	if role != models.RoleBuyer && role != models.RoleAgency {
		return nil, ErrForbidden
	}

	return s.conversationRepo.ListForParticipant(ctx, actorID)
}

// InitiateConversation returns the existing conversation between the agency
// and the buyer, or creates one. Creation counts against the agency plan's
// monthly quota; reusing an existing conversation does not.
func (s *ChatService) InitiateConversation(
	ctx context.Context,
	actorID int64,
	role string,
	buyerID int64,
) (*models.Conversation, error) {
	if role != models.RoleAgency {
		return nil, ErrForbidden
	}
	if buyerID <= 0 || buyerID == actorID {
		return nil, ErrInvalidInput
	}

	buyer, err := s.userRepo.GetByID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBuyerNotFound
		}
		return nil, err
	}
	if buyer.Role != models.RoleBuyer {
		return nil, ErrInvalidInput
	}

	existing, err := s.conversationRepo.GetByPair(ctx, actorID, buyerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	agency, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !agency.HasActiveSubscription(time.Now()) {
		return nil, ErrSubscriptionExpired
	}

	if err := s.checkConversationQuota(ctx, agency); err != nil {
		return nil, err
	}

	return s.conversationRepo.CreateOrGet(ctx, actorID, buyerID)
}

func (s *ChatService) checkConversationQuota(ctx context.Context, agency *models.User) error {
	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return err
	}

	limit, ok := settings.PlanConversationLimits[*agency.SubscriptionPlan]
	if !ok || limit < 0 {
		return nil
	}

	monthStart := time.Now().UTC()
	monthStart = time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, time.UTC)

	count, err := s.conversationRepo.CountCreatedSince(ctx, agency.ID, monthStart)
	if err != nil {
		return err
	}
	if count >= limit {
		return ErrConversationLimit
	}

	return nil
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
	page int,
	limit int,
) ([]models.ChatMessage, int, error) {
	if role != models.RoleBuyer && role != models.RoleAgency {
		return nil, 0, ErrForbidden
	}
	if conversationID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	_, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		return nil, 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)

	messages, total, err := txMessageRepo.ListByConversation(
		ctx,
		conversationID,
		limit,
		(page-1)*limit,
	)
	if err != nil {
		return nil, 0, err
	}

	messageIDs := make([]int64, 0, len(messages))
	for _, message := range messages {
		messageIDs = append(messageIDs, message.ID)
	}

	if err := txMessageRepo.MarkMessagesRead(ctx, messageIDs, actorID); err != nil {
		return nil, 0, err
	}

	for i := range messages {
		if messages[i].SenderID != actorID {
			messages[i].IsRead = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// SendMessage runs the full send pipeline. Each gate is hard: a caller who is
// not a participant, or an agency without a live subscription, gets nothing
// persisted. Redaction always runs, unlock status notwithstanding — chat must
// never be a free channel for contact details.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
	content string,
) (*ChatDelivery, error) {
	if role != models.RoleBuyer && role != models.RoleAgency {
		return nil, ErrForbidden
	}
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	if role == models.RoleAgency {
		agency, err := s.userRepo.GetByID(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !agency.HasActiveSubscription(time.Now()) {
			return nil, ErrSubscriptionExpired
		}
	}

	redacted := RedactContactInfo(trimmed)

	recipientID := conversation.BuyerID
	if actorID == conversation.BuyerID {
		recipientID = conversation.AgencyID
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, conversationID, actorID, redacted)
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.Touch(ctx, conversationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifyRecipient(actorID, recipientID, conversationID, message.Content)

	return &ChatDelivery{
		Conversation: conversation,
		Message:      message,
		RecipientID:  recipientID,
	}, nil
}

// notifyRecipient dispatches the notification off the request path. The
// message write is the durable fact; a notification failure is only logged.
func (s *ChatService) notifyRecipient(senderID, recipientID, conversationID int64, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sender, err := s.userRepo.GetByID(ctx, senderID)
		if err != nil {
			log.Printf("chat notification: load sender %d: %v", senderID, err)
			return
		}
		recipient, err := s.userRepo.GetByID(ctx, recipientID)
		if err != nil {
			log.Printf("chat notification: load recipient %d: %v", recipientID, err)
			return
		}

		err = s.notifier.SendMessageNotification(ctx, MessageNotification{
			RecipientEmail: recipient.Email,
			RecipientRole:  recipient.Role,
			SenderName:     sender.FullName,
			Body:           body,
			ConversationID: conversationID,
		})
		if err != nil {
			log.Printf("chat notification: conversation %d: %v", conversationID, err)
		}
	}()
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
