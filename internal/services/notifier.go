package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

type MessageNotification struct {
	RecipientEmail string
	RecipientRole  string
	SenderName     string
	Body           string
	ConversationID int64
}

// MessageNotifier delivers a best-effort "new message" notification. Failures
// are logged by the caller and never roll back the message write.
type MessageNotifier interface {
	SendMessageNotification(ctx context.Context, notification MessageNotification) error
}

// MailNotifier posts transactional mail through an HTTP mail API.
type MailNotifier struct {
	baseURL    string
	apiKey     string
	from       string
	appBaseURL string
	httpClient *http.Client
}

func NewMailNotifier(baseURL, apiKey, from, appBaseURL string) *MailNotifier {
	return &MailNotifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		from:       from,
		appBaseURL: appBaseURL,
		httpClient: http.DefaultClient,
	}
}

func (n *MailNotifier) SendMessageNotification(
	ctx context.Context,
	notification MessageNotification,
) error {
	conversationURL := fmt.Sprintf("%s/messagerie/%d", n.appBaseURL, notification.ConversationID)

	payload, err := json.Marshal(map[string]string{
		"from":    n.from,
		"to":      notification.RecipientEmail,
		"subject": fmt.Sprintf("Nouveau message de %s", notification.SenderName),
		"text": fmt.Sprintf(
			"%s vous a envoyé un message :\n\n%s\n\nRépondre : %s",
			notification.SenderName,
			notification.Body,
			conversationURL,
		),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.baseURL+"/emails",
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail API %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// LogNotifier is the fallback when no mail API is configured.
type LogNotifier struct{}

func (LogNotifier) SendMessageNotification(_ context.Context, notification MessageNotification) error {
	log.Printf("message notification for %s (conversation %d) skipped: mailer not configured",
		notification.RecipientEmail, notification.ConversationID)
	return nil
}
