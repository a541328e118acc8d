package models

import "time"

// Conversation links one agency with one buyer. The (agency_id, buyer_id)
// pair is unique; the first contact attempt creates it, later ones reuse it.
type Conversation struct {
	ID        int64     `json:"id"`
	AgencyID  int64     `json:"agency_id"`
	BuyerID   int64     `json:"buyer_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage content is redacted before it is written and never mutated
// afterwards.
type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationSummary struct {
	Conversation
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
}
