package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

// Webhook log status tags
const (
	WebhookStatusReceived = "received"
	WebhookStatusSuccess  = "success"
	WebhookStatusFailed   = "failed"
)

// Metadata is a free-form JSON object stored in a jsonb column
type Metadata map[string]interface{}

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *Metadata) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("metadata: unsupported source type")
	}
	out := Metadata{}
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// String returns the string value stored under key, or ""
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Conversation is a messaging thread, usually with one WhatsApp number
type Conversation struct {
	ID          uuid.UUID          `db:"id" json:"id"`
	Title       string             `db:"title" json:"title"`
	Status      ConversationStatus `db:"status" json:"status"`
	Metadata    Metadata           `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
	LastMessage *MessagePreview    `db:"-" json:"last_message,omitempty"`
}

// MessagePreview is the latest message shown in a conversation list
type MessagePreview struct {
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Message is a single chat message; SenderID is nil for external senders
type Message struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	SenderID       *uuid.UUID `db:"sender_id" json:"sender_id"`
	Content        string     `db:"content" json:"content"`
	Type           string     `db:"message_type" json:"type"`
	Metadata       Metadata   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// WebhookLog is the audit record of one relay attempt or inbound call
type WebhookLog struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Source    string    `db:"source" json:"source"`
	EventType string    `db:"event_type" json:"event_type"`
	Payload   Metadata  `db:"payload" json:"payload"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SendMessageRequest asks the relay to forward a message to WhatsApp
type SendMessageRequest struct {
	ConversationID uuid.UUID `json:"conversation_id" validate:"required"`
	Message        string    `json:"message" validate:"required,max=4096"`
	To             string    `json:"to" validate:"omitempty,max=32"`
}

// InboundPayload is the body posted by the WhatsApp automation webhook
type InboundPayload struct {
	Type    string          `json:"type"`
	Message *InboundMessage `json:"message,omitempty"`
}

// InboundMessage is an incoming WhatsApp message
type InboundMessage struct {
	ID             string `json:"id,omitempty"`
	From           string `json:"from"`
	Text           string `json:"text"`
	ConversationID string `json:"conversationId,omitempty"`
}
