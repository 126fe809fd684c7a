package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kitchenconnect/kitchen-service/internal/models"
)

// MessageRepository handles conversations, messages and webhook logs
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// ListConversations returns conversations by latest activity, each with its
// most recent message
func (r *MessageRepository) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	query := `
		SELECT c.id, c.title, c.status, c.metadata, c.created_at, c.updated_at,
		       lm.content AS last_content, lm.created_at AS last_created_at
		FROM conversations c
		LEFT JOIN LATERAL (
		    SELECT m.content, m.created_at
		    FROM messages m
		    WHERE m.conversation_id = c.id
		    ORDER BY m.created_at DESC
		    LIMIT 1
		) lm ON TRUE
		ORDER BY c.updated_at DESC
	`

	var rows []struct {
		models.Conversation
		LastContent   sql.NullString `db:"last_content"`
		LastCreatedAt sql.NullTime   `db:"last_created_at"`
	}
	err := r.db.SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	conversations := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		c := row.Conversation
		if row.LastContent.Valid {
			c.LastMessage = &models.MessagePreview{
				Content:   row.LastContent.String,
				CreatedAt: row.LastCreatedAt.Time,
			}
		}
		conversations = append(conversations, c)
	}

	return conversations, nil
}

// GetConversation retrieves a conversation by ID
func (r *MessageRepository) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `
		SELECT id, title, status, metadata, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var c models.Conversation
	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &c, nil
}

// CreateConversation inserts a conversation
func (r *MessageRepository) CreateConversation(ctx context.Context, c models.Conversation) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (title, status, metadata)
		VALUES ($1, $2, $3)
		RETURNING id, title, status, metadata, created_at, updated_at
	`

	var created models.Conversation
	err := r.db.GetContext(ctx, &created, query, c.Title, c.Status, c.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return &created, nil
}

// ListMessages returns a conversation's messages, oldest first
func (r *MessageRepository) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, message_type, metadata, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`

	var messages []models.Message
	err := r.db.SelectContext(ctx, &messages, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

// CreateMessage inserts a message
func (r *MessageRepository) CreateMessage(ctx context.Context, m models.Message) (*models.Message, error) {
	if m.Type == "" {
		m.Type = "text"
	}

	query := `
		INSERT INTO messages (conversation_id, sender_id, content, message_type, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, conversation_id, sender_id, content, message_type, metadata, created_at
	`

	var created models.Message
	err := r.db.GetContext(ctx, &created, query, m.ConversationID, m.SenderID, m.Content, m.Type, m.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return &created, nil
}

// CreateWebhookLog records a relay or webhook event
func (r *MessageRepository) CreateWebhookLog(ctx context.Context, l models.WebhookLog) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO webhook_logs (source, event_type, payload, status) VALUES ($1, $2, $3, $4)`,
		l.Source,
		l.EventType,
		l.Payload,
		l.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook log: %w", err)
	}
	return nil
}
