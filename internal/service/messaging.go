package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/db/repository"
	"github.com/kitchenconnect/kitchen-service/internal/metrics"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/rs/zerolog"
)

const (
	sourceWhatsApp = "whatsapp"

	eventMessageSent      = "message_sent"
	eventMessageProcessed = "message_processed"
)

// RelayConfig configures the outbound WhatsApp automation webhook
type RelayConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// MessagingService relays staff messages to WhatsApp and records inbound ones
type MessagingService struct {
	store   MessageStore
	client  *http.Client
	cfg     RelayConfig
	dedup   Deduper
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// NewMessagingService creates the relay. dedup may be nil.
func NewMessagingService(store MessageStore, cfg RelayConfig, dedup Deduper, m *metrics.Metrics, log zerolog.Logger) *MessagingService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MessagingService{
		store:   store,
		client:  &http.Client{Timeout: timeout},
		cfg:     cfg,
		dedup:   dedup,
		metrics: m,
		log:     log.With().Str("component", "messaging").Logger(),
		now:     time.Now,
	}
}

// relayPayload is the body POSTed to the automation webhook
type relayPayload struct {
	To             string `json:"to"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	Timestamp      string `json:"timestamp"`
}

func (s *MessagingService) ListConversations(ctx context.Context, actor Actor) ([]models.Conversation, error) {
	if err := actor.require(permissions.CanManageMessages); err != nil {
		return nil, err
	}
	return s.store.ListConversations(ctx)
}

func (s *MessagingService) ListMessages(ctx context.Context, actor Actor, conversationID uuid.UUID) ([]models.Message, error) {
	if err := actor.require(permissions.CanManageMessages); err != nil {
		return nil, err
	}
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

// Send forwards a message to WhatsApp. The message and an audit row are
// stored whatever the outcome; a failed forward is returned wrapped in
// ErrRelayFailed along with the stored message.
func (s *MessagingService) Send(ctx context.Context, actor Actor, req models.SendMessageRequest) (*models.Message, error) {
	if err := actor.require(permissions.CanManageMessages); err != nil {
		return nil, err
	}
	if s.cfg.WebhookURL == "" {
		return nil, ErrRelayNotConfigured
	}

	conv, err := s.store.GetConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	to := req.To
	if to == "" {
		to = conv.Metadata.String("whatsapp_number")
	}
	if to == "" {
		return nil, ErrNoRecipient
	}

	payload := relayPayload{
		To:             to,
		Message:        req.Message,
		ConversationID: conv.ID.String(),
		Timestamp:      s.now().UTC().Format(time.RFC3339Nano),
	}
	forwardErr := s.forward(ctx, payload)

	status, delivery := models.WebhookStatusSuccess, "sent"
	if forwardErr != nil {
		status, delivery = models.WebhookStatusFailed, "failed"
	}
	s.metrics.IncRelay(status)

	senderID := actor.ID
	msg, err := s.store.CreateMessage(ctx, models.Message{
		ConversationID: conv.ID,
		SenderID:       &senderID,
		Content:        req.Message,
		Type:           "text",
		Metadata:       models.Metadata{"to": to, "source": "system", "delivery": delivery},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	logPayload := models.Metadata{"conversationId": conv.ID.String(), "to": to, "message": req.Message}
	if forwardErr != nil {
		logPayload["error"] = forwardErr.Error()
	}
	s.audit(ctx, eventMessageSent, logPayload, status)

	if forwardErr != nil {
		s.log.Warn().Err(forwardErr).Str("conversation_id", conv.ID.String()).Msg("whatsapp relay failed")
		return msg, fmt.Errorf("%w: %v", ErrRelayFailed, forwardErr)
	}
	return msg, nil
}

func (s *MessagingService) forward(ctx context.Context, payload relayPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode relay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

// HandleInbound stores a message posted by the WhatsApp automation. raw is
// the decoded request body, kept verbatim in the audit log.
func (s *MessagingService) HandleInbound(ctx context.Context, payload models.InboundPayload, raw models.Metadata) error {
	eventType := payload.Type
	if eventType == "" {
		eventType = "unknown"
	}
	s.audit(ctx, eventType, raw, models.WebhookStatusReceived)

	if payload.Type != "message" || payload.Message == nil {
		s.metrics.IncInbound("ignored")
		return nil
	}
	in := payload.Message
	if in.From == "" || in.Text == "" {
		s.metrics.IncInbound("invalid")
		return fmt.Errorf("%w: message needs from and text", ErrInvalidInput)
	}

	if s.dedup != nil && in.ID != "" {
		first, err := s.dedup.FirstSeen(ctx, in.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("message_id", in.ID).Msg("dedup check failed")
		} else if !first {
			s.metrics.IncInbound("duplicate")
			return nil
		}
	}

	conv, err := s.findOrCreateConversation(ctx, in)
	if err == nil {
		_, err = s.store.CreateMessage(ctx, models.Message{
			ConversationID: conv.ID,
			Content:        in.Text,
			Type:           "text",
			Metadata:       models.Metadata{"from": in.From, "source": sourceWhatsApp},
		})
	}
	if err != nil {
		if s.dedup != nil && in.ID != "" {
			if ferr := s.dedup.Forget(ctx, in.ID); ferr != nil {
				s.log.Warn().Err(ferr).Str("message_id", in.ID).Msg("failed to clear dedup key")
			}
		}
		s.metrics.IncInbound("failed")
		return fmt.Errorf("failed to store inbound message: %w", err)
	}

	s.audit(ctx, eventMessageProcessed, models.Metadata{"conversationId": conv.ID.String()}, models.WebhookStatusSuccess)
	s.metrics.IncInbound("processed")
	return nil
}

func (s *MessagingService) findOrCreateConversation(ctx context.Context, in *models.InboundMessage) (*models.Conversation, error) {
	if in.ConversationID != "" {
		if id, err := uuid.Parse(in.ConversationID); err == nil {
			conv, err := s.store.GetConversation(ctx, id)
			if err == nil {
				return conv, nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
		}
	}

	return s.store.CreateConversation(ctx, models.Conversation{
		Title:    "WhatsApp: " + in.From,
		Status:   models.ConversationActive,
		Metadata: models.Metadata{"whatsapp_number": in.From},
	})
}

// audit writes a webhook log row; failures are logged, never returned
func (s *MessagingService) audit(ctx context.Context, eventType string, payload models.Metadata, status string) {
	err := s.store.CreateWebhookLog(ctx, models.WebhookLog{
		Source:    sourceWhatsApp,
		EventType: eventType,
		Payload:   payload,
		Status:    status,
	})
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to write webhook log")
	}
}
