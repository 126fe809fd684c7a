package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/metrics"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/redisx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newMessaging(t *testing.T, url string, dedup Deduper) (*MessagingService, *fakeMessages) {
	t.Helper()
	store := newFakeMessages()
	svc := NewMessagingService(store, RelayConfig{WebhookURL: url}, dedup, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	return svc, store
}

func TestSendForwardsAndRecords(t *testing.T) {
	var got relayPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc, store := newMessaging(t, srv.URL, nil)
	conv, _ := store.CreateConversation(context.Background(), models.Conversation{
		Title:    "WhatsApp: +6421",
		Metadata: models.Metadata{"whatsapp_number": "+6421"},
	})

	staff := newActor(models.RoleModerator)
	msg, err := svc.Send(context.Background(), staff, models.SendMessageRequest{ConversationID: conv.ID, Message: "Your order is on its way"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.To != "+6421" || got.ConversationID != conv.ID.String() || got.Message != "Your order is on its way" || got.Timestamp == "" {
		t.Fatalf("unexpected relay payload %+v", got)
	}
	if msg.SenderID == nil || *msg.SenderID != staff.ID || msg.Metadata.String("delivery") != "sent" {
		t.Fatalf("unexpected stored message %+v", msg)
	}
	if len(store.logs) != 1 || store.logs[0].Status != models.WebhookStatusSuccess || store.logs[0].EventType != "message_sent" {
		t.Fatalf("unexpected webhook logs %+v", store.logs)
	}
}

func TestSendRecordsFailedForward(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc, store := newMessaging(t, srv.URL, nil)
	conv, _ := store.CreateConversation(context.Background(), models.Conversation{Title: "c"})

	msg, err := svc.Send(context.Background(), newActor(models.RoleAdmin), models.SendMessageRequest{
		ConversationID: conv.ID, Message: "hi", To: "+6422",
	})
	if !errors.Is(err, ErrRelayFailed) {
		t.Fatalf("expected relay failure, got %v", err)
	}
	if msg == nil || msg.Metadata.String("delivery") != "failed" {
		t.Fatalf("expected stored failed message, got %+v", msg)
	}
	if len(store.logs) != 1 || store.logs[0].Status != models.WebhookStatusFailed {
		t.Fatalf("expected failed log, got %+v", store.logs)
	}
}

func TestSendPreconditions(t *testing.T) {
	ctx := context.Background()

	svc, store := newMessaging(t, "", nil)
	if _, err := svc.Send(ctx, newActor(models.RoleAdmin), models.SendMessageRequest{ConversationID: uuid.New(), Message: "x"}); !errors.Is(err, ErrRelayNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}

	svc, store = newMessaging(t, "http://127.0.0.1:1", nil)
	if _, err := svc.Send(ctx, newActor(models.RoleDriver), models.SendMessageRequest{Message: "x"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	conv, _ := store.CreateConversation(ctx, models.Conversation{Title: "no number"})
	if _, err := svc.Send(ctx, newActor(models.RoleAdmin), models.SendMessageRequest{ConversationID: conv.ID, Message: "x"}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected no recipient, got %v", err)
	}
	if len(store.messages) != 0 {
		t.Fatal("nothing should be stored before a forward is attempted")
	}
}

func TestHandleInboundCreatesConversation(t *testing.T) {
	svc, store := newMessaging(t, "", nil)

	payload := models.InboundPayload{Type: "message", Message: &models.InboundMessage{From: "+6423", Text: "Where is my pizza?"}}
	if err := svc.HandleInbound(context.Background(), payload, models.Metadata{"type": "message"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(store.conversations))
	}
	for _, c := range store.conversations {
		if c.Title != "WhatsApp: +6423" || c.Status != models.ConversationActive || c.Metadata.String("whatsapp_number") != "+6423" {
			t.Fatalf("unexpected conversation %+v", c)
		}
	}
	if len(store.messages) != 1 || store.messages[0].SenderID != nil {
		t.Fatalf("expected one external message, got %+v", store.messages)
	}
	if len(store.logs) != 2 || store.logs[0].Status != models.WebhookStatusReceived || store.logs[1].EventType != "message_processed" {
		t.Fatalf("unexpected logs %+v", store.logs)
	}
}

func TestHandleInboundUsesExistingConversation(t *testing.T) {
	svc, store := newMessaging(t, "", nil)
	conv, _ := store.CreateConversation(context.Background(), models.Conversation{Title: "existing"})

	payload := models.InboundPayload{Type: "message", Message: &models.InboundMessage{
		From: "+6424", Text: "hello", ConversationID: conv.ID.String(),
	}}
	if err := svc.HandleInbound(context.Background(), payload, nil); err != nil {
		t.Fatal(err)
	}
	if len(store.conversations) != 1 || store.messages[0].ConversationID != conv.ID {
		t.Fatalf("expected message in existing conversation, got %+v", store.messages)
	}
}

func TestHandleInboundIgnoresOtherEvents(t *testing.T) {
	svc, store := newMessaging(t, "", nil)

	if err := svc.HandleInbound(context.Background(), models.InboundPayload{}, nil); err != nil {
		t.Fatal(err)
	}
	if len(store.logs) != 1 || store.logs[0].EventType != "unknown" || len(store.messages) != 0 {
		t.Fatalf("expected only the received log, got %+v", store.logs)
	}
}

func TestHandleInboundDropsRedelivery(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc, store := newMessaging(t, "", redisx.NewDeduper(rdb, "whatsapp", 0))
	payload := models.InboundPayload{Type: "message", Message: &models.InboundMessage{ID: "wamid.1", From: "+6425", Text: "hi"}}

	for i := 0; i < 2; i++ {
		if err := svc.HandleInbound(context.Background(), payload, nil); err != nil {
			t.Fatal(err)
		}
	}
	if len(store.messages) != 1 {
		t.Fatalf("expected redelivery to be dropped, got %d messages", len(store.messages))
	}
}
