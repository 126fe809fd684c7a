package realtime

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kitchenconnect/kitchen-service/internal/websockets"
	"github.com/rs/zerolog"
)

type published struct {
	topic   string
	msgType websockets.MessageType
	data    interface{}
}

type fakePublisher struct {
	calls []published
}

func (f *fakePublisher) PublishJSON(topic string, msgType websockets.MessageType, data interface{}) error {
	f.calls = append(f.calls, published{topic, msgType, data})
	return nil
}

func TestRoute(t *testing.T) {
	topic, typ, err := Route(Change{Table: "messages", ID: "m1", ConversationID: "c1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topic != "messages:c1" || typ != websockets.TypeMessageNew {
		t.Fatalf("expected messages:c1/message.new, got %s/%s", topic, typ)
	}

	topic, typ, err = Route(Change{Table: "conversations", ID: "c1", ConversationID: "c1"})
	if err != nil || topic != websockets.TopicConversations || typ != websockets.TypeConversation {
		t.Fatalf("unexpected route %s/%s (%v)", topic, typ, err)
	}

	if _, _, err := Route(Change{Table: "orders"}); err == nil {
		t.Fatal("expected error for unknown table")
	}
	if _, _, err := Route(Change{Table: "messages", ID: "m1"}); err == nil {
		t.Fatal("expected error for message without conversation")
	}
}

func TestHandlePublishesDecodedChange(t *testing.T) {
	pub := &fakePublisher{}
	l := NewListener("", pub, zerolog.Nop())

	l.Handle(`{"table":"messages","action":"INSERT","id":"m1","conversation_id":"c9"}`)
	l.Handle(`not json`)
	l.Handle(`{"table":"users","action":"INSERT","id":"u1"}`)

	if len(pub.calls) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.calls))
	}
	got := pub.calls[0]
	if got.topic != "messages:c9" {
		t.Fatalf("expected messages:c9, got %s", got.topic)
	}
	if c, ok := got.data.(Change); !ok || c.Action != "INSERT" {
		t.Fatalf("unexpected data %#v", got.data)
	}
}

type pingFunc func() error

func (f pingFunc) Ping() error { return f() }

func TestPingFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	l := NewListener("", &fakePublisher{}, zerolog.New(&buf))

	l.ping(pingFunc(func() error { return nil }))
	if buf.Len() != 0 {
		t.Fatalf("expected no log for a healthy ping, got %s", buf.String())
	}

	l.ping(pingFunc(func() error { return errors.New("connection reset") }))
	if !strings.Contains(buf.String(), "listener ping failed") || !strings.Contains(buf.String(), "connection reset") {
		t.Fatalf("expected ping failure in log, got %s", buf.String())
	}
}
