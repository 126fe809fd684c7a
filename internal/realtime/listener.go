// Package realtime forwards database change notifications to websocket topics.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kitchenconnect/kitchen-service/internal/websockets"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Channel is the NOTIFY channel written by the messaging triggers
const Channel = "kitchen_changes"

// Change is the payload sent by notify_kitchen_change()
type Change struct {
	Table          string `json:"table"`
	Action         string `json:"action"`
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
}

// Publisher is the part of the hub the listener needs
type Publisher interface {
	PublishJSON(topic string, msgType websockets.MessageType, data interface{}) error
}

// Route maps a change to the topic and message type clients follow
func Route(c Change) (string, websockets.MessageType, error) {
	switch c.Table {
	case "messages":
		if c.ConversationID == "" {
			return "", "", fmt.Errorf("message change %s has no conversation", c.ID)
		}
		return websockets.MessagesTopic(c.ConversationID), websockets.TypeMessageNew, nil
	case "conversations":
		return websockets.TopicConversations, websockets.TypeConversation, nil
	default:
		return "", "", fmt.Errorf("unexpected table %q", c.Table)
	}
}

type Listener struct {
	dsn string
	pub Publisher
	log zerolog.Logger
}

func NewListener(dsn string, pub Publisher, log zerolog.Logger) *Listener {
	return &Listener{
		dsn: dsn,
		pub: pub,
		log: log.With().Str("component", "realtime").Logger(),
	}
}

// Run listens until ctx is cancelled. pq.Listener reconnects on its own.
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.log.Warn().Err(err).Int("event", int(ev)).Msg("listener connection event")
		}
	})
	defer listener.Close()

	if err := listener.Listen(Channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}
	l.log.Info().Str("channel", Channel).Msg("listening for changes")

	ticker := time.NewTicker(90 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; notifications in between are lost
			if n == nil {
				l.log.Info().Msg("listener reconnected")
				continue
			}
			l.Handle(n.Extra)
		case <-ticker.C:
			go l.ping(listener)
		}
	}
}

type pinger interface {
	Ping() error
}

// ping checks the listener connection; failures are reported, pq reconnects
func (l *Listener) ping(p pinger) {
	if err := p.Ping(); err != nil {
		l.log.Warn().Err(err).Msg("listener ping failed")
	}
}

// Handle decodes one notification payload and publishes it
func (l *Listener) Handle(payload string) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		l.log.Warn().Err(err).Str("payload", payload).Msg("malformed change notification")
		return
	}

	topic, msgType, err := Route(c)
	if err != nil {
		l.log.Warn().Err(err).Msg("unroutable change notification")
		return
	}

	if err := l.pub.PublishJSON(topic, msgType, c); err != nil {
		l.log.Error().Err(err).Str("topic", topic).Msg("failed to publish change")
	}
}
