package websockets

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/kitchenconnect/kitchen-service/internal/lifecycle"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/rs/zerolog"
)

// Topic prefixes clients may subscribe to
const (
	TopicOrderPrefix    = "orders:"
	TopicMessagesPrefix = "messages:"
	TopicConversations  = "conversations"
)

func OrderTopic(orderID string) string { return TopicOrderPrefix + orderID }

func MessagesTopic(conversationID string) string { return TopicMessagesPrefix + conversationID }

type Hub struct {
	clients map[*Client]bool

	unregister chan *Client

	broadcast chan []byte

	topics map[string]map[*Client]bool

	mu sync.Mutex

	// done is closed when Run returns
	done chan struct{}

	log zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		topics:     make(map[string]map[*Client]bool),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "hub").Logger(),
	}
}

// CanSubscribe reports whether a client holding roles may follow topic.
// Messaging topics need canManageMessages; order topics are open to any
// authenticated client.
func CanSubscribe(roles permissions.RoleSet, topic string) bool {
	switch {
	case strings.HasPrefix(topic, TopicOrderPrefix):
		return len(topic) > len(TopicOrderPrefix)
	case strings.HasPrefix(topic, TopicMessagesPrefix), topic == TopicConversations:
		return permissions.HasPermission(roles, permissions.CanManageMessages)
	default:
		return false
	}
}

// Register adds a client; false once the hub stopped
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return false
	default:
	}
	h.clients[client] = true
	return true
}

// Subscribe adds a registered client to topic
func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
}

func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.topics[topic]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Publish sends message to every subscriber of topic. Subscribers whose
// buffer is full miss the message.
func (h *Hub) Publish(topic string, message []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for client := range h.topics[topic] {
		select {
		case client.send <- message:
			delivered++
		default:
			h.log.Warn().Str("topic", topic).Str("user_id", client.userID).Msg("dropping message for slow client")
		}
	}
	return delivered
}

// PublishJSON wraps data in a typed envelope and publishes it
func (h *Hub) PublishJSON(topic string, msgType MessageType, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(Message{Type: msgType, Topic: topic, Data: raw})
	if err != nil {
		return err
	}
	h.Publish(topic, msg)
	return nil
}

// BroadcastMessage sends message to every connected client
func (h *Hub) BroadcastMessage(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// deliver queues message for one client. A client's send channel is only
// closed under h.mu after it leaves h.clients, so membership is checked
// under the same lock.
func (h *Hub) deliver(client *Client, message []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribers returns the number of clients following topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			close(h.done)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.topics = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)

				for topic, clients := range h.topics {
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.topics, topic)
					}
				}
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
				}
			}
			h.mu.Unlock()
		}
	}
}

// StageNotifier forwards committed stage events to order topics
type StageNotifier struct {
	hub *Hub
}

func NewStageNotifier(hub *Hub) *StageNotifier {
	return &StageNotifier{hub: hub}
}

// Notify implements lifecycle.Notifier
func (n *StageNotifier) Notify(ctx context.Context, evt lifecycle.Event) error {
	return n.hub.PublishJSON(OrderTopic(evt.OrderID.String()), TypeOrderStage, evt)
}
