package websockets

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
)

type MessageType string

const (
	TypeSubscribe    MessageType = "subscribe"
	TypeUnsubscribe  MessageType = "unsubscribe"
	TypeSubscribed   MessageType = "subscribed"
	TypeUnsubscribed MessageType = "unsubscribed"
	TypeOrderStage   MessageType = "order.stage"
	TypeMessageNew   MessageType = "message.new"
	TypeConversation MessageType = "conversation.update"
	TypeError        MessageType = "error"
	TypePing         MessageType = "ping"
	TypePong         MessageType = "pong"
)

type Message struct {
	Type  MessageType     `json:"type"`
	Topic string          `json:"topic,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID string

	roles permissions.RoleSet
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, roles permissions.RoleSet) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		roles:  roles,
	}
}

// handle processes one inbound frame
func (c *Client) handle(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(Message{Type: TypeError, Data: errorData("malformed message")})
		return
	}

	switch msg.Type {
	case TypeSubscribe:
		if !CanSubscribe(c.roles, msg.Topic) {
			c.reply(Message{Type: TypeError, Topic: msg.Topic, Data: errorData("subscription not allowed")})
			return
		}
		c.hub.Subscribe(c, msg.Topic)
		c.reply(Message{Type: TypeSubscribed, Topic: msg.Topic})

	case TypeUnsubscribe:
		c.hub.Unsubscribe(c, msg.Topic)
		c.reply(Message{Type: TypeUnsubscribed, Topic: msg.Topic})

	case TypePing:
		c.reply(Message{Type: TypePong})

	default:
		c.reply(Message{Type: TypeError, Data: errorData("unsupported message type")})
	}
}

func (c *Client) reply(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.deliver(c, b)
}

func errorData(reason string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"error": reason})
	return b
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Str("user_id", c.userID).Msg("websocket closed")
			}
			break
		}
		c.handle(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message; clients parse each frame as JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func ServeWs(hub *Hub, conn *websocket.Conn, userID string, roles permissions.RoleSet) {
	client := NewClient(hub, conn, userID, roles)

	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
