package events

import (
	"encoding/json"
	"time"
)

const (
	EventOrderStageChanged = "OrderStageChanged"

	TopicOrderStage = "kitchen.order.stage"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderStagePayload struct {
	OrderID  string `json:"order_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Label    string `json:"label"`
	ActorID  string `json:"actor_id"`
	Terminal bool   `json:"terminal"`
}

// PartitionKey keeps every event of one order on one partition, in order
func PartitionKey(orderID string) []byte { return []byte(orderID) }
