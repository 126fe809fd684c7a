package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kitchenconnect/kitchen-service/internal/lifecycle"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes committed stage transitions to Kafka
type Producer struct {
	w        MessageWriter
	producer string
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

func NewProducer(w MessageWriter, producer string) *Producer {
	return &Producer{w: w, producer: producer}
}

// Notify implements lifecycle.Notifier
func (p *Producer) Notify(ctx context.Context, evt lifecycle.Event) error {
	msg, err := p.message(evt)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish stage event: %w", err)
	}
	return nil
}

func (p *Producer) message(evt lifecycle.Event) (kafka.Message, error) {
	payload, err := json.Marshal(OrderStagePayload{
		OrderID:  evt.OrderID.String(),
		From:     string(evt.From),
		To:       string(evt.To),
		Label:    evt.Label,
		ActorID:  evt.ActorID.String(),
		Terminal: evt.Terminal,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode payload: %w", err)
	}

	env, err := json.Marshal(Envelope{
		EventID:       evt.ID.String(),
		EventType:     EventOrderStageChanged,
		EventVersion:  1,
		OccurredAt:    evt.OccurredAt,
		Producer:      p.producer,
		CorrelationID: evt.OrderID.String(),
		Payload:       payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope: %w", err)
	}

	return kafka.Message{
		Key:   PartitionKey(evt.OrderID.String()),
		Value: env,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderStageChanged)},
		},
	}, nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}
