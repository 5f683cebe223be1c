// Package kafka publishes flag summaries as events for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"quickfi/internal/notify"
	"quickfi/internal/platform/kafka/producer"
)

// EventType is carried in the event_type header.
const EventType = "vendor.flags.summary"

// Producer is satisfied by *producer.Producer and producer.NoopProducer.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

type Publisher struct {
	producer Producer
	topic    string
}

func New(p Producer, topic string) *Publisher {
	return &Publisher{producer: p, topic: topic}
}

func (p *Publisher) Notify(ctx context.Context, s notify.Summary) error {
	value, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal flag summary: %w", err)
	}
	return p.producer.Produce(ctx, &producer.Message{
		Topic: p.topic,
		Key:   []byte(s.VendorID),
		Value: value,
		Headers: map[string]string{
			"event_type": EventType,
		},
	})
}
