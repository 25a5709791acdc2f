package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/bounty-radar/internal/models"
)

// MessageWriter is the subset of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits NotifiedEvents to Kafka.
type Publisher struct {
	writer MessageWriter
	now    func() time.Time
}

// NewKafkaPublisher builds a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *Publisher {
	return NewPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	})
}

// NewPublisher wraps an existing writer.
func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{writer: w, now: time.Now}
}

// Publish sends a NotifiedEvent for b keyed by the bounty ID.
func (p *Publisher) Publish(ctx context.Context, b models.Bounty, trigger string) (models.NotifiedEvent, error) {
	evt := models.NotifiedEvent{
		EventID:    uuid.NewString(),
		Bounty:     b,
		Trigger:    trigger,
		NotifiedAt: p.now().UTC(),
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return evt, fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(b.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.EventID)},
			{Key: "trigger", Value: []byte(trigger)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return evt, fmt.Errorf("write event: %w", err)
	}
	return evt, nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Decode parses a NotifiedEvent from a Kafka message value.
func Decode(value []byte) (models.NotifiedEvent, error) {
	var evt models.NotifiedEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return evt, fmt.Errorf("decode event: %w", err)
	}
	return evt, nil
}
