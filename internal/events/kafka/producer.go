// Package kafka publishes domain events to a Kafka topic with segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"identity-registration/internal/events"
)

// writeTimeout bounds a single publish.
const writeTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer implements events.Notifier on a Kafka topic. Events are JSON-encoded,
// keyed by Event.Key, and carry the event name in the "event" header.
type Producer struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewProducer creates a producer that writes to topic on the given brokers.
// Call Close when shutting down.
func NewProducer(brokers []string, topic string, logger *zap.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: w, topic: topic, logger: logger}, nil
}

// Publish writes e synchronously and returns the write error, if any.
func (p *Producer) Publish(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:     []byte(e.Key),
		Value:   payload,
		Time:    e.OccurredAt,
		Headers: []kafka.Header{{Key: "event", Value: []byte(e.Name)}},
	})
	if err != nil {
		p.logger.Warn("kafka publish failed",
			zap.String("topic", p.topic),
			zap.String("event", e.Name),
			zap.String("event_id", e.ID),
			zap.Error(err))
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call on a nil producer.
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
