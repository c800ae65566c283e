package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// handleTimeout bounds the handling of one message.
const handleTimeout = 10 * time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Handler processes the value of one consumed message.
type Handler func(ctx context.Context, value []byte) error

// Consumer reads events from a topic as part of a consumer group.
type Consumer struct {
	reader messageReader
	logger *zap.Logger
}

// NewConsumer creates a group consumer for topic. Offsets are committed every second.
func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if topic == "" || groupID == "" {
		return nil, errors.New("kafka: topic and group id are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	return &Consumer{reader: r, logger: logger}, nil
}

// Run reads messages until ctx is cancelled and passes each value to handle.
// Read and handler failures are logged and the loop continues.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("kafka read failed", zap.Error(err))
			continue
		}
		handleCtx, cancel := context.WithTimeout(ctx, handleTimeout)
		if err := handle(handleCtx, msg.Value); err != nil {
			c.logger.Warn("event handling failed",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
		cancel()
	}
}

// Close closes the reader. Safe to call on a nil consumer.
func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
