// Package events defines the notification boundary for domain events such as
// user_registered, plus fan-out and no-op notifiers. Transports live in subpackages.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is a named domain event. Payload must be JSON-serializable.
type Event struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Key        string    `json:"key,omitempty"` // partitioning key, e.g. user id
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// New returns an event with a fresh id and the current UTC time.
func New(name, key string, payload any) Event {
	return Event{
		ID:         uuid.New().String(),
		Name:       name,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Notifier publishes events to subscribers it does not expose. Delivery
// guarantees belong to the implementation.
type Notifier interface {
	Publish(ctx context.Context, e Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e Event) error

func (f NotifierFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Multi publishes to every notifier in order and joins their errors. A failing
// notifier does not prevent the others from receiving the event.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Log writes each event to a zap logger. Used in development when no broker is configured.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Publish(_ context.Context, e Event) error {
	if l.Logger == nil {
		return nil
	}
	l.Logger.Info("event published",
		zap.String("event", e.Name),
		zap.String("event_id", e.ID),
		zap.String("key", e.Key),
		zap.Any("payload", e.Payload),
	)
	return nil
}
