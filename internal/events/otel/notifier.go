// Package otel publishes domain events as OpenTelemetry log records.
package otel

import (
	"context"
	"encoding/json"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"identity-registration/internal/events"
)

// instrumentationName is the logger scope used for event records.
const instrumentationName = "identity-registration/events"

type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewNotifier returns a Notifier that emits events through provider.
// A nil provider yields a no-op notifier.
func NewNotifier(provider *sdklog.LoggerProvider) events.Notifier {
	if provider == nil {
		return events.Nop{}
	}
	return &notifier{logger: provider.Logger(instrumentationName)}
}

// NewNotifierWithLogger returns a Notifier that emits to the given record sink.
func NewNotifierWithLogger(logger recordEmitter) events.Notifier {
	return &notifier{logger: logger}
}

type notifier struct {
	logger recordEmitter
}

// Publish converts e to a log record: the JSON payload is the body and the
// event name, id and key are attributes.
func (n *notifier) Publish(ctx context.Context, e events.Event) error {
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	rec := otellog.Record{}
	rec.SetTimestamp(e.OccurredAt)
	rec.SetObservedTimestamp(e.OccurredAt)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetEventName(e.Name)
	rec.SetBody(otellog.BytesValue(body))
	rec.AddAttributes(
		otellog.String("event.name", e.Name),
		otellog.String("event.id", e.ID),
	)
	if e.Key != "" {
		rec.AddAttributes(otellog.String("event.key", e.Key))
	}
	n.logger.Emit(ctx, rec)
	return nil
}
