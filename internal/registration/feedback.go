package registration

import (
	"context"
	"sync"
)

// Feedback collects user-facing notices for the current request.
type Feedback interface {
	Flash(message, category string)
}

// Flash is one queued notice.
type Flash struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

// FlashBag is a Feedback that keeps notices in memory until the response is written.
type FlashBag struct {
	mu      sync.Mutex
	flashes []Flash
}

func (b *FlashBag) Flash(message, category string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flashes = append(b.flashes, Flash{Message: message, Category: category})
}

// Flashes returns a copy of the queued notices in the order they were added.
func (b *FlashBag) Flashes() []Flash {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Flash(nil), b.flashes...)
}

type contextKey struct{ name string }

var feedbackKey = contextKey{"feedback"}

// WithFeedback returns a context carrying fb for the duration of a request.
func WithFeedback(ctx context.Context, fb Feedback) context.Context {
	return context.WithValue(ctx, feedbackKey, fb)
}

// FeedbackFrom returns the Feedback carried by ctx, or one that discards notices.
func FeedbackFrom(ctx context.Context) Feedback {
	if fb, ok := ctx.Value(feedbackKey).(Feedback); ok && fb != nil {
		return fb
	}
	return discard{}
}

type discard struct{}

func (discard) Flash(string, string) {}
