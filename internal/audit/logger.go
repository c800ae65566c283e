// Package audit records an audit trail of registration events.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-registration/internal/audit/domain"
	auditrepo "identity-registration/internal/audit/repository"
	"identity-registration/internal/events"
)

// ResourceUser is the resource recorded for user events.
const ResourceUser = "user"

type contextKey struct{ name string }

var clientIPKey = contextKey{"client_ip"}

// WithClientIP returns a context carrying the caller's IP for audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the IP set by WithClientIP, or "unknown".
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

// Logger implements events.Notifier by writing one audit entry per event.
// Recording is best-effort: failures are logged and Publish returns nil.
type Logger struct {
	repo   auditrepo.Repository
	logger *zap.Logger
	nowF   func() time.Time
}

// NewLogger returns a Logger that persists to repo.
func NewLogger(repo auditrepo.Repository, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{repo: repo, logger: logger, nowF: func() time.Time { return time.Now().UTC() }}
}

type entryMetadata struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publish records e with its name as the action and its key as the user id.
// The payload is not stored; it may carry confirmation tokens.
func (l *Logger) Publish(ctx context.Context, e events.Event) error {
	if l.repo == nil {
		return nil
	}
	meta, _ := json.Marshal(entryMetadata{EventID: e.ID, OccurredAt: e.OccurredAt})
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    e.Key,
		Action:    e.Name,
		Resource:  ResourceUser,
		IP:        ClientIP(ctx),
		Metadata:  string(meta),
		CreatedAt: l.nowF(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.logger.Warn("audit: failed to record event",
			zap.String("action", e.Name), zap.String("user_id", e.Key), zap.Error(err))
	}
	return nil
}
