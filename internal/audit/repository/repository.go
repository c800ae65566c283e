package repository

import (
	"context"
	"sync"

	"identity-registration/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByUser returns the newest entries for userID first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error)
}

// MemoryRepository keeps audit logs in memory. Used in development mode and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *a
	r.entries = append(r.entries, &c)
	return nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditLog
	for i := len(r.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if e := r.entries[i]; e.UserID == userID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}
