package domain

import "time"

// AuditLog represents an audit event.
type AuditLog struct {
	ID       string
	UserID   string
	Action   string
	Resource string
	IP       string
	// Metadata is a JSON object; empty means none.
	Metadata  string
	CreatedAt time.Time
}
