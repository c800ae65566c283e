package domain

import (
	"errors"
	"time"
)

// DefaultRole is assigned to users registered without any role. Buyers sign up
// during checkout with an explicit role, so self-registration defaults to sellers.
const DefaultRole = "sellers"

// User is the core user entity.
type User struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"` // always lowercase
	PasswordHash string            `json:"-"`
	Name         *Name             `json:"name,omitempty"` // nil when registered without a name
	Roles        []string          `json:"roles"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Active       bool              `json:"active"`
	ConfirmedAt  *time.Time        `json:"confirmed_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Confirmed reports whether the user has followed a confirmation link.
func (u *User) Confirmed() bool {
	return u != nil && u.ConfirmedAt != nil
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if len(u.Roles) == 0 {
		return errors.New("at least one role is required")
	}
	return nil
}
