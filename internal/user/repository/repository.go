package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"identity-registration/internal/user/domain"
)

var (
	// ErrDuplicateEmail is returned by CreateUser or Commit when the email is already registered.
	ErrDuplicateEmail = errors.New("repository: email already exists")
	// ErrNotFound is returned by Confirm when no user has the given id.
	ErrNotFound = errors.New("repository: not found")
	// ErrInvalidUser is returned by CreateUser when the user fails domain validation.
	ErrInvalidUser = errors.New("repository: invalid user")
)

// NewUser holds the fields a store needs to create a user. It carries only the
// password hash; there is no field for a plaintext password.
type NewUser struct {
	Email        string
	PasswordHash string
	Name         *domain.Name
	Roles        []string
	Attributes   map[string]string
}

// Datastore defines persistence for users. Creation goes through a unit of
// work returned by Begin so that it is only durable after Commit.
type Datastore interface {
	Begin(ctx context.Context) (UserStore, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Confirm sets confirmed_at for the user if it is not already set.
	Confirm(ctx context.Context, id string, at time.Time) error
}

// UserStore is a single unit of work. It must not be shared between calls.
type UserStore interface {
	CreateUser(ctx context.Context, u NewUser) (*domain.User, error)
	Commit() error
	// Rollback discards uncommitted work. Safe to call after Commit.
	Rollback() error
}

// newRecord builds and validates the entity a store persists for u. ID and
// timestamps are assigned here.
func newRecord(u NewUser, now time.Time) (*domain.User, error) {
	var name *domain.Name
	if u.Name != nil {
		n := *u.Name
		name = &n
	}
	rec := &domain.User{
		ID:           uuid.New().String(),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         name,
		Roles:        slices.Clone(u.Roles),
		Attributes:   maps.Clone(u.Attributes),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	return rec, nil
}
