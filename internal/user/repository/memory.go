package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"identity-registration/internal/user/domain"
)

// MemoryDatastore is an in-memory Datastore used in development mode and tests.
type MemoryDatastore struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
	nowF    func() time.Time
}

// NewMemoryDatastore returns an empty in-memory datastore.
func NewMemoryDatastore() *MemoryDatastore {
	return &MemoryDatastore{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]*domain.User),
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// Begin starts a unit of work. Users it creates become visible on Commit.
func (s *MemoryDatastore) Begin(ctx context.Context) (UserStore, error) {
	return &memoryUnit{ds: s}, nil
}

// GetByID returns a copy of the user for id, or nil if not found.
func (s *MemoryDatastore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.byID[id]), nil
}

// GetByEmail returns a copy of the user with the given email, or nil if not found.
func (s *MemoryDatastore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.byEmail[email]), nil
}

// Confirm sets ConfirmedAt if unset. Returns ErrNotFound for an unknown id.
func (s *MemoryDatastore) Confirm(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if u.ConfirmedAt == nil {
		t := at
		u.ConfirmedAt = &t
		u.UpdatedAt = at
	}
	return nil
}

// Len returns the number of committed users.
func (s *MemoryDatastore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

type memoryUnit struct {
	ds      *MemoryDatastore
	pending []*domain.User
	done    bool
}

func (u *memoryUnit) CreateUser(ctx context.Context, nu NewUser) (*domain.User, error) {
	if u.done {
		return nil, errors.New("repository: unit of work already finished")
	}
	u.ds.mu.RLock()
	_, exists := u.ds.byEmail[nu.Email]
	u.ds.mu.RUnlock()
	if exists {
		return nil, ErrDuplicateEmail
	}
	for _, p := range u.pending {
		if p.Email == nu.Email {
			return nil, ErrDuplicateEmail
		}
	}
	rec, err := newRecord(nu, u.ds.nowF())
	if err != nil {
		return nil, err
	}
	u.pending = append(u.pending, rec)
	return copyUser(rec), nil
}

// Commit re-checks uniqueness under the write lock since another unit may have
// committed the same email after CreateUser.
func (u *memoryUnit) Commit() error {
	if u.done {
		return errors.New("repository: unit of work already finished")
	}
	u.done = true
	u.ds.mu.Lock()
	defer u.ds.mu.Unlock()
	for _, p := range u.pending {
		if _, exists := u.ds.byEmail[p.Email]; exists {
			return ErrDuplicateEmail
		}
	}
	for _, p := range u.pending {
		u.ds.byID[p.ID] = p
		u.ds.byEmail[p.Email] = p
	}
	u.pending = nil
	return nil
}

func (u *memoryUnit) Rollback() error {
	u.done = true
	u.pending = nil
	return nil
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Name != nil {
		n := *u.Name
		c.Name = &n
	}
	if u.ConfirmedAt != nil {
		t := *u.ConfirmedAt
		c.ConfirmedAt = &t
	}
	c.Roles = append([]string(nil), u.Roles...)
	if u.Attributes != nil {
		c.Attributes = make(map[string]string, len(u.Attributes))
		for k, v := range u.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}
