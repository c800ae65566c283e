package registration

import (
	"context"
	"errors"
	"sync"

	"identity-registration/internal/events"
	"identity-registration/internal/security"
	"identity-registration/internal/user/domain"
	"identity-registration/internal/user/repository"
)

type policy struct {
	confirm bool
	email   bool
	subject string
}

func (p policy) RequiresConfirmation() bool   { return p.confirm }
func (p policy) SendsRegisterEmail() bool     { return p.email }
func (p policy) RegisterEmailSubject() string { return p.subject }

// recordingStore wraps the in-memory datastore and records what reaches CreateUser.
type recordingStore struct {
	*repository.MemoryDatastore

	mu        sync.Mutex
	created   []repository.NewUser
	commits   int
	rollbacks int
	beginErr  error
	createErr error
	commitErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryDatastore: repository.NewMemoryDatastore()}
}

func (s *recordingStore) Begin(ctx context.Context) (repository.UserStore, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	inner, err := s.MemoryDatastore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &recordingUnit{store: s, inner: inner}, nil
}

func (s *recordingStore) createdUsers() []repository.NewUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.NewUser(nil), s.created...)
}

func (s *recordingStore) rollbackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbacks
}

type recordingUnit struct {
	store *recordingStore
	inner repository.UserStore
}

func (u *recordingUnit) CreateUser(ctx context.Context, nu repository.NewUser) (*domain.User, error) {
	u.store.mu.Lock()
	u.store.created = append(u.store.created, nu)
	err := u.store.createErr
	u.store.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return u.inner.CreateUser(ctx, nu)
}

func (u *recordingUnit) Commit() error {
	u.store.mu.Lock()
	u.store.commits++
	err := u.store.commitErr
	u.store.mu.Unlock()
	if err != nil {
		return err
	}
	return u.inner.Commit()
}

func (u *recordingUnit) Rollback() error {
	u.store.mu.Lock()
	u.store.rollbacks++
	u.store.mu.Unlock()
	return u.inner.Rollback()
}

// plainHasher produces a recognisable non-plaintext hash without bcrypt's cost.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", security.ErrEmptyPassword
	}
	return security.HashEmail(password), nil
}

// brokenHasher fails the way bcrypt does when it cannot read randomness.
type brokenHasher struct{}

func (brokenHasher) Hash(string) (string, error) { return "", errBoom }

// emptyHasher returns no hash and no error.
type emptyHasher struct{}

func (emptyHasher) Hash(string) (string, error) { return "", nil }

type fakeIssuer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeIssuer) GenerateConfirmationLink(u *domain.User) (security.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return security.Confirmation{}, f.err
	}
	return security.Confirmation{Link: "https://shop.example.com/confirm/tok-" + u.ID, Token: "tok-" + u.ID}, nil
}

func (f *fakeIssuer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, e events.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) Published() []events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]events.Event(nil), n.events...)
}

type sentMail struct {
	subject, to, template string
	data                  any
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, subject, to, template string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{subject, to, template, data})
	return m.err
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

var errBoom = errors.New("boom")
