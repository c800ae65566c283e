// Package registration creates user accounts: it normalizes signup input, persists
// the user in one unit of work, then runs the post-commit side effects
// (confirmation link, user_registered event, welcome email).
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"identity-registration/internal/events"
	"identity-registration/internal/security"
	"identity-registration/internal/user/domain"
	"identity-registration/internal/user/repository"
)

// EventUserRegistered is the name of the event published for every new user.
const EventUserRegistered = "user_registered"

// ConfirmFlashMessage is flashed (category "success") when a confirmation link is sent.
const ConfirmFlashMessage = "Thank you. Confirmation instructions have been sent to %s."

// Input is the raw signup data for one registration.
type Input struct {
	Email    string
	Password string
	// Name is a free-text display name. Empty means no name was given.
	Name  string
	Roles []string
	// Attributes are extra profile fields passed through to the store.
	Attributes map[string]string
}

// Policy is the read-only security configuration consulted on every call.
type Policy interface {
	RequiresConfirmation() bool
	SendsRegisterEmail() bool
	RegisterEmailSubject() string
}

// PasswordHasher turns a plaintext password into a storable hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// TokenIssuer issues the confirmation link for a newly created user.
type TokenIssuer interface {
	GenerateConfirmationLink(u *domain.User) (security.Confirmation, error)
}

// TokenVerifier validates a confirmation token and returns what it was issued for.
type TokenVerifier interface {
	Verify(token string) (userID, emailHash string, err error)
}

// Mailer sends a templated email.
type Mailer interface {
	Send(ctx context.Context, subject, to, template string, data any) error
}

// RegisteredPayload is the payload of the user_registered event.
// ConfirmToken is nil when no confirmation was issued. It is only available
// in process: serialized payloads report whether a confirmation was sent.
type RegisteredPayload struct {
	User         *domain.User
	ConfirmToken *string
}

// MarshalJSON encodes the payload without the confirmation token.
func (p RegisteredPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		User             *domain.User `json:"user"`
		ConfirmationSent bool         `json:"confirmation_sent"`
	}{User: p.User, ConfirmationSent: p.ConfirmToken != nil})
}

// WelcomeData is the template context of the welcome email.
type WelcomeData struct {
	User             *domain.User
	ConfirmationLink string
}

// Deps are the collaborators of a Registrar.
type Deps struct {
	Store  repository.Datastore
	Hasher PasswordHasher
	Policy Policy
	// Tokens is required when Policy.RequiresConfirmation is true.
	Tokens TokenIssuer
	// Verifier enables Confirm. Optional.
	Verifier TokenVerifier
	// Notifier defaults to events.Nop.
	Notifier events.Notifier
	// Mailer is required when Policy.SendsRegisterEmail is true.
	Mailer Mailer
	// DefaultRole defaults to domain.DefaultRole.
	DefaultRole string
}

// Registrar runs the registration sequence. It is safe for concurrent use; each
// call opens its own unit of work.
type Registrar struct {
	store       repository.Datastore
	hasher      PasswordHasher
	policy      Policy
	tokens      TokenIssuer
	verifier    TokenVerifier
	notifier    events.Notifier
	mailer      Mailer
	defaultRole string
	nowF        func() time.Time

	transforms []transform
	postCommit []postCommitHandler
}

// New returns a Registrar. It fails when a collaborator the policy needs is missing.
func New(d Deps) (*Registrar, error) {
	if d.Store == nil {
		return nil, errors.New("registration: store is required")
	}
	if d.Hasher == nil {
		return nil, errors.New("registration: hasher is required")
	}
	if d.Policy == nil {
		return nil, errors.New("registration: policy is required")
	}
	if d.Policy.RequiresConfirmation() && d.Tokens == nil {
		return nil, errors.New("registration: token issuer is required when confirmation is enabled")
	}
	if d.Policy.SendsRegisterEmail() && d.Mailer == nil {
		return nil, errors.New("registration: mailer is required when the register email is enabled")
	}
	if d.Notifier == nil {
		d.Notifier = events.Nop{}
	}
	if d.DefaultRole == "" {
		d.DefaultRole = domain.DefaultRole
	}
	r := &Registrar{
		store:       d.Store,
		hasher:      d.Hasher,
		policy:      d.Policy,
		tokens:      d.Tokens,
		verifier:    d.Verifier,
		notifier:    d.Notifier,
		mailer:      d.Mailer,
		defaultRole: d.DefaultRole,
		nowF:        func() time.Time { return time.Now().UTC() },
	}
	r.transforms = []transform{
		validateEmail,
		r.hashPassword,
		decomposeName,
		r.defaultRoles,
		normalizeEmail,
	}
	r.postCommit = []postCommitHandler{
		{step: StepConfirmation, enabled: r.policy.RequiresConfirmation, run: r.issueConfirmation},
		{step: StepNotify, enabled: always, run: r.publishRegistered},
		{step: StepWelcomeEmail, enabled: r.policy.SendsRegisterEmail, run: r.sendWelcome},
	}
	return r, nil
}

// Register creates the user described by in.
//
// Errors before the user is committed (ErrInvalidInput, ErrEmailAlreadyRegistered,
// ErrPersistence) leave nothing behind and return a nil user. A failing
// post-commit step returns the created user together with a *PostCommitError;
// the user is not rolled back.
func (r *Registrar) Register(ctx context.Context, in Input) (*domain.User, error) {
	d, err := r.prepare(in)
	if err != nil {
		return nil, err
	}
	u, err := r.persist(ctx, d)
	if err != nil {
		return nil, err
	}
	state := &postCommitState{user: u}
	for _, h := range r.postCommit {
		if !h.enabled() {
			continue
		}
		if err := h.run(ctx, state); err != nil {
			return u, &PostCommitError{Step: h.step, Err: err}
		}
	}
	return u, nil
}

// persist creates and commits the user in one unit of work, rolling back on any failure.
func (r *Registrar) persist(ctx context.Context, d draft) (*domain.User, error) {
	unit, err := r.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", ErrPersistence, err)
	}
	u, err := unit.CreateUser(ctx, d.newUser())
	if err != nil {
		_ = unit.Rollback()
		return nil, storeError("create user", err)
	}
	if err := unit.Commit(); err != nil {
		_ = unit.Rollback()
		return nil, storeError("commit", err)
	}
	return u, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return fmt.Errorf("%w: %w", ErrEmailAlreadyRegistered, err)
	}
	if errors.Is(err, repository.ErrInvalidUser) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
