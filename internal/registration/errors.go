package registration

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for a missing or malformed field. Nothing was persisted.
	ErrInvalidInput = errors.New("invalid registration input")
	// ErrEmailAlreadyRegistered is returned when the store rejects the email as a duplicate.
	// It also matches repository.ErrDuplicateEmail.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrPersistence is returned when the user could not be created or committed.
	ErrPersistence = errors.New("registration could not be persisted")
	// ErrInvalidConfirmation is returned by Confirm for an unknown, tampered, expired or stale token.
	ErrInvalidConfirmation = errors.New("invalid or expired confirmation token")
	// ErrConfirmationDisabled is returned by Confirm when no token verifier is configured.
	ErrConfirmationDisabled = errors.New("account confirmation is not enabled")
)

// Post-commit step names reported in PostCommitError.
const (
	StepConfirmation = "confirmation"
	StepNotify       = "notify"
	StepWelcomeEmail = "welcome_email"
)

// PostCommitError reports a side effect that failed after the user was committed.
// The user exists and is returned alongside this error; later steps did not run.
type PostCommitError struct {
	Step string
	Err  error
}

func (e *PostCommitError) Error() string {
	return fmt.Sprintf("registration: %s failed after user was created: %v", e.Step, e.Err)
}

func (e *PostCommitError) Unwrap() error { return e.Err }
