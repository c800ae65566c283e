package registration

import (
	"context"
	"errors"
	"fmt"

	"identity-registration/internal/security"
	"identity-registration/internal/user/domain"
	"identity-registration/internal/user/repository"
)

// Confirm marks the user a confirmation token was issued for as confirmed and
// returns it. Confirming twice is not an error. A token issued before the user's
// email changed is rejected.
func (r *Registrar) Confirm(ctx context.Context, token string) (*domain.User, error) {
	if r.verifier == nil {
		return nil, ErrConfirmationDisabled
	}
	userID, emailHash, err := r.verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfirmation, err)
	}
	u, err := r.store.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if u == nil || !security.EmailHashEqual(u.Email, emailHash) {
		return nil, ErrInvalidConfirmation
	}
	if u.Confirmed() {
		return u, nil
	}
	if err := r.store.Confirm(ctx, u.ID, r.nowF()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidConfirmation
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	confirmed, err := r.store.GetByID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return confirmed, nil
}
