package registration

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"identity-registration/internal/security"
	"identity-registration/internal/user/domain"
	"identity-registration/internal/user/repository"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// draft is the working record threaded through the transforms. Each transform
// receives a copy and returns a new value; slices and maps are never shared.
type draft struct {
	email        string
	password     string
	passwordHash string
	rawName      string
	name         *domain.Name
	roles        []string
	attributes   map[string]string
}

type transform func(draft) (draft, error)

func newDraft(in Input) draft {
	return draft{
		email:      in.Email,
		password:   in.Password,
		rawName:    in.Name,
		roles:      slices.Clone(in.Roles),
		attributes: maps.Clone(in.Attributes),
	}
}

// prepare runs the transforms in order and stops at the first failure.
func (r *Registrar) prepare(in Input) (draft, error) {
	d := newDraft(in)
	for _, t := range r.transforms {
		var err error
		if d, err = t(d); err != nil {
			return draft{}, err
		}
	}
	return d, nil
}

func (d draft) newUser() repository.NewUser {
	return repository.NewUser{
		Email:        d.email,
		PasswordHash: d.passwordHash,
		Name:         d.name,
		Roles:        slices.Clone(d.roles),
		Attributes:   maps.Clone(d.attributes),
	}
}

func validateEmail(d draft) (draft, error) {
	if d.email == "" {
		return d, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if !emailPattern.MatchString(d.email) {
		return d, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	return d, nil
}

// hashPassword replaces the plaintext password with its hash. Only empty and
// over-long passwords are input errors; other hasher failures pass through.
func (r *Registrar) hashPassword(d draft) (draft, error) {
	hash, err := r.hasher.Hash(d.password)
	switch {
	case errors.Is(err, security.ErrEmptyPassword), errors.Is(err, security.ErrPasswordTooLong):
		return d, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case err != nil:
		return d, fmt.Errorf("hash password: %w", err)
	}
	d.password = ""
	d.passwordHash = hash
	return d, nil
}

// decomposeName splits a present name into first and last. An absent name stays absent.
func decomposeName(d draft) (draft, error) {
	if d.rawName == "" {
		return d, nil
	}
	n := domain.DecomposeName(d.rawName, "")
	d.name = &n
	d.rawName = ""
	return d, nil
}

// defaultRoles removes blank and repeated roles and falls back to the default role.
func (r *Registrar) defaultRoles(d draft) (draft, error) {
	roles := make([]string, 0, len(d.roles))
	for _, role := range d.roles {
		role = strings.TrimSpace(role)
		if role != "" && !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		roles = []string{r.defaultRole}
	}
	d.roles = roles
	return d, nil
}

func normalizeEmail(d draft) (draft, error) {
	d.email = strings.ToLower(d.email)
	return d, nil
}
