package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"identity-registration/internal/user/domain"
)

func newUser(email string) NewUser {
	return NewUser{
		Email:        email,
		PasswordHash: "$2a$10$hash",
		Name:         &domain.Name{First: "Ann", Last: "Lee"},
		Roles:        []string{domain.DefaultRole},
	}
}

func TestMemoryDatastore_CreateAndCommit(t *testing.T) {
	ctx := context.Background()
	ds := NewMemoryDatastore()

	unit, err := ds.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	u, err := unit.CreateUser(ctx, newUser("ann@example.com"))
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatal("CreateUser should assign an ID")
	}
	if !u.Active {
		t.Error("new user should be active")
	}
	if got, _ := ds.GetByEmail(ctx, "ann@example.com"); got != nil {
		t.Fatal("user should not be visible before Commit")
	}
	if err := unit.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, err := ds.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Email != "ann@example.com" {
		t.Fatalf("GetByID = %+v, want committed user", got)
	}
	if got.Name == nil || got.Name.Last != "Lee" {
		t.Errorf("Name = %+v, want Ann Lee", got.Name)
	}
}

func TestMemoryDatastore_RejectsInvalidUser(t *testing.T) {
	ctx := context.Background()
	ds := NewMemoryDatastore()
	testCases := []struct {
		name   string
		mutate func(*NewUser)
	}{
		{"no roles", func(nu *NewUser) { nu.Roles = nil }},
		{"no password hash", func(nu *NewUser) { nu.PasswordHash = "" }},
		{"no email", func(nu *NewUser) { nu.Email = "" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			nu := newUser("ann@example.com")
			tc.mutate(&nu)
			unit, _ := ds.Begin(ctx)
			defer unit.Rollback()
			if _, err := unit.CreateUser(ctx, nu); !errors.Is(err, ErrInvalidUser) {
				t.Fatalf("CreateUser err = %v, want ErrInvalidUser", err)
			}
		})
	}
	if ds.Len() != 0 {
		t.Errorf("Len = %d, want 0", ds.Len())
	}
}

func TestMemoryDatastore_Rollback(t *testing.T) {
	ctx := context.Background()
	ds := NewMemoryDatastore()
	unit, _ := ds.Begin(ctx)
	if _, err := unit.CreateUser(ctx, newUser("ann@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := unit.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if ds.Len() != 0 {
		t.Errorf("Len = %d after rollback, want 0", ds.Len())
	}
	if err := unit.Commit(); err == nil {
		t.Error("Commit after Rollback should fail")
	}
}

func TestMemoryDatastore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	ds := NewMemoryDatastore()
	first, _ := ds.Begin(ctx)
	if _, err := first.CreateUser(ctx, newUser("ann@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := first.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	second, _ := ds.Begin(ctx)
	_, err := second.CreateUser(ctx, newUser("ann@example.com"))
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("CreateUser duplicate err = %v, want ErrDuplicateEmail", err)
	}
}

func TestMemoryDatastore_DuplicateDetectedAtCommit(t *testing.T) {
	ctx := context.Background()
	ds := NewMemoryDatastore()
	a, _ := ds.Begin(ctx)
	b, _ := ds.Begin(ctx)
	if _, err := a.CreateUser(ctx, newUser("ann@example.com")); err != nil {
		t.Fatalf("CreateUser a: %v", err)
	}
	if _, err := b.CreateUser(ctx, newUser("ann@example.com")); err != nil {
		t.Fatalf("CreateUser b: %v", err)
	}
	if err := a.Commit(); err != nil {
		t.Fatalf("Commit a: %v", err)
	}
	if err := b.Commit(); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("Commit b err = %v, want ErrDuplicateEmail", err)
	}
	if ds.Len() != 1 {
		t.Errorf("Len = %d, want 1", ds.Len())
	}
}

func TestMemoryDatastore_Confirm(t *testing.T) {
	ctx := context.Background()
	ds := NewMemoryDatastore()
	unit, _ := ds.Begin(ctx)
	u, _ := unit.CreateUser(ctx, newUser("ann@example.com"))
	_ = unit.Commit()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := ds.Confirm(ctx, u.ID, at); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := ds.Confirm(ctx, u.ID, at.Add(time.Hour)); err != nil {
		t.Fatalf("second Confirm: %v", err)
	}
	got, _ := ds.GetByID(ctx, u.ID)
	if got.ConfirmedAt == nil || !got.ConfirmedAt.Equal(at) {
		t.Errorf("ConfirmedAt = %v, want %v", got.ConfirmedAt, at)
	}
	if err := ds.Confirm(ctx, "missing", at); !errors.Is(err, ErrNotFound) {
		t.Errorf("Confirm unknown id err = %v, want ErrNotFound", err)
	}
}

func TestMemoryDatastore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	ds := NewMemoryDatastore()
	unit, _ := ds.Begin(ctx)
	u, _ := unit.CreateUser(ctx, newUser("ann@example.com"))
	_ = unit.Commit()

	got, _ := ds.GetByID(ctx, u.ID)
	got.Roles[0] = "admin"
	got.Name.First = "Changed"

	again, _ := ds.GetByID(ctx, u.ID)
	if again.Roles[0] != domain.DefaultRole || again.Name.First != "Ann" {
		t.Errorf("stored user was mutated through a returned copy: %+v", again)
	}
}
