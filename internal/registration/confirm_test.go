package registration

import (
	"context"
	"errors"
	"testing"

	"identity-registration/internal/events"
	"identity-registration/internal/security"
	"identity-registration/internal/user/domain"
)

func newConfirmingRegistrar(t *testing.T) (*Registrar, *security.ConfirmationIssuer, *recordingNotifier) {
	t.Helper()
	issuer, err := security.NewTestConfirmationIssuer("https://shop.example.com/confirm")
	if err != nil {
		t.Fatalf("NewTestConfirmationIssuer: %v", err)
	}
	notifier := &recordingNotifier{}
	reg, err := New(Deps{
		Store:    newRecordingStore(),
		Hasher:   plainHasher{},
		Policy:   policy{confirm: true},
		Tokens:   issuer,
		Verifier: issuer,
		Notifier: notifier,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return reg, issuer, notifier
}

func tokenOf(t *testing.T, e events.Event) string {
	t.Helper()
	p := e.Payload.(RegisteredPayload)
	if p.ConfirmToken == nil {
		t.Fatal("event carries no confirmation token")
	}
	return *p.ConfirmToken
}

func TestConfirm(t *testing.T) {
	reg, _, notifier := newConfirmingRegistrar(t)
	ctx := context.Background()
	u, err := reg.Register(ctx, validInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Confirmed() {
		t.Fatal("new user should not be confirmed")
	}
	token := tokenOf(t, notifier.Published()[0])

	confirmed, err := reg.Confirm(ctx, token)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.ID != u.ID || !confirmed.Confirmed() {
		t.Errorf("Confirm = %+v, want confirmed user %s", confirmed, u.ID)
	}
	again, err := reg.Confirm(ctx, token)
	if err != nil {
		t.Fatalf("second Confirm: %v", err)
	}
	if !again.ConfirmedAt.Equal(*confirmed.ConfirmedAt) {
		t.Errorf("ConfirmedAt changed on second Confirm: %v -> %v", confirmed.ConfirmedAt, again.ConfirmedAt)
	}
}

func TestConfirm_Rejected(t *testing.T) {
	reg, issuer, _ := newConfirmingRegistrar(t)
	ctx := context.Background()
	u, err := reg.Register(ctx, validInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	staleEmail, _ := issuer.GenerateConfirmationLink(&domain.User{ID: u.ID, Email: "old@example.com"})
	unknownUser, _ := issuer.GenerateConfirmationLink(&domain.User{ID: "missing", Email: u.Email})

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"email changed since issue", staleEmail.Token},
		{"unknown user", unknownUser.Token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Confirm(ctx, tt.token); !errors.Is(err, ErrInvalidConfirmation) {
				t.Fatalf("Confirm err = %v, want ErrInvalidConfirmation", err)
			}
		})
	}
}

func TestConfirm_Disabled(t *testing.T) {
	h := newHarness(t, policy{})
	if _, err := h.reg.Confirm(context.Background(), "anything"); !errors.Is(err, ErrConfirmationDisabled) {
		t.Fatalf("err = %v, want ErrConfirmationDisabled", err)
	}
}
