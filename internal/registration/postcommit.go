package registration

import (
	"context"
	"fmt"

	"identity-registration/internal/events"
	"identity-registration/internal/mail"
	"identity-registration/internal/security"
	"identity-registration/internal/user/domain"
)

// postCommitState carries outputs of earlier post-commit steps to later ones.
type postCommitState struct {
	user         *domain.User
	confirmation security.Confirmation
}

type postCommitHandler struct {
	step    string
	enabled func() bool
	run     func(ctx context.Context, s *postCommitState) error
}

func always() bool { return true }

func (r *Registrar) issueConfirmation(ctx context.Context, s *postCommitState) error {
	c, err := r.tokens.GenerateConfirmationLink(s.user)
	if err != nil {
		return err
	}
	s.confirmation = c
	FeedbackFrom(ctx).Flash(fmt.Sprintf(ConfirmFlashMessage, s.user.Email), "success")
	return nil
}

func (r *Registrar) publishRegistered(ctx context.Context, s *postCommitState) error {
	payload := RegisteredPayload{User: s.user}
	if s.confirmation.Token != "" {
		token := s.confirmation.Token
		payload.ConfirmToken = &token
	}
	return r.notifier.Publish(ctx, events.New(EventUserRegistered, s.user.ID, payload))
}

func (r *Registrar) sendWelcome(ctx context.Context, s *postCommitState) error {
	data := WelcomeData{User: s.user, ConfirmationLink: s.confirmation.Link}
	return r.mailer.Send(ctx, r.policy.RegisterEmailSubject(), s.user.Email, mail.TemplateWelcome, data)
}
