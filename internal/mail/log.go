package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer renders messages and writes them to the log instead of delivering them.
// Used when APP_ENV=development and no mail API is configured.
type LogMailer struct {
	Logger    *zap.Logger
	Templates *Templates
}

func (m LogMailer) Send(_ context.Context, subject, to, template string, data any) error {
	msg, err := m.Templates.Render(subject, to, template, data)
	if err != nil {
		return err
	}
	if m.Logger != nil {
		m.Logger.Info("mail not delivered (development)",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.String("template", template),
			zap.String("text", msg.Text),
		)
	}
	return nil
}
