package auth

import (
	"context"
	"log/slog"
)

// Mailer delivers account emails.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer writes the reset link to the log instead of sending mail.
type LogMailer struct {
	Logger *slog.Logger
}

// SendPasswordReset logs the link.
func (m LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("password reset requested",
		slog.String("email", email),
		slog.String("link", link))
	return nil
}
