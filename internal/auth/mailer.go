package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Mailer delivers sign-in links. Delivery transport is owned by the host
// deployment (transactional email provider); this service only hands the link
// over. Send errors are logged, never surfaced to the requesting client.
type Mailer interface {
	SendLoginLink(ctx context.Context, to, link string, ttl time.Duration) error
}

// LogMailer writes links to the log instead of sending mail. For local
// development, where the link is copied out of the log output.
type LogMailer struct {
	Logger *zap.SugaredLogger
}

func (m LogMailer) SendLoginLink(_ context.Context, to, link string, ttl time.Duration) error {
	m.Logger.Infow("magic link (dev delivery)",
		"to", to,
		"link", link,
		"valid_for", ttl.String(),
	)
	return nil
}
