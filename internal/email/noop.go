package email

import (
	"context"

	"go.uber.org/zap"
)

// NoopSender writes outgoing notices to the log. cmd/server uses it when
// email.smtp_host is unset so moderation notices remain visible in dev.
type NoopSender struct {
	log *zap.Logger
}

// NewNoopSender returns a NoopSender logging at info level.
func NewNoopSender(logger *zap.Logger) *NoopSender {
	return &NoopSender{log: logger.Named("email")}
}

// Send never fails.
func (n *NoopSender) Send(_ context.Context, to, subject, body string) error {
	n.log.Info("moderation notice (delivery disabled)",
		zap.String("recipient", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
