// Package email delivers plain-text notification mail over SMTP.
package email

import "context"

// EmailSender delivers one message. Implementations must be safe for
// concurrent use.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
