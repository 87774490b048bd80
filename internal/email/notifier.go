package email

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/users"
	"github.com/andmorefine/clay-community-site/internal/webhooks"
)

type userLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Notifier emails account holders about moderation decisions that affect
// them. It is a moderation event dispatcher; events without a user_id, or
// that concern nobody personally, are ignored.
type Notifier struct {
	sender   EmailSender
	users    userLookup
	siteName string
	inflight sync.WaitGroup
	logger   *zap.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(sender EmailSender, users userLookup, logger *zap.Logger) *Notifier {
	return &Notifier{sender: sender, users: users, siteName: "Clay Community", logger: logger}
}

// Dispatch sends the message for eventType in the background. Delivery
// outlives ctx cancellation.
func (n *Notifier) Dispatch(ctx context.Context, eventType string, payload map[string]string) {
	subject, body, ok := n.render(eventType, payload)
	if !ok {
		return
	}
	userID, err := uuid.Parse(payload["user_id"])
	if err != nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		u, err := n.users.GetByID(ctx, userID)
		if err != nil {
			n.logger.Warn("email: recipient lookup failed",
				zap.String("user_id", userID.String()),
				zap.String("event", eventType),
				zap.Error(err),
			)
			return
		}
		if err := n.sender.Send(ctx, u.Email, subject, "Hi "+u.Username+",\n\n"+body); err != nil {
			n.logger.Warn("email: send failed",
				zap.String("user_id", userID.String()),
				zap.String("event", eventType),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until in-flight messages are sent.
func (n *Notifier) Wait() { n.inflight.Wait() }

func (n *Notifier) render(eventType string, p map[string]string) (subject, body string, ok bool) {
	var b strings.Builder
	switch eventType {
	case webhooks.EventUserWarned:
		subject = "You have received a warning"
		fmt.Fprintf(&b, "A moderator has warned your account.\n\nReason: %s\n", p["reason"])
		if c := p["warning_count"]; c != "" {
			fmt.Fprintf(&b, "Warnings on record: %s\n", c)
		}
	case webhooks.EventUserSuspended:
		subject = "Your account has been suspended"
		fmt.Fprintf(&b, "Your account has been suspended.\n\nReason: %s\n", p["reason"])
		if until := p["suspended_until"]; until != "" {
			fmt.Fprintf(&b, "Suspended until: %s\n", until)
		} else {
			b.WriteString("This suspension is permanent.\n")
		}
		b.WriteString("\nYou can appeal this decision from your account page.\n")
	case webhooks.EventUserUnsuspended:
		subject = "Your suspension has been lifted"
		b.WriteString("Your account suspension has been lifted. Welcome back.\n")
	case webhooks.EventAppealResolved:
		subject = "Your appeal has been decided"
		if p["decision"] == "approved" {
			b.WriteString("Your appeal was approved and the moderation action has been reversed.\n")
		} else {
			b.WriteString("Your appeal was reviewed and denied. The original decision stands.\n")
		}
	default:
		return "", "", false
	}
	fmt.Fprintf(&b, "\n%s moderation team\n", n.siteName)
	return subject, b.String(), true
}
