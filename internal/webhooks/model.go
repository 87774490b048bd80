package webhooks

import (
	"time"

	"github.com/google/uuid"
)

// Moderation events delivered to subscribers.
const (
	EventReportFlagged   = "report.flagged"
	EventReportResolved  = "report.resolved"
	EventUserWarned      = "user.warned"
	EventUserSuspended   = "user.suspended"
	EventUserUnsuspended = "user.unsuspended"
	EventAppealResolved  = "appeal.resolved"
)

var knownEvents = map[string]bool{
	EventReportFlagged:   true,
	EventReportResolved:  true,
	EventUserWarned:      true,
	EventUserSuspended:   true,
	EventUserUnsuspended: true,
	EventAppealResolved:  true,
}

// Subscription is a moderator's registration for moderation events.
type Subscription struct {
	ID        uuid.UUID `json:"id"         db:"id"`
	UserID    uuid.UUID `json:"user_id"    db:"user_id"`
	URL       string    `json:"url"        db:"url"`
	Events    []string  `json:"events"     db:"events"`
	Secret    string    `json:"-"          db:"secret"`
	Active    bool      `json:"active"     db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Wants reports whether the subscription listens for eventType.
func (s *Subscription) Wants(eventType string) bool {
	if !s.Active {
		return false
	}
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Event is the JSON body POSTed to subscribers.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Delivery records one delivery attempt.
type Delivery struct {
	ID             uuid.UUID `json:"id"              db:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id" db:"subscription_id"`
	EventType      string    `json:"event_type"      db:"event_type"`
	StatusCode     int       `json:"status_code"     db:"status_code"`
	Attempt        int       `json:"attempt"         db:"attempt"`
	Success        bool      `json:"success"         db:"success"`
	ErrorMessage   string    `json:"error_message"   db:"error_message"`
	DeliveredAt    time.Time `json:"delivered_at"    db:"delivered_at"`
}

// CreateSubscriptionRequest is the payload for creating a subscription.
type CreateSubscriptionRequest struct {
	URL    string   `json:"url"    binding:"required,url"`
	Events []string `json:"events" binding:"required,min=1"`
}
