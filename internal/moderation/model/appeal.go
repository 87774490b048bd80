package model

import (
	"time"

	"github.com/google/uuid"
)

// AppealStatus is the lifecycle state of an appeal.
type AppealStatus string

const (
	AppealPending     AppealStatus = "pending"
	AppealUnderReview AppealStatus = "under_review"
	AppealApproved    AppealStatus = "approved"
	AppealDenied      AppealStatus = "denied"
)

// Open reports whether the status still accepts a decision.
func (s AppealStatus) Open() bool {
	return s == AppealPending || s == AppealUnderReview
}

// ParseAppealStatus validates a status value.
func ParseAppealStatus(s string) (AppealStatus, error) {
	switch st := AppealStatus(s); st {
	case AppealPending, AppealUnderReview, AppealApproved, AppealDenied:
		return st, nil
	}
	return "", &ErrValidation{Msg: "unknown appeal status " + s}
}

// ParseAppealDecision accepts approved/denied and the imperative forms
// approve/deny used by the admin API.
func ParseAppealDecision(s string) (AppealStatus, error) {
	switch s {
	case "approve", string(AppealApproved):
		return AppealApproved, nil
	case "deny", string(AppealDenied):
		return AppealDenied, nil
	}
	return "", &ErrValidation{Msg: "decision must be approved or denied"}
}

// Appeal is a user's request to reverse a moderation action taken against them.
type Appeal struct {
	ID                 uuid.UUID    `json:"id"                    db:"id"`
	AppellantID        uuid.UUID    `json:"appellant_id"          db:"appellant_id"`
	ModerationActionID uuid.UUID    `json:"moderation_action_id"  db:"moderation_action_id"`
	Reason             string       `json:"reason"                db:"reason" validate:"required,max=1000"`
	Status             AppealStatus `json:"status"                db:"status"`
	ReviewedBy         *uuid.UUID   `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt         *time.Time   `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt          time.Time    `json:"created_at"            db:"created_at"`
}

// AppealFilter narrows appeal listings.
type AppealFilter struct {
	Statuses    []AppealStatus
	AppellantID *uuid.UUID
	Limit       int
	Offset      int
}

// CreateAppealRequest is the payload for submitting an appeal.
type CreateAppealRequest struct {
	ModerationActionID uuid.UUID `json:"moderation_action_id" binding:"required"`
	Reason             string    `json:"reason"               binding:"required"`
}

// ResolveAppealRequest is the payload for deciding an appeal.
type ResolveAppealRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// Overview is the moderation dashboard summary.
type Overview struct {
	PendingReports []*Report           `json:"pending_reports"`
	RecentActions  []*ModerationAction `json:"recent_actions"`
	PendingAppeals []*Appeal           `json:"pending_appeals"`
}

// AppealResolution is the outcome of a moderator deciding an appeal. Action
// is the reversing action, when one was recorded.
type AppealResolution struct {
	Appeal  *Appeal           `json:"appeal"`
	Action  *ModerationAction `json:"action,omitempty"`
	Message string            `json:"message"`
}
