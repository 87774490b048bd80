package model

import (
	"time"

	"github.com/google/uuid"
)

// ActionType is the kind of sanction or decision a moderator recorded.
type ActionType string

const (
	ActionWarning             ActionType = "warning"
	ActionTemporarySuspension ActionType = "temporary_suspension"
	ActionPermanentSuspension ActionType = "permanent_suspension"
	ActionContentRemoval      ActionType = "content_removal"
	ActionContentApproval     ActionType = "content_approval"
)

// ActionSuspensionLifted is recorded when a suspension is lifted. It shares
// the content_approval type; give it its own value here if lifted
// suspensions ever need to be told apart from approvals.
const ActionSuspensionLifted = ActionContentApproval

// Fixed reasons recorded by moderator operations.
const (
	ReasonSuspensionLifted = "Suspension lifted"
	ReasonContentRemoved   = "Content removed due to policy violation"
	ReasonContentApproved  = "Content approved after review"
)

// ParseActionType validates an action type string.
func ParseActionType(s string) (ActionType, error) {
	switch t := ActionType(s); t {
	case ActionWarning, ActionTemporarySuspension, ActionPermanentSuspension,
		ActionContentRemoval, ActionContentApproval:
		return t, nil
	}
	return "", &ErrValidation{Msg: "unknown action type " + s}
}

// IsSuspension reports whether t suspends the subject.
func (t ActionType) IsSuspension() bool {
	return t == ActionTemporarySuspension || t == ActionPermanentSuspension
}

// ModerationAction is a recorded sanction or decision against a user.
type ModerationAction struct {
	ID          uuid.UUID  `json:"id"                   db:"id"`
	SubjectID   uuid.UUID  `json:"subject_id"           db:"subject_id"`
	ModeratorID uuid.UUID  `json:"moderator_id"         db:"moderator_id"`
	ActionType  ActionType `json:"action_type"          db:"action_type"`
	Reason      string     `json:"reason"               db:"reason" validate:"required,max=1000"`
	Target      TargetRef  `json:"target"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"           db:"created_at"`
}

// Active reports whether the action is still in force at now.
func (a *ModerationAction) Active(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

// Expired is the negation of Active.
func (a *ModerationAction) Expired(now time.Time) bool { return !a.Active(now) }

// IsSuspension reports whether the action suspended its subject.
func (a *ModerationAction) IsSuspension() bool { return a.ActionType.IsSuspension() }

// ActionFilter narrows action listings.
type ActionFilter struct {
	SubjectID *uuid.UUID
	Types     []ActionType
	Limit     int
	Offset    int
}

// SuspendRequest is the payload for suspending a user.
type SuspendRequest struct {
	Duration string `json:"duration" binding:"required"`
	Reason   string `json:"reason"   binding:"required"`
}

// WarnRequest is the payload for warning a user.
type WarnRequest struct {
	Reason string `json:"reason" binding:"required"`
}
