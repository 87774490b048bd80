package model

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	ReportPending     ReportStatus = "pending"
	ReportUnderReview ReportStatus = "under_review"
	ReportResolved    ReportStatus = "resolved"
	ReportDismissed   ReportStatus = "dismissed"
)

// Open reports whether the status still accepts a resolution.
func (s ReportStatus) Open() bool {
	return s == ReportPending || s == ReportUnderReview
}

// ParseReportStatus validates a status filter or outcome value.
func ParseReportStatus(s string) (ReportStatus, error) {
	switch st := ReportStatus(s); st {
	case ReportPending, ReportUnderReview, ReportResolved, ReportDismissed:
		return st, nil
	}
	return "", &ErrValidation{Msg: "unknown report status " + s}
}

// AutoReportReason is the reason recorded on reports filed by the decision engine.
const AutoReportReason = "Automatic spam detection"

// Report is a complaint about a post, comment or user.
type Report struct {
	ID          uuid.UUID    `json:"id"                    db:"id"`
	SubmitterID uuid.UUID    `json:"submitter_id"          db:"submitter_id"`
	Target      TargetRef    `json:"target"`
	Reason      string       `json:"reason"                db:"reason"      validate:"required,max=255"`
	Description string       `json:"description"           db:"description" validate:"required,max=1000"`
	Status      ReportStatus `json:"status"                db:"status"`
	ResolvedBy  *uuid.UUID   `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt   time.Time    `json:"created_at"            db:"created_at"`
}

// ReportFilter narrows report listings. Zero fields are ignored.
type ReportFilter struct {
	Statuses []ReportStatus
	Target   *TargetRef
	Limit    int
	Offset   int
}

// CreateReportRequest is the payload for submitting a report.
type CreateReportRequest struct {
	TargetType  string    `json:"target_type" binding:"required"`
	TargetID    uuid.UUID `json:"target_id"   binding:"required"`
	Reason      string    `json:"reason"      binding:"required"`
	Description string    `json:"description" binding:"required"`
}

// ReportAction is a moderator verb applied to a report.
type ReportAction string

const (
	ReportActionDismiss     ReportAction = "dismiss"
	ReportActionApprove     ReportAction = "approve"
	ReportActionWarnUser    ReportAction = "warn_user"
	ReportActionSuspendUser ReportAction = "suspend_user"
)

// ContentAction is the optional follow-up to approving a report.
type ContentAction string

const (
	ContentActionNone    ContentAction = ""
	ContentActionRemove  ContentAction = "remove"
	ContentActionApprove ContentAction = "approve"
)

// ResolveReportRequest is the payload for a moderator acting on a report.
type ResolveReportRequest struct {
	Action        ReportAction  `json:"action"         binding:"required"`
	ContentAction ContentAction `json:"content_action"`
	Duration      string        `json:"duration"`
	Reason        string        `json:"reason"`
}

// Resolution is the outcome of a moderator acting on a report.
type Resolution struct {
	Report  *Report           `json:"report"`
	Action  *ModerationAction `json:"action,omitempty"`
	Message string            `json:"message"`
}
