package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/auditlog"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/webhooks"
)

// ReportService manages the report lifecycle and the moderator operations
// built on resolving a report.
type ReportService struct {
	reports reportRepo
	users   userStore
	targets *TargetResolver
	actions *ActionService
	notifier
}

// NewReportService creates a ReportService.
func NewReportService(reports reportRepo, users userStore, targets *TargetResolver, actions *ActionService, logger *zap.Logger) *ReportService {
	return &ReportService{
		reports:  reports,
		users:    users,
		targets:  targets,
		actions:  actions,
		notifier: notifier{logger: logger},
	}
}

// Create files a report against an existing target.
func (s *ReportService) Create(ctx context.Context, submitterID uuid.UUID, target model.TargetRef, reason, description string) (*model.Report, error) {
	rpt := &model.Report{
		SubmitterID: submitterID,
		Target:      target,
		Reason:      strings.TrimSpace(reason),
		Description: strings.TrimSpace(description),
	}
	if err := model.Validate(rpt); err != nil {
		return nil, err
	}
	if _, err := s.targets.Resolve(ctx, target); err != nil {
		return nil, err
	}
	if err := s.reports.Create(ctx, rpt); err != nil {
		return nil, err
	}
	s.logger.Info("report submitted",
		zap.String("report_id", rpt.ID.String()),
		zap.String("target", rpt.Target.String()),
	)
	return rpt, nil
}

// Get returns a report by ID.
func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	return s.reports.GetByID(ctx, id)
}

// List returns reports matching f, newest first.
func (s *ReportService) List(ctx context.Context, f model.ReportFilter) ([]*model.Report, error) {
	return s.reports.List(ctx, f)
}

// ListUnresolved returns pending and under-review reports, newest first.
func (s *ReportService) ListUnresolved(ctx context.Context, limit int) ([]*model.Report, error) {
	return s.reports.List(ctx, model.ReportFilter{
		Statuses: []model.ReportStatus{model.ReportPending, model.ReportUnderReview},
		Limit:    limit,
	})
}

// StartReview moves a pending report to under_review.
func (s *ReportService) StartReview(ctx context.Context, id, moderatorID uuid.UUID) (*model.Report, error) {
	if _, err := requireModerator(ctx, s.users, moderatorID); err != nil {
		return nil, err
	}
	return s.reports.StartReview(ctx, id)
}

// Resolve closes an open report as resolved or dismissed. Only one caller
// can close a report; later callers get model.ErrConflict.
func (s *ReportService) Resolve(ctx context.Context, id, moderatorID uuid.UUID, outcome model.ReportStatus) (*model.Report, error) {
	if outcome != model.ReportResolved && outcome != model.ReportDismissed {
		return nil, &model.ErrValidation{Msg: "outcome must be resolved or dismissed"}
	}
	if _, err := requireModerator(ctx, s.users, moderatorID); err != nil {
		return nil, err
	}

	rpt, err := s.reports.Resolve(ctx, id, outcome, moderatorID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	reportResolutionsTotal.WithLabelValues(string(outcome)).Inc()
	s.logger.Info("report resolved",
		zap.String("report_id", id.String()),
		zap.String("status", string(outcome)),
		zap.String("moderator_id", moderatorID.String()),
	)
	s.audit(ctx, subjectOf("report", id), auditlog.EventReportResolved, moderatorID.String(), rpt)
	s.emit(ctx, webhooks.EventReportResolved, map[string]string{
		"report_id":    id.String(),
		"status":       string(outcome),
		"moderator_id": moderatorID.String(),
	})
	return rpt, nil
}

// Act applies a moderator verb to a report.
func (s *ReportService) Act(ctx context.Context, id, moderatorID uuid.UUID, req *model.ResolveReportRequest) (*model.Resolution, error) {
	switch req.Action {
	case model.ReportActionDismiss:
		return s.Dismiss(ctx, id, moderatorID)
	case model.ReportActionApprove:
		return s.Approve(ctx, id, moderatorID, req.ContentAction)
	case model.ReportActionWarnUser:
		return s.WarnAuthor(ctx, id, moderatorID, req.Reason)
	case model.ReportActionSuspendUser:
		return s.SuspendAuthor(ctx, id, moderatorID, req.Duration, req.Reason)
	}
	return nil, fmt.Errorf("%w: %q", model.ErrInvalidAction, req.Action)
}

// Dismiss closes the report with no further action.
func (s *ReportService) Dismiss(ctx context.Context, id, moderatorID uuid.UUID) (*model.Resolution, error) {
	rpt, err := s.Resolve(ctx, id, moderatorID, model.ReportDismissed)
	if err != nil {
		return nil, err
	}
	return &model.Resolution{Report: rpt, Message: "Report dismissed"}, nil
}

// Approve resolves the report and optionally removes or approves its target.
func (s *ReportService) Approve(ctx context.Context, id, moderatorID uuid.UUID, ca model.ContentAction) (*model.Resolution, error) {
	switch ca {
	case model.ContentActionNone, model.ContentActionRemove, model.ContentActionApprove:
	default:
		return nil, &model.ErrValidation{Msg: "unknown content action " + string(ca)}
	}

	var target model.Target
	if ca != model.ContentActionNone {
		var err error
		if target, err = s.loadTarget(ctx, id); err != nil {
			return nil, err
		}
	}

	rpt, err := s.Resolve(ctx, id, moderatorID, model.ReportResolved)
	if err != nil {
		return nil, err
	}
	res := &model.Resolution{Report: rpt, Message: "Report resolved"}

	switch ca {
	case model.ContentActionRemove:
		if _, err := s.targets.SetPublished(ctx, target, false); err != nil {
			return nil, fmt.Errorf("unpublish %s: %w", target.TargetRef(), err)
		}
		res.Action, err = s.actions.RecordContentAction(ctx, target.AuthorID(), moderatorID,
			model.ActionContentRemoval, model.ReasonContentRemoved, target.TargetRef())
		res.Message = "Report resolved and content removed"
	case model.ContentActionApprove:
		res.Action, err = s.actions.RecordContentAction(ctx, target.AuthorID(), moderatorID,
			model.ActionContentApproval, model.ReasonContentApproved, target.TargetRef())
		res.Message = "Report resolved and content approved"
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// WarnAuthor resolves the report and warns the author of its target.
func (s *ReportService) WarnAuthor(ctx context.Context, id, moderatorID uuid.UUID, reason string) (*model.Resolution, error) {
	if err := validateReason(reason); err != nil {
		return nil, err
	}
	target, err := s.loadTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	rpt, err := s.Resolve(ctx, id, moderatorID, model.ReportResolved)
	if err != nil {
		return nil, err
	}
	a, err := s.actions.Warn(ctx, target.AuthorID(), reason, moderatorID)
	if err != nil {
		return nil, err
	}
	return &model.Resolution{Report: rpt, Action: a, Message: "User warned and report resolved"}, nil
}

// SuspendAuthor resolves the report and suspends the author of its target.
func (s *ReportService) SuspendAuthor(ctx context.Context, id, moderatorID uuid.UUID, duration, reason string) (*model.Resolution, error) {
	if err := validateReason(reason); err != nil {
		return nil, err
	}
	target, err := s.loadTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	rpt, err := s.Resolve(ctx, id, moderatorID, model.ReportResolved)
	if err != nil {
		return nil, err
	}
	a, err := s.actions.Suspend(ctx, target.AuthorID(), duration, reason, moderatorID)
	if err != nil {
		return nil, err
	}
	return &model.Resolution{Report: rpt, Action: a, Message: "User suspended and report resolved"}, nil
}

// loadTarget fetches the report and the entity it points at. A closed report
// returns model.ErrConflict before any target lookup.
func (s *ReportService) loadTarget(ctx context.Context, id uuid.UUID) (model.Target, error) {
	rpt, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rpt.Status.Open() {
		return nil, model.ErrConflict
	}
	return s.targets.Resolve(ctx, rpt.Target)
}

func validateReason(reason string) error {
	return model.Validate(&model.ModerationAction{Reason: reason})
}
