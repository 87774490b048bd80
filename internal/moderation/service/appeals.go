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

// AppealService manages appeals against moderation actions.
type AppealService struct {
	appeals appealRepo
	users   userStore
	targets *TargetResolver
	actions *ActionService
	notifier
}

// NewAppealService creates an AppealService.
func NewAppealService(appeals appealRepo, users userStore, targets *TargetResolver, actions *ActionService, logger *zap.Logger) *AppealService {
	return &AppealService{
		appeals:  appeals,
		users:    users,
		targets:  targets,
		actions:  actions,
		notifier: notifier{logger: logger},
	}
}

// Create files an appeal. Users may only appeal actions taken against them.
func (s *AppealService) Create(ctx context.Context, appellantID, actionID uuid.UUID, reason string) (*model.Appeal, error) {
	action, err := s.actions.Get(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.SubjectID != appellantID {
		return nil, model.ErrForbidden
	}

	a := &model.Appeal{
		AppellantID:        appellantID,
		ModerationActionID: actionID,
		Reason:             strings.TrimSpace(reason),
	}
	if err := model.Validate(a); err != nil {
		return nil, err
	}
	if err := s.appeals.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("appeal submitted",
		zap.String("appeal_id", a.ID.String()),
		zap.String("action_id", actionID.String()),
	)
	return a, nil
}

// Get returns an appeal visible to viewerID: its appellant or a moderator.
func (s *AppealService) Get(ctx context.Context, id, viewerID uuid.UUID) (*model.Appeal, error) {
	a, err := s.appeals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.AppellantID == viewerID {
		return a, nil
	}
	if _, err := requireModerator(ctx, s.users, viewerID); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByAppellant returns a user's own appeals, newest first.
func (s *AppealService) ListByAppellant(ctx context.Context, appellantID uuid.UUID, limit, offset int) ([]*model.Appeal, error) {
	return s.appeals.List(ctx, model.AppealFilter{AppellantID: &appellantID, Limit: limit, Offset: offset})
}

// List returns appeals matching f, newest first.
func (s *AppealService) List(ctx context.Context, f model.AppealFilter) ([]*model.Appeal, error) {
	return s.appeals.List(ctx, f)
}

// ListUnresolved returns pending and under-review appeals, newest first.
func (s *AppealService) ListUnresolved(ctx context.Context, limit int) ([]*model.Appeal, error) {
	return s.appeals.List(ctx, model.AppealFilter{
		Statuses: []model.AppealStatus{model.AppealPending, model.AppealUnderReview},
		Limit:    limit,
	})
}

// StartReview moves a pending appeal to under_review.
func (s *AppealService) StartReview(ctx context.Context, id, moderatorID uuid.UUID) (*model.Appeal, error) {
	if _, err := requireModerator(ctx, s.users, moderatorID); err != nil {
		return nil, err
	}
	return s.appeals.StartReview(ctx, id)
}

// Resolve decides an open appeal. Approving it reverses the appealed action:
// suspensions are lifted and removed posts are republished. Warnings and
// approvals have nothing to reverse. Everything a reversal needs is loaded
// before the appeal is closed, so a missing action or target leaves it open.
func (s *AppealService) Resolve(ctx context.Context, id, moderatorID uuid.UUID, decision model.AppealStatus) (*model.AppealResolution, error) {
	if decision != model.AppealApproved && decision != model.AppealDenied {
		return nil, &model.ErrValidation{Msg: "decision must be approved or denied"}
	}
	if _, err := requireModerator(ctx, s.users, moderatorID); err != nil {
		return nil, err
	}

	var rev *reversal
	if decision == model.AppealApproved {
		open, err := s.appeals.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if rev, err = s.prepareReversal(ctx, open.ModerationActionID); err != nil {
			return nil, err
		}
	}

	a, err := s.appeals.Resolve(ctx, id, decision, moderatorID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	appealResolutionsTotal.WithLabelValues(string(decision)).Inc()
	s.audit(ctx, subjectOf("appeal", id), auditlog.EventAppealResolved, moderatorID.String(), a)
	s.emit(ctx, webhooks.EventAppealResolved, map[string]string{
		"appeal_id":    id.String(),
		"user_id":      a.AppellantID.String(),
		"decision":     string(decision),
		"moderator_id": moderatorID.String(),
	})

	res := &model.AppealResolution{Appeal: a, Message: "Appeal denied"}
	if decision == model.AppealDenied {
		return res, nil
	}

	res.Message = "Appeal approved and action reversed"
	if res.Action, err = s.reverse(ctx, rev, moderatorID); err != nil {
		return nil, err
	}
	return res, nil
}

// reversal is an appealed action with whatever undoing it touches.
type reversal struct {
	action *model.ModerationAction
	target model.Target
}

func (s *AppealService) prepareReversal(ctx context.Context, actionID uuid.UUID) (*reversal, error) {
	action, err := s.actions.Get(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("load appealed action: %w", err)
	}
	rev := &reversal{action: action}

	switch action.ActionType {
	case model.ActionTemporarySuspension, model.ActionPermanentSuspension:
		if _, err := s.users.GetByID(ctx, action.SubjectID); err != nil {
			return nil, fmt.Errorf("load suspended user: %w", err)
		}
	case model.ActionContentRemoval:
		if rev.target, err = s.targets.Resolve(ctx, action.Target); err != nil {
			return nil, fmt.Errorf("load removed content: %w", err)
		}
	}
	return rev, nil
}

func (s *AppealService) reverse(ctx context.Context, rev *reversal, moderatorID uuid.UUID) (*model.ModerationAction, error) {
	switch rev.action.ActionType {
	case model.ActionTemporarySuspension, model.ActionPermanentSuspension:
		return s.actions.Unsuspend(ctx, rev.action.SubjectID, moderatorID)
	case model.ActionContentRemoval:
		if _, err := s.targets.SetPublished(ctx, rev.target, true); err != nil {
			return nil, fmt.Errorf("republish %s: %w", rev.action.Target, err)
		}
	}
	return nil, nil
}
