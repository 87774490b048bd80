package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/auditlog"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/webhooks"
)

// DurationPermanent is the suspension code with no expiry.
const DurationPermanent = "permanent"

var suspensionDurations = map[string]time.Duration{
	"1_day":   24 * time.Hour,
	"3_days":  3 * 24 * time.Hour,
	"1_week":  7 * 24 * time.Hour,
	"1_month": 30 * 24 * time.Hour,
}

// ParseDuration maps a suspension code to its offset. permanent reports
// ok=false; unknown codes fall back to one day.
func ParseDuration(code string) (d time.Duration, ok bool) {
	if code == DurationPermanent {
		return 0, false
	}
	if d, found := suspensionDurations[code]; found {
		return d, true
	}
	return suspensionDurations["1_day"], true
}

// ActionService records sanctions against users and applies them to the
// user record.
type ActionService struct {
	actions actionRepo
	users   userStore
	now     func() time.Time
	notifier
}

// NewActionService creates an ActionService.
func NewActionService(actions actionRepo, users userStore, logger *zap.Logger) *ActionService {
	return &ActionService{
		actions:  actions,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
		notifier: notifier{logger: logger},
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *ActionService) SetClock(now func() time.Time) { s.now = now }

// Suspend suspends userID for the period named by code.
func (s *ActionService) Suspend(ctx context.Context, userID uuid.UUID, code, reason string, moderatorID uuid.UUID) (*model.ModerationAction, error) {
	a := &model.ModerationAction{
		SubjectID:   userID,
		ModeratorID: moderatorID,
		ActionType:  model.ActionPermanentSuspension,
		Reason:      reason,
		Target:      model.TargetRef{Kind: model.TargetUser, ID: userID},
	}
	if d, ok := ParseDuration(code); ok {
		until := s.now().Add(d)
		a.ActionType = model.ActionTemporarySuspension
		a.ExpiresAt = &until
	}
	if err := model.Validate(a); err != nil {
		return nil, err
	}
	if _, err := requireModerator(ctx, s.users, moderatorID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.users.SetSuspension(ctx, userID, true, a.ExpiresAt); err != nil {
		return nil, fmt.Errorf("suspend user: %w", err)
	}
	if err := s.record(ctx, a, auditlog.EventActionRecorded); err != nil {
		return nil, err
	}

	payload := map[string]string{"user_id": userID.String(), "action_id": a.ID.String(), "reason": reason}
	if a.ExpiresAt != nil {
		payload["suspended_until"] = a.ExpiresAt.Format(time.RFC3339)
	}
	s.emit(ctx, webhooks.EventUserSuspended, payload)
	return a, nil
}

// Unsuspend lifts any suspension on userID. The lift is recorded with
// model.ActionSuspensionLifted.
func (s *ActionService) Unsuspend(ctx context.Context, userID, moderatorID uuid.UUID) (*model.ModerationAction, error) {
	if _, err := requireModerator(ctx, s.users, moderatorID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.SetSuspension(ctx, userID, false, nil); err != nil {
		return nil, fmt.Errorf("unsuspend user: %w", err)
	}

	a := &model.ModerationAction{
		SubjectID:   userID,
		ModeratorID: moderatorID,
		ActionType:  model.ActionSuspensionLifted,
		Reason:      model.ReasonSuspensionLifted,
		Target:      model.TargetRef{Kind: model.TargetUser, ID: userID},
	}
	if err := s.record(ctx, a, auditlog.EventSuspensionLifted); err != nil {
		return nil, err
	}
	s.emit(ctx, webhooks.EventUserUnsuspended, map[string]string{
		"user_id":   userID.String(),
		"action_id": a.ID.String(),
	})
	return a, nil
}

// Warn increments userID's warning count and records a warning.
func (s *ActionService) Warn(ctx context.Context, userID uuid.UUID, reason string, moderatorID uuid.UUID) (*model.ModerationAction, error) {
	a := &model.ModerationAction{
		SubjectID:   userID,
		ModeratorID: moderatorID,
		ActionType:  model.ActionWarning,
		Reason:      reason,
		Target:      model.TargetRef{Kind: model.TargetUser, ID: userID},
	}
	if err := model.Validate(a); err != nil {
		return nil, err
	}
	if _, err := requireModerator(ctx, s.users, moderatorID); err != nil {
		return nil, err
	}

	count, err := s.users.IncrementWarnings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.record(ctx, a, auditlog.EventActionRecorded); err != nil {
		return nil, err
	}
	s.emit(ctx, webhooks.EventUserWarned, map[string]string{
		"user_id":       userID.String(),
		"action_id":     a.ID.String(),
		"reason":        reason,
		"warning_count": fmt.Sprint(count),
	})
	return a, nil
}

// RecordContentAction records a content_removal or content_approval decision
// against subjectID. It does not touch the content itself.
func (s *ActionService) RecordContentAction(ctx context.Context, subjectID, moderatorID uuid.UUID, typ model.ActionType, reason string, target model.TargetRef) (*model.ModerationAction, error) {
	if typ != model.ActionContentRemoval && typ != model.ActionContentApproval {
		return nil, &model.ErrValidation{Msg: "not a content action: " + string(typ)}
	}
	a := &model.ModerationAction{
		SubjectID:   subjectID,
		ModeratorID: moderatorID,
		ActionType:  typ,
		Reason:      reason,
		Target:      target,
	}
	if err := model.Validate(a); err != nil {
		return nil, err
	}
	if err := s.record(ctx, a, auditlog.EventActionRecorded); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns an action by ID.
func (s *ActionService) Get(ctx context.Context, id uuid.UUID) (*model.ModerationAction, error) {
	return s.actions.GetByID(ctx, id)
}

// ListBySubject returns the actions taken against a user, newest first.
func (s *ActionService) ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*model.ModerationAction, error) {
	return s.actions.List(ctx, model.ActionFilter{SubjectID: &subjectID, Limit: limit, Offset: offset})
}

// List returns actions matching f, newest first.
func (s *ActionService) List(ctx context.Context, f model.ActionFilter) ([]*model.ModerationAction, error) {
	return s.actions.List(ctx, f)
}

// ListRecent returns the newest actions across all users.
func (s *ActionService) ListRecent(ctx context.Context, limit int) ([]*model.ModerationAction, error) {
	return s.actions.List(ctx, model.ActionFilter{Limit: limit})
}

func (s *ActionService) record(ctx context.Context, a *model.ModerationAction, event auditlog.Event) error {
	if err := s.actions.Create(ctx, a); err != nil {
		return fmt.Errorf("record %s: %w", a.ActionType, err)
	}
	moderationActionsTotal.WithLabelValues(string(a.ActionType)).Inc()
	s.logger.Info("moderation action recorded",
		zap.String("action_id", a.ID.String()),
		zap.String("type", string(a.ActionType)),
		zap.String("subject_id", a.SubjectID.String()),
		zap.String("moderator_id", a.ModeratorID.String()),
	)
	s.audit(ctx, subjectOf("action", a.ID), event, a.ModeratorID.String(), a)
	return nil
}
