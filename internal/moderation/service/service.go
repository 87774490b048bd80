// Package service implements the moderation core: automatic spam decisions
// and the report, moderation action and appeal lifecycles.
//
// Services depend on small unexported repository interfaces; the pgx and
// in-memory repositories in package repository satisfy them.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/auditlog"
	"github.com/andmorefine/clay-community-site/internal/content"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/users"
)

type reportRepo interface {
	Create(ctx context.Context, rpt *model.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Report, error)
	List(ctx context.Context, f model.ReportFilter) ([]*model.Report, error)
	StartReview(ctx context.Context, id uuid.UUID) (*model.Report, error)
	Resolve(ctx context.Context, id uuid.UUID, status model.ReportStatus, resolvedBy uuid.UUID, at time.Time) (*model.Report, error)
}

type actionRepo interface {
	Create(ctx context.Context, a *model.ModerationAction) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ModerationAction, error)
	List(ctx context.Context, f model.ActionFilter) ([]*model.ModerationAction, error)
}

type appealRepo interface {
	Create(ctx context.Context, a *model.Appeal) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appeal, error)
	List(ctx context.Context, f model.AppealFilter) ([]*model.Appeal, error)
	StartReview(ctx context.Context, id uuid.UUID) (*model.Appeal, error)
	Resolve(ctx context.Context, id uuid.UUID, status model.AppealStatus, reviewedBy uuid.UUID, at time.Time) (*model.Appeal, error)
}

// userStore is the slice of the user repository moderation needs.
// *users.UserRepository and *users.MemoryRepository satisfy it.
type userStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	SetSuspension(ctx context.Context, id uuid.UUID, suspended bool, until *time.Time) error
	IncrementWarnings(ctx context.Context, id uuid.UUID) (int, error)
}

// contentStore is the slice of the content repository moderation needs.
// *content.Repository and *content.MemoryRepository satisfy it.
type contentStore interface {
	GetPost(ctx context.Context, id uuid.UUID) (*content.Post, error)
	GetComment(ctx context.Context, id uuid.UUID) (*content.Comment, error)
	SetPostPublished(ctx context.Context, id uuid.UUID, published bool) error
}

// EventDispatcher publishes moderation events to external subscribers.
// *webhooks.Service satisfies it.
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventType string, payload map[string]string)
}

// Dispatchers fans one event out to several dispatchers in order.
type Dispatchers []EventDispatcher

func (ds Dispatchers) Dispatch(ctx context.Context, eventType string, payload map[string]string) {
	for _, d := range ds {
		d.Dispatch(ctx, eventType, payload)
	}
}

// notifier carries the optional side-effect sinks shared by the services.
// Failures in either sink are logged and never fail the operation.
type notifier struct {
	ledger auditlog.Log    // nil = no audit entries
	events EventDispatcher // nil = no webhooks
	logger *zap.Logger
}

// SetAuditLog configures the audit ledger.
func (n *notifier) SetAuditLog(l auditlog.Log) { n.ledger = l }

// SetEventDispatcher configures webhook dispatch.
func (n *notifier) SetEventDispatcher(d EventDispatcher) { n.events = d }

func (n *notifier) audit(ctx context.Context, subject string, event auditlog.Event, actor string, payload any) {
	if n.ledger == nil {
		return
	}
	if _, err := n.ledger.Append(ctx, subject, event, actor, payload); err != nil {
		n.logger.Warn("audit append failed",
			zap.String("subject", subject),
			zap.String("event", string(event)),
			zap.Error(err),
		)
	}
}

func (n *notifier) emit(ctx context.Context, eventType string, payload map[string]string) {
	if n.events == nil {
		return
	}
	n.events.Dispatch(ctx, eventType, payload)
}

// requireModerator returns ErrForbidden unless id names a moderator or admin.
func requireModerator(ctx context.Context, store userStore, id uuid.UUID) (*users.User, error) {
	u, err := store.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if !u.IsModerator() {
		return nil, model.ErrForbidden
	}
	return u, nil
}

func subjectOf(kind string, id uuid.UUID) string { return kind + ":" + id.String() }
