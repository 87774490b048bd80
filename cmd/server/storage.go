package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/andmorefine/clay-community-site/internal/activity"
	"github.com/andmorefine/clay-community-site/internal/auditlog"
	"github.com/andmorefine/clay-community-site/internal/content"
	"github.com/andmorefine/clay-community-site/internal/health"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/moderation/repository"
	"github.com/andmorefine/clay-community-site/internal/users"
	"github.com/andmorefine/clay-community-site/internal/webhooks"
)

type userStore interface {
	Create(ctx context.Context, u *users.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	GetByUsername(ctx context.Context, username string) (*users.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, bio string) error
	List(ctx context.Context, f users.ListFilter) ([]*users.User, error)
	SetSuspension(ctx context.Context, id uuid.UUID, suspended bool, until *time.Time) error
	IncrementWarnings(ctx context.Context, id uuid.UUID) (int, error)
}

type contentStore interface {
	CreatePost(ctx context.Context, p *content.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*content.Post, error)
	SetPostPublished(ctx context.Context, id uuid.UUID, published bool) error
	CreateComment(ctx context.Context, c *content.Comment) error
	GetComment(ctx context.Context, id uuid.UUID) (*content.Comment, error)
	CountPostsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	CountCommentsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

type reportStore interface {
	Create(ctx context.Context, rpt *model.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Report, error)
	List(ctx context.Context, f model.ReportFilter) ([]*model.Report, error)
	StartReview(ctx context.Context, id uuid.UUID) (*model.Report, error)
	Resolve(ctx context.Context, id uuid.UUID, status model.ReportStatus, resolvedBy uuid.UUID, at time.Time) (*model.Report, error)
}

type actionStore interface {
	Create(ctx context.Context, a *model.ModerationAction) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ModerationAction, error)
	List(ctx context.Context, f model.ActionFilter) ([]*model.ModerationAction, error)
}

type appealStore interface {
	Create(ctx context.Context, a *model.Appeal) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appeal, error)
	List(ctx context.Context, f model.AppealFilter) ([]*model.Appeal, error)
	StartReview(ctx context.Context, id uuid.UUID) (*model.Appeal, error)
	Resolve(ctx context.Context, id uuid.UUID, status model.AppealStatus, reviewedBy uuid.UUID, at time.Time) (*model.Appeal, error)
}

type webhookStore interface {
	Create(ctx context.Context, sub *webhooks.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*webhooks.Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*webhooks.Subscription, error)
	ListByEvent(ctx context.Context, eventType string) ([]*webhooks.Subscription, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordDelivery(ctx context.Context, d *webhooks.Delivery) error
}

// stores bundles the repositories one backend provides.
type stores struct {
	users    userStore
	content  contentStore
	reports  reportStore
	actions  actionStore
	appeals  appealStore
	webhooks webhookStore
	ledger   auditlog.Log
	probes   map[string]health.Probe
	close    func()
}

func postgresStores(ctx context.Context, dbURL string, logger *zap.Logger) (*stores, error) {
	db, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected to postgres")

	return &stores{
		users:    users.NewUserRepository(db),
		content:  content.NewRepository(db),
		reports:  repository.NewReportRepository(db),
		actions:  repository.NewActionRepository(db),
		appeals:  repository.NewAppealRepository(db),
		webhooks: webhooks.NewRepository(db),
		ledger:   auditlog.NewPostgresLog(db, logger),
		probes:   map[string]health.Probe{"postgres": db.Ping},
		close:    db.Close,
	}, nil
}

// memoryStores returns empty in-process stores with the system actor seeded.
// A moderator account is created too when modEmail and modPassword are set.
func memoryStores(ctx context.Context, systemActor uuid.UUID, modEmail, modPassword string) (*stores, error) {
	userRepo := users.NewMemoryRepository()
	if err := userRepo.Create(ctx, &users.User{
		ID:           systemActor,
		Email:        "system@clay.local",
		Username:     "system",
		PasswordHash: "!",
		Role:         users.RoleAdmin,
	}); err != nil {
		return nil, fmt.Errorf("seed system actor: %w", err)
	}
	if modEmail != "" && modPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(modPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash bootstrap password: %w", err)
		}
		if err := userRepo.Create(ctx, &users.User{
			Email:        modEmail,
			Username:     "moderator",
			PasswordHash: string(hash),
			Role:         users.RoleModerator,
		}); err != nil {
			return nil, fmt.Errorf("seed bootstrap moderator: %w", err)
		}
	}
	return &stores{
		users:    userRepo,
		content:  content.NewMemoryRepository(),
		reports:  repository.NewMemoryReports(),
		actions:  repository.NewMemoryActions(),
		appeals:  repository.NewMemoryAppeals(),
		webhooks: webhooks.NewMemoryStore(),
		ledger:   auditlog.NewMemoryLog(),
		probes:   map[string]health.Probe{},
		close:    func() {},
	}, nil
}

// activityCounter picks the trailing-window counter behind the behaviour
// scorer. The postgres backend counts rows directly, so it needs no counter.
func activityCounter(ctx context.Context, backend, redisURL string, logger *zap.Logger) (activity.Counter, error) {
	switch backend {
	case "redis":
		rc, err := activity.NewRedisCounter(ctx, redisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("activity counter: redis")
		return rc, nil
	case "memory":
		logger.Info("activity counter: memory")
		return activity.NewMemoryCounter(), nil
	case "postgres", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown activity.backend %q", backend)
}
