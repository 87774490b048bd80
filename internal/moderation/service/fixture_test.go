package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/auditlog"
	"github.com/andmorefine/clay-community-site/internal/content"
	"github.com/andmorefine/clay-community-site/internal/moderation/repository"
	"github.com/andmorefine/clay-community-site/internal/spam"
	"github.com/andmorefine/clay-community-site/internal/users"
)

type recordedEvent struct {
	Type    string
	Payload map[string]string
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, eventType string, payload map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, recordedEvent{Type: eventType, Payload: payload})
}

func (d *recordingDispatcher) types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type quietCounter struct{}

func (quietCounter) CountPostsSince(context.Context, uuid.UUID, time.Time) (int, error) {
	return 0, nil
}

func (quietCounter) CountCommentsSince(context.Context, uuid.UUID, time.Time) (int, error) {
	return 0, nil
}

type fixture struct {
	users   *users.MemoryRepository
	content *content.MemoryRepository
	reports *repository.MemoryReports
	actions *repository.MemoryActions
	appeals *repository.MemoryAppeals
	audit   *auditlog.MemoryLog
	events  *recordingDispatcher

	engine    *DecisionEngine
	reportSvc *ReportService
	actionSvc *ActionService
	appealSvc *AppealService

	system    *users.User
	moderator *users.User
	author    *users.User
}

var systemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	f := &fixture{
		users:   users.NewMemoryRepository(),
		content: content.NewMemoryRepository(),
		reports: repository.NewMemoryReports(),
		actions: repository.NewMemoryActions(),
		appeals: repository.NewMemoryAppeals(),
		audit:   auditlog.NewMemoryLog(),
		events:  &recordingDispatcher{},
	}

	f.system = f.mustUser(t, &users.User{ID: systemActorID, Email: "system@clay.local", Username: "system", Role: users.RoleAdmin})
	f.moderator = f.mustUser(t, &users.User{Email: "mod@clay.local", Username: "mod", Role: users.RoleModerator})
	f.author = f.mustUser(t, &users.User{
		Email: "potter@clay.local", Username: "potter",
		CreatedAt: time.Now().UTC().AddDate(-1, 0, 0),
	})

	engine, err := NewDecisionEngine(f.reports, f.users, spam.NewBehaviorScorer(quietCounter{}, logger), systemActorID, logger)
	if err != nil {
		t.Fatalf("NewDecisionEngine: %v", err)
	}
	targets := NewTargetResolver(f.users, f.content)
	f.engine = engine
	f.actionSvc = NewActionService(f.actions, f.users, logger)
	f.reportSvc = NewReportService(f.reports, f.users, targets, f.actionSvc, logger)
	f.appealSvc = NewAppealService(f.appeals, f.users, targets, f.actionSvc, logger)

	for _, n := range []interface {
		SetAuditLog(auditlog.Log)
		SetEventDispatcher(EventDispatcher)
	}{f.engine, f.actionSvc, f.reportSvc, f.appealSvc} {
		n.SetAuditLog(f.audit)
		n.SetEventDispatcher(f.events)
	}

	if err := f.engine.CheckSystemActor(ctx); err != nil {
		t.Fatalf("CheckSystemActor: %v", err)
	}
	return f
}

func (f *fixture) mustUser(t *testing.T, u *users.User) *users.User {
	t.Helper()
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", u.Username, err)
	}
	return u
}

func (f *fixture) mustPost(t *testing.T, title, description string) *content.Post {
	t.Helper()
	p := &content.Post{UserID: f.author.ID, Title: title, Description: description, Published: true}
	if err := f.content.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func (f *fixture) mustReport(t *testing.T, p *content.Post) uuid.UUID {
	t.Helper()
	rpt, err := f.reportSvc.Create(context.Background(), f.moderator.ID, p.TargetRef(), "spam", "selling stuff")
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	return rpt.ID
}

func (f *fixture) reloadUser(t *testing.T, id uuid.UUID) *users.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}
