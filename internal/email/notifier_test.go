package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/users"
	"github.com/andmorefine/clay-community-site/internal/webhooks"
)

type sent struct{ to, subject, body string }

type recordingSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{to, subject, body})
	return r.err
}

func newNotifier(t *testing.T) (*Notifier, *recordingSender, *users.User) {
	t.Helper()
	repo := users.NewMemoryRepository()
	u := &users.User{Email: "potter@clay.local", Username: "potter"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	rs := &recordingSender{}
	return NewNotifier(rs, repo, zap.NewNop()), rs, u
}

func TestNotifier_Suspension(t *testing.T) {
	n, rs, u := newNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	n.Dispatch(ctx, webhooks.EventUserSuspended, map[string]string{
		"user_id":         u.ID.String(),
		"reason":          "spam links",
		"suspended_until": "2026-01-08T00:00:00Z",
	})
	cancel()
	n.Wait()

	if len(rs.msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(rs.msgs))
	}
	m := rs.msgs[0]
	if m.to != u.Email || m.subject != "Your account has been suspended" {
		t.Errorf("got %+v", m)
	}
	for _, want := range []string{"Hi potter", "Reason: spam links", "Suspended until: 2026-01-08T00:00:00Z"} {
		if !strings.Contains(m.body, want) {
			t.Errorf("body missing %q:\n%s", want, m.body)
		}
	}
}

func TestNotifier_PermanentSuspension(t *testing.T) {
	n, rs, u := newNotifier(t)
	n.Dispatch(context.Background(), webhooks.EventUserSuspended, map[string]string{"user_id": u.ID.String(), "reason": "x"})
	n.Wait()
	if len(rs.msgs) != 1 || !strings.Contains(rs.msgs[0].body, "permanent") {
		t.Errorf("got %+v", rs.msgs)
	}
}

func TestNotifier_AppealDecision(t *testing.T) {
	n, rs, u := newNotifier(t)
	n.Dispatch(context.Background(), webhooks.EventAppealResolved, map[string]string{"user_id": u.ID.String(), "decision": "approved"})
	n.Dispatch(context.Background(), webhooks.EventAppealResolved, map[string]string{"user_id": u.ID.String(), "decision": "denied"})
	n.Wait()
	if len(rs.msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(rs.msgs))
	}
	bodies := rs.msgs[0].body + rs.msgs[1].body
	if !strings.Contains(bodies, "approved") || !strings.Contains(bodies, "denied") {
		t.Errorf("bodies:\n%s", bodies)
	}
}

func TestNotifier_IgnoresOtherEvents(t *testing.T) {
	n, rs, u := newNotifier(t)
	n.Dispatch(context.Background(), webhooks.EventReportFlagged, map[string]string{"user_id": u.ID.String()})
	n.Dispatch(context.Background(), webhooks.EventUserWarned, map[string]string{"reason": "no user id"})
	n.Wait()
	if len(rs.msgs) != 0 {
		t.Errorf("sent %+v", rs.msgs)
	}
}

func TestNotifier_UnknownUserAndSendFailure(t *testing.T) {
	n, rs, u := newNotifier(t)
	rs.err = errors.New("smtp down")
	n.Dispatch(context.Background(), webhooks.EventUserWarned, map[string]string{"user_id": uuid.NewString(), "reason": "x"})
	n.Dispatch(context.Background(), webhooks.EventUserWarned, map[string]string{"user_id": u.ID.String(), "reason": "x"})
	n.Wait()
	if len(rs.msgs) != 1 {
		t.Errorf("sent %d messages, want 1 attempt", len(rs.msgs))
	}
}

func TestBuildMessage(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := string(buildMessage("mod@clay.local", "potter@clay.local", "Café closed", "line one\nline two", at))

	for _, want := range []string{
		"From: mod@clay.local\r\n",
		"To: potter@clay.local\r\n",
		"Subject: =?utf-8?q?Caf=C3=A9_closed?=\r\n",
		"Date: Fri, 02 Jan 2026 03:04:05 +0000\r\n",
		"\r\n\r\nline one\r\nline two",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%q", want, msg)
		}
	}
}
