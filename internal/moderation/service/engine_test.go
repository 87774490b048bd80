package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/spam"
	"github.com/andmorefine/clay-community-site/internal/users"
	"github.com/andmorefine/clay-community-site/internal/webhooks"
)

func TestNewDecisionEngine_requiresSystemActor(t *testing.T) {
	_, err := NewDecisionEngine(nil, nil, spam.NewBehaviorScorer(nil, zap.NewNop()), uuid.Nil, zap.NewNop())
	if !errors.Is(err, ErrNoSystemActor) {
		t.Fatalf("err = %v, want ErrNoSystemActor", err)
	}
}

func TestCheckSystemActor_missingAccount(t *testing.T) {
	f := newFixture(t)
	e, err := NewDecisionEngine(f.reports, f.users, spam.NewBehaviorScorer(nil, zap.NewNop()), uuid.New(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.CheckSystemActor(context.Background()); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestAutoModerate_combinedScoreTenIsFlagged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// 3 warnings on an old account: behaviour 6. Two keywords: content 4, not spam.
	warned := f.mustUser(t, &users.User{Email: "w@clay.local", Username: "warned", WarningCount: 3, CreatedAt: f.author.CreatedAt})
	post := f.mustPost(t, "winner", "discount")

	v, err := f.engine.AutoModerate(ctx, post, warned)
	if err != nil {
		t.Fatalf("AutoModerate: %v", err)
	}
	if v.Content.Spam {
		t.Fatalf("content should not be spam on its own: %+v", v.Content)
	}
	if v.Score != 10 || v.Action != VerdictFlagged {
		t.Fatalf("verdict = %s/%d, want flagged/10", v.Action, v.Score)
	}
	if v.ReportID == nil {
		t.Fatal("expected a report ID")
	}

	open, _ := f.reports.List(ctx, model.ReportFilter{})
	if len(open) != 1 {
		t.Fatalf("reports = %d, want exactly 1", len(open))
	}
	rpt := open[0]
	if rpt.Reason != model.AutoReportReason || rpt.SubmitterID != systemActorID || rpt.Status != model.ReportPending {
		t.Errorf("report = %+v", rpt)
	}
	if rpt.Target != post.TargetRef() {
		t.Errorf("target = %v, want %v", rpt.Target, post.TargetRef())
	}
	wantDesc := "Auto-detected potential spam. Score: 10. Reasons: Contains spam keyword: winner; Contains spam keyword: discount; Previous warnings (3)"
	if rpt.Description != wantDesc {
		t.Errorf("description =\n  %q\nwant\n  %q", rpt.Description, wantDesc)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != webhooks.EventReportFlagged {
		t.Errorf("events = %v", got)
	}
}

func TestAutoModerate_scoreEightNeedsReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	warned := f.mustUser(t, &users.User{Email: "w@clay.local", Username: "warned", WarningCount: 2, CreatedAt: f.author.CreatedAt})
	post := f.mustPost(t, "winner", "discount")

	v, err := f.engine.AutoModerate(ctx, post, warned)
	if err != nil {
		t.Fatal(err)
	}
	if v.Score != 8 || v.Action != VerdictReviewRequired {
		t.Errorf("verdict = %s/%d, want review_required/8", v.Action, v.Score)
	}
	if v.ReportID != nil {
		t.Error("review_required must not file a report")
	}
	if rs, _ := f.reports.List(ctx, model.ReportFilter{}); len(rs) != 0 {
		t.Errorf("reports = %d, want 0", len(rs))
	}
}

func TestAutoModerate_approved(t *testing.T) {
	f := newFixture(t)
	v, err := f.engine.AutoModerate(context.Background(), spam.Text("a new celadon glaze test"), f.author)
	if err != nil {
		t.Fatal(err)
	}
	if v.Action != VerdictApproved || v.Score != 0 {
		t.Errorf("verdict = %s/%d, want approved/0", v.Action, v.Score)
	}
}

func TestAutoModerate_rawTextFlaggedWithoutReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v, err := f.engine.AutoModerate(ctx, spam.Text("Buy now! Click here for free money!"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Action != VerdictFlagged {
		t.Errorf("action = %s, want flagged", v.Action)
	}
	if v.ReportID != nil {
		t.Error("raw text has no target to report")
	}
}

func TestEvaluate_hasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.mustPost(t, "deal", "Buy now! Click here for free money!")
	flagged := verdictsTotal.WithLabelValues(string(VerdictFlagged))
	before := testutil.ToFloat64(flagged)

	v := f.engine.Evaluate(ctx, post, f.author)
	if v.Action != VerdictFlagged || v.ReportID != nil {
		t.Fatalf("verdict = %+v, want flagged without report", v)
	}
	if got := testutil.ToFloat64(flagged); got != before {
		t.Errorf("verdict counter moved from %v to %v", before, got)
	}
	if open, _ := f.reports.List(ctx, model.ReportFilter{}); len(open) != 0 {
		t.Errorf("reports = %d, want 0", len(open))
	}
	if n := len(f.events.types()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}

	if _, err := f.engine.AutoModerate(ctx, post, f.author); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(flagged); got != before+1 {
		t.Errorf("verdict counter = %v, want %v", got, before+1)
	}
}

func TestModerateNewUser_reportsSpamProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.mustUser(t, &users.User{Email: "s@clay.local", Username: "deals", Bio: "casino lottery https://win.com"})

	if err := f.engine.ModerateNewUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	rs, _ := f.reports.List(ctx, model.ReportFilter{Target: &model.TargetRef{Kind: model.TargetUser, ID: u.ID}})
	if len(rs) != 1 {
		t.Fatalf("reports on user = %d, want 1", len(rs))
	}
	if !strings.Contains(rs[0].Description, "New account (created") {
		t.Errorf("description should carry behaviour reasons: %q", rs[0].Description)
	}
}

func TestModeratePost_loadsAuthor(t *testing.T) {
	f := newFixture(t)
	post := f.mustPost(t, "glaze", "casino lottery viagra")
	if err := f.engine.ModeratePost(context.Background(), post); err != nil {
		t.Fatal(err)
	}
	post.UserID = uuid.New()
	if err := f.engine.ModeratePost(context.Background(), post); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown author: err = %v", err)
	}
}

func TestAutoDescription_truncates(t *testing.T) {
	long := make([]string, 100)
	for i := range long {
		long[i] = "Contains spam keyword: congratulations you won"
	}
	d := autoDescription(99, long)
	if n := utf8.RuneCountInString(d); n != maxDescriptionLen {
		t.Errorf("length = %d, want %d", n, maxDescriptionLen)
	}
	if err := model.Validate(&model.Report{Reason: "x", Description: d}); err != nil {
		t.Errorf("truncated description fails validation: %v", err)
	}
}
