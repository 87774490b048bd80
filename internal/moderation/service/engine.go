package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/auditlog"
	"github.com/andmorefine/clay-community-site/internal/content"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/spam"
	"github.com/andmorefine/clay-community-site/internal/users"
	"github.com/andmorefine/clay-community-site/internal/webhooks"
)

// VerdictAction is the decision engine's outcome.
type VerdictAction string

const (
	VerdictApproved       VerdictAction = "approved"
	VerdictReviewRequired VerdictAction = "review_required"
	VerdictFlagged        VerdictAction = "flagged"
)

// Combined-score thresholds.
const (
	FlagThreshold   = 10
	ReviewThreshold = 7
)

const maxDescriptionLen = 1000

// ErrNoSystemActor is returned when the engine is built without the account
// that files automatic reports.
var ErrNoSystemActor = errors.New("moderation: system actor is not configured")

// Content is anything that yields text to score. spam.Text wraps raw strings;
// posts, comments and users also implement model.Target.
type Content interface {
	ModerationText() string
}

// Verdict is the result of AutoModerate.
type Verdict struct {
	Action   VerdictAction        `json:"action"`
	Score    int                  `json:"score"`
	Content  *spam.ContentResult  `json:"content"`
	Behavior *spam.BehaviorResult `json:"behavior"`
	ReportID *uuid.UUID           `json:"report_id,omitempty"`
}

type userLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// DecisionEngine combines the content and behaviour scores into a verdict and
// files a report when content is flagged.
type DecisionEngine struct {
	reports     reportRepo
	users       userLookup
	content     *spam.ContentScorer
	behavior    *spam.BehaviorScorer
	systemActor uuid.UUID
	notifier
}

// NewDecisionEngine creates a DecisionEngine. systemActor submits automatic
// reports and must be set.
func NewDecisionEngine(reports reportRepo, userLookup userLookup, behavior *spam.BehaviorScorer, systemActor uuid.UUID, logger *zap.Logger) (*DecisionEngine, error) {
	if systemActor == uuid.Nil {
		return nil, ErrNoSystemActor
	}
	return &DecisionEngine{
		reports:     reports,
		users:       userLookup,
		content:     spam.NewContentScorer(),
		behavior:    behavior,
		systemActor: systemActor,
		notifier:    notifier{logger: logger},
	}, nil
}

// SystemActor returns the account that submits automatic reports.
func (e *DecisionEngine) SystemActor() uuid.UUID { return e.systemActor }

// CheckSystemActor verifies the system actor account exists.
func (e *DecisionEngine) CheckSystemActor(ctx context.Context) error {
	if _, err := e.users.GetByID(ctx, e.systemActor); err != nil {
		return fmt.Errorf("system actor %s: %w", e.systemActor, err)
	}
	return nil
}

// ScoreText runs the content scorer alone.
func (e *DecisionEngine) ScoreText(text string) *spam.ContentResult {
	return e.content.Score(text)
}

// Evaluate scores c and user without side effects: no report, no metrics.
func (e *DecisionEngine) Evaluate(ctx context.Context, c Content, user *users.User) *Verdict {
	text := ""
	if c != nil {
		text = c.ModerationText()
	}
	cr := e.content.Score(text)
	br := e.behavior.Score(ctx, accountOf(user))

	v := &Verdict{
		Score:    cr.Score + br.Score,
		Content:  cr,
		Behavior: br,
	}
	switch {
	case v.Score >= FlagThreshold || cr.Spam:
		v.Action = VerdictFlagged
	case v.Score >= ReviewThreshold:
		v.Action = VerdictReviewRequired
	default:
		v.Action = VerdictApproved
	}
	return v
}

// AutoModerate scores c and user and returns the verdict. When the verdict is
// flagged and c is a model.Target, a pending report is filed on it.
func (e *DecisionEngine) AutoModerate(ctx context.Context, c Content, user *users.User) (*Verdict, error) {
	v := e.Evaluate(ctx, c, user)
	cr, br := v.Content, v.Behavior
	verdictsTotal.WithLabelValues(string(v.Action)).Inc()

	target, ok := c.(model.Target)
	if v.Action != VerdictFlagged || !ok {
		return v, nil
	}

	rpt := &model.Report{
		SubmitterID: e.systemActor,
		Target:      target.TargetRef(),
		Reason:      model.AutoReportReason,
		Description: autoDescription(v.Score, cr.Reasons, br.Reasons),
	}
	if err := e.reports.Create(ctx, rpt); err != nil {
		return nil, fmt.Errorf("file automatic report: %w", err)
	}
	v.ReportID = &rpt.ID

	e.logger.Info("content flagged",
		zap.String("report_id", rpt.ID.String()),
		zap.String("target", rpt.Target.String()),
		zap.Int("score", v.Score),
	)
	e.audit(ctx, subjectOf("report", rpt.ID), auditlog.EventReportFlagged, auditlog.SystemActor, rpt)
	e.emit(ctx, webhooks.EventReportFlagged, map[string]string{
		"report_id":   rpt.ID.String(),
		"target_type": string(rpt.Target.Kind),
		"target_id":   rpt.Target.ID.String(),
		"score":       fmt.Sprint(v.Score),
	})
	return v, nil
}

// ModerateNewUser scores a newly registered user's profile.
func (e *DecisionEngine) ModerateNewUser(ctx context.Context, u *users.User) error {
	_, err := e.AutoModerate(ctx, u, u)
	return err
}

// ModeratePost scores a new post against its author.
func (e *DecisionEngine) ModeratePost(ctx context.Context, p *content.Post) error {
	return e.moderateAuthored(ctx, p, p.UserID)
}

// ModerateComment scores a new comment against its author.
func (e *DecisionEngine) ModerateComment(ctx context.Context, c *content.Comment) error {
	return e.moderateAuthored(ctx, c, c.UserID)
}

func (e *DecisionEngine) moderateAuthored(ctx context.Context, c Content, authorID uuid.UUID) error {
	author, err := e.users.GetByID(ctx, authorID)
	if err != nil {
		return fmt.Errorf("load author: %w", err)
	}
	_, err = e.AutoModerate(ctx, c, author)
	return err
}

func accountOf(u *users.User) *spam.Account {
	if u == nil {
		return nil
	}
	return &spam.Account{ID: u.ID, CreatedAt: u.CreatedAt, WarningCount: u.WarningCount}
}

// autoDescription renders the automatic report description, truncated to the
// report description limit.
func autoDescription(score int, reasonSets ...[]string) string {
	var reasons []string
	for _, rs := range reasonSets {
		reasons = append(reasons, rs...)
	}
	d := fmt.Sprintf("Auto-detected potential spam. Score: %d. Reasons: %s", score, strings.Join(reasons, "; "))
	if utf8.RuneCountInString(d) <= maxDescriptionLen {
		return d
	}
	return string([]rune(d)[:maxDescriptionLen])
}
