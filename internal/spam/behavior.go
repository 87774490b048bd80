package spam

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Behaviour windows and limits.
const (
	activityWindow    = time.Hour
	newAccountWindow  = 24 * time.Hour
	maxHourlyPosts    = 5
	maxHourlyComments = 10
)

// ActivityCounter answers "how many posts/comments has this user created
// since t". activity.ScorerAdapter and content.Repository satisfy it.
type ActivityCounter interface {
	CountPostsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	CountCommentsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// Account is the slice of a user record the behaviour scorer reads.
type Account struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	WarningCount int
}

// BehaviorScorer scores an account's recent activity.
type BehaviorScorer struct {
	activity ActivityCounter
	now      func() time.Time
	logger   *zap.Logger
}

// NewBehaviorScorer creates a BehaviorScorer. activity may be nil, in which
// case frequency checks always see zero activity.
func NewBehaviorScorer(activity ActivityCounter, logger *zap.Logger) *BehaviorScorer {
	return &BehaviorScorer{
		activity: activity,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *BehaviorScorer) SetClock(now func() time.Time) {
	s.now = now
}

// Score evaluates acct. A nil account scores zero. Counter failures are
// logged and treated as no activity; Score never fails.
func (s *BehaviorScorer) Score(ctx context.Context, acct *Account) *BehaviorResult {
	if acct == nil {
		return &BehaviorResult{Reasons: []string{}, Confidence: ConfidenceLow}
	}

	now := s.now()
	since := now.Add(-activityWindow)
	score := 0
	reasons := []string{}

	if posts := s.count(ctx, "posts", acct.ID, since); posts > maxHourlyPosts {
		score += posts * 2
		reasons = append(reasons, fmt.Sprintf("High posting frequency (%d posts in last hour)", posts))
	}

	if comments := s.count(ctx, "comments", acct.ID, since); comments > maxHourlyComments {
		score += comments
		reasons = append(reasons, fmt.Sprintf("High commenting frequency (%d comments in last hour)", comments))
	}

	if acct.CreatedAt.After(now.Add(-newAccountWindow)) {
		score += 3
		reasons = append(reasons, fmt.Sprintf("New account (created %s ago)", timeAgoInWords(now.Sub(acct.CreatedAt))))
	}

	if acct.WarningCount > 0 {
		score += acct.WarningCount * 2
		reasons = append(reasons, fmt.Sprintf("Previous warnings (%d)", acct.WarningCount))
	}

	return &BehaviorResult{
		Suspicious: score >= SuspiciousThreshold,
		Score:      score,
		Reasons:    reasons,
		Confidence: confidenceFor(score),
	}
}

func (s *BehaviorScorer) count(ctx context.Context, kind string, userID uuid.UUID, since time.Time) int {
	if s.activity == nil {
		return 0
	}
	var (
		n   int
		err error
	)
	switch kind {
	case "posts":
		n, err = s.activity.CountPostsSince(ctx, userID, since)
	case "comments":
		n, err = s.activity.CountCommentsSince(ctx, userID, since)
	}
	if err != nil {
		s.logger.Warn("activity count failed; treating as zero",
			zap.String("kind", kind),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return 0
	}
	return n
}

// timeAgoInWords renders an elapsed duration in the coarsest whole unit:
// "N seconds", "N minutes", "N hours" or "N days".
func timeAgoInWords(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	}
}
