// Package activity counts recent posts and comments per user. The behaviour
// scorer reads these counts to spot accounts that post in bursts.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names the activity being counted.
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// Retention is how long recorded events are kept. It must cover the widest
// window any reader asks about.
const Retention = 2 * time.Hour

// Counter records activity events and counts them over a trailing window.
type Counter interface {
	Record(ctx context.Context, userID uuid.UUID, kind Kind, at time.Time) error
	CountSince(ctx context.Context, userID uuid.UUID, kind Kind, since time.Time) (int, error)
}

// ScorerAdapter exposes a Counter through the post/comment method pair the
// spam behaviour scorer expects.
type ScorerAdapter struct {
	Counter Counter
}

// CountPostsSince counts posts created by userID at or after since.
func (a ScorerAdapter) CountPostsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	return a.Counter.CountSince(ctx, userID, KindPost, since)
}

// CountCommentsSince counts comments created by userID at or after since.
func (a ScorerAdapter) CountCommentsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	return a.Counter.CountSince(ctx, userID, KindComment, since)
}

func validKind(k Kind) error {
	switch k {
	case KindPost, KindComment:
		return nil
	}
	return fmt.Errorf("activity: unknown kind %q", k)
}
