// Package content stores posts and comments: the narrow slice the moderation
// core needs to score text, toggle publication and count recent activity.
package content

import (
	"time"

	"github.com/google/uuid"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// Post is a gallery entry. Posts are the only publishable target.
type Post struct {
	ID          uuid.UUID `json:"id"          db:"id"`
	UserID      uuid.UUID `json:"user_id"     db:"user_id"`
	Title       string    `json:"title"       db:"title"       validate:"required,max=100"`
	Description string    `json:"description" db:"description" validate:"required,max=2000"`
	Published   bool      `json:"published"   db:"published"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
}

func (p *Post) TargetRef() model.TargetRef {
	return model.TargetRef{Kind: model.TargetPost, ID: p.ID}
}

func (p *Post) AuthorID() uuid.UUID    { return p.UserID }
func (p *Post) ModerationText() string { return p.Title + " " + p.Description }
func (p *Post) IsPublished() bool      { return p.Published }

// Comment is a reply on a post.
type Comment struct {
	ID        uuid.UUID `json:"id"         db:"id"`
	UserID    uuid.UUID `json:"user_id"    db:"user_id"`
	PostID    uuid.UUID `json:"post_id"    db:"post_id"`
	Body      string    `json:"body"       db:"body" validate:"required,max=1000"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (c *Comment) TargetRef() model.TargetRef {
	return model.TargetRef{Kind: model.TargetComment, ID: c.ID}
}

func (c *Comment) AuthorID() uuid.UUID    { return c.UserID }
func (c *Comment) ModerationText() string { return c.Body }

// Compile-time interface checks.
var (
	_ model.Publishable = (*Post)(nil)
	_ model.Target      = (*Comment)(nil)
)
