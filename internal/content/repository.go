package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// ErrPostNotFound and ErrCommentNotFound wrap model.ErrNotFound.
var (
	ErrPostNotFound    = fmt.Errorf("post %w", model.ErrNotFound)
	ErrCommentNotFound = fmt.Errorf("comment %w", model.ErrNotFound)
)

// Repository stores posts and comments in PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreatePost inserts p and sets its ID and CreatedAt.
func (r *Repository) CreatePost(ctx context.Context, p *Post) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	q := `INSERT INTO posts (id, user_id, title, description, published, created_at)
	      VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.Exec(ctx, q, p.ID, p.UserID, p.Title, p.Description, p.Published, p.CreatedAt); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// GetPost retrieves a post by ID.
func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	var p Post
	q := `SELECT id, user_id, title, description, published, created_at FROM posts WHERE id = $1`
	err := r.db.QueryRow(ctx, q, id).Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Published, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

// SetPostPublished sets the publish flag.
func (r *Repository) SetPostPublished(ctx context.Context, id uuid.UUID, published bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE posts SET published = $2, updated_at = $3 WHERE id = $1`, id, published, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set post published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

// CreateComment inserts c and sets its ID and CreatedAt.
func (r *Repository) CreateComment(ctx context.Context, c *Comment) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	q := `INSERT INTO comments (id, user_id, post_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.Exec(ctx, q, c.ID, c.UserID, c.PostID, c.Body, c.CreatedAt); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetComment retrieves a comment by ID.
func (r *Repository) GetComment(ctx context.Context, id uuid.UUID) (*Comment, error) {
	var c Comment
	q := `SELECT id, user_id, post_id, body, created_at FROM comments WHERE id = $1`
	err := r.db.QueryRow(ctx, q, id).Scan(&c.ID, &c.UserID, &c.PostID, &c.Body, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

// CountPostsSince counts posts by userID created after since.
func (r *Repository) CountPostsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	return r.countSince(ctx, "posts", userID, since)
}

// CountCommentsSince counts comments by userID created after since.
func (r *Repository) CountCommentsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	return r.countSince(ctx, "comments", userID, since)
}

func (r *Repository) countSince(ctx context.Context, table string, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM ` + table + ` WHERE user_id = $1 AND created_at > $2`
	if err := r.db.QueryRow(ctx, q, userID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
