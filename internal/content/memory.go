package content

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process post/comment store for development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	posts    map[uuid.UUID]*Post
	comments map[uuid.UUID]*Comment
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		posts:    make(map[uuid.UUID]*Post),
		comments: make(map[uuid.UUID]*Comment),
	}
}

// CreatePost stores p. Preset IDs and timestamps are kept.
func (r *MemoryRepository) CreatePost(_ context.Context, p *Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := *p
	r.posts[p.ID] = &cp
	return nil
}

// GetPost returns a copy of the post, or ErrPostNotFound.
func (r *MemoryRepository) GetPost(_ context.Context, id uuid.UUID) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

// SetPostPublished toggles the post's publish flag.
func (r *MemoryRepository) SetPostPublished(_ context.Context, id uuid.UUID, published bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	p.Published = published
	return nil
}

// CreateComment stores c on an existing post.
func (r *MemoryRepository) CreateComment(_ context.Context, c *Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[c.PostID]; !ok {
		return ErrPostNotFound
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	r.comments[c.ID] = &cp
	return nil
}

// GetComment returns a copy of the comment.
func (r *MemoryRepository) GetComment(_ context.Context, id uuid.UUID) (*Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	cp := *c
	return &cp, nil
}

// CountPostsSince counts posts by userID created after since.
func (r *MemoryRepository) CountPostsSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.posts {
		if p.UserID == userID && p.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

// CountCommentsSince counts comments by userID created after since.
func (r *MemoryRepository) CountCommentsSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.comments {
		if c.UserID == userID && c.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}
