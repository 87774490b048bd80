package content_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/activity"
	"github.com/andmorefine/clay-community-site/internal/content"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

type recordingModerator struct {
	posts    []uuid.UUID
	comments []uuid.UUID
	err      error
}

func (m *recordingModerator) ModeratePost(_ context.Context, p *content.Post) error {
	m.posts = append(m.posts, p.ID)
	return m.err
}

func (m *recordingModerator) ModerateComment(_ context.Context, c *content.Comment) error {
	m.comments = append(m.comments, c.ID)
	return m.err
}

func TestCreatePost_recordsActivityAndModerates(t *testing.T) {
	ctx := context.Background()
	counter := activity.NewMemoryCounter()
	mod := &recordingModerator{}
	svc := content.NewService(content.NewMemoryRepository(), zap.NewNop())
	svc.SetActivityCounter(counter)
	svc.SetModerator(mod)

	author := uuid.New()
	p, err := svc.CreatePost(ctx, author, "Celadon bowl", "Cone 10 reduction")
	if err != nil {
		t.Fatalf("CreatePost() error: %v", err)
	}
	if !p.Published {
		t.Error("new posts are published")
	}
	if len(mod.posts) != 1 || mod.posts[0] != p.ID {
		t.Errorf("moderator saw %v", mod.posts)
	}
	n, _ := counter.CountSince(ctx, author, activity.KindPost, time.Now().Add(-time.Hour))
	if n != 1 {
		t.Errorf("activity count = %d, want 1", n)
	}
}

func TestCreatePost_validation(t *testing.T) {
	svc := content.NewService(content.NewMemoryRepository(), zap.NewNop())
	_, err := svc.CreatePost(context.Background(), uuid.New(), strings.Repeat("t", 101), "desc")
	if model.Classify(err) != model.OutcomeValidation {
		t.Errorf("long title: got %v", err)
	}
	_, err = svc.CreatePost(context.Background(), uuid.New(), "title", "  ")
	if model.Classify(err) != model.OutcomeValidation {
		t.Errorf("blank description: got %v", err)
	}
}

func TestCreateComment(t *testing.T) {
	ctx := context.Background()
	mod := &recordingModerator{err: errors.New("ignored")}
	svc := content.NewService(content.NewMemoryRepository(), zap.NewNop())
	svc.SetModerator(mod)

	p, _ := svc.CreatePost(ctx, uuid.New(), "Mug", "Speckled stoneware")
	c, err := svc.CreateComment(ctx, uuid.New(), p.ID, "lovely glaze")
	if err != nil {
		t.Fatalf("CreateComment() error: %v", err)
	}
	if len(mod.comments) != 1 || mod.comments[0] != c.ID {
		t.Errorf("moderator saw %v", mod.comments)
	}

	if _, err := svc.CreateComment(ctx, uuid.New(), uuid.New(), "orphan"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("comment on missing post: got %v", err)
	}
}

func TestPost_moderationText(t *testing.T) {
	p := &content.Post{ID: uuid.New(), UserID: uuid.New(), Title: "Vase", Description: "tall form"}
	if p.ModerationText() != "Vase tall form" {
		t.Errorf("ModerationText = %q", p.ModerationText())
	}
	if p.AuthorID() != p.UserID || p.TargetRef().Kind != model.TargetPost {
		t.Error("post target fields mismatch")
	}
}

func TestMemoryRepository_countWindowExcludesBoundary(t *testing.T) {
	ctx := context.Background()
	repo := content.NewMemoryRepository()
	author := uuid.New()
	since := time.Now().UTC().Add(-time.Hour)

	onEdge := &content.Post{UserID: author, Title: "edge", CreatedAt: since}
	if err := repo.CreatePost(ctx, onEdge); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateComment(ctx, &content.Comment{PostID: onEdge.ID, UserID: author, Body: "edge", CreatedAt: since}); err != nil {
		t.Fatal(err)
	}
	posts, _ := repo.CountPostsSince(ctx, author, since)
	comments, _ := repo.CountCommentsSince(ctx, author, since)
	if posts != 0 || comments != 0 {
		t.Errorf("boundary counted: posts=%d comments=%d", posts, comments)
	}

	if err := repo.CreatePost(ctx, &content.Post{UserID: author, Title: "inside", CreatedAt: since.Add(time.Second)}); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.CountPostsSince(ctx, author, since); n != 1 {
		t.Errorf("posts = %d, want 1", n)
	}
}
