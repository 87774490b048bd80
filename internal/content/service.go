package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/activity"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// contentRepo is the storage interface consumed by Service.
type contentRepo interface {
	CreatePost(ctx context.Context, p *Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	CreateComment(ctx context.Context, c *Comment) error
	GetComment(ctx context.Context, id uuid.UUID) (*Comment, error)
}

// Moderator screens newly created content. *service.DecisionEngine satisfies it.
type Moderator interface {
	ModeratePost(ctx context.Context, p *Post) error
	ModerateComment(ctx context.Context, c *Comment) error
}

var validate = validator.New()

// Service creates posts and comments and runs the moderation hooks on them.
type Service struct {
	repo      contentRepo
	activity  activity.Counter
	moderator Moderator
	logger    *zap.Logger
}

// NewService creates a Service.
func NewService(repo contentRepo, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// SetActivityCounter wires the counter fed on every create.
func (s *Service) SetActivityCounter(c activity.Counter) { s.activity = c }

// SetModerator wires the post/comment moderation hooks.
func (s *Service) SetModerator(m Moderator) { s.moderator = m }

// CreatePost stores a published post, records the activity and screens it.
func (s *Service) CreatePost(ctx context.Context, userID uuid.UUID, title, description string) (*Post, error) {
	p := &Post{
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Published:   true,
	}
	if err := validateStruct(p); err != nil {
		return nil, err
	}
	if err := s.repo.CreatePost(ctx, p); err != nil {
		return nil, err
	}

	s.record(ctx, userID, activity.KindPost, p.CreatedAt)
	if s.moderator != nil {
		if err := s.moderator.ModeratePost(ctx, p); err != nil {
			s.logger.Warn("post moderation failed", zap.String("post_id", p.ID.String()), zap.Error(err))
		}
	}
	return p, nil
}

// CreateComment stores a comment on postID, records the activity and screens it.
func (s *Service) CreateComment(ctx context.Context, userID, postID uuid.UUID, body string) (*Comment, error) {
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	c := &Comment{UserID: userID, PostID: postID, Body: strings.TrimSpace(body)}
	if err := validateStruct(c); err != nil {
		return nil, err
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, err
	}

	s.record(ctx, userID, activity.KindComment, c.CreatedAt)
	if s.moderator != nil {
		if err := s.moderator.ModerateComment(ctx, c); err != nil {
			s.logger.Warn("comment moderation failed", zap.String("comment_id", c.ID.String()), zap.Error(err))
		}
	}
	return c, nil
}

// GetPost retrieves a post.
func (s *Service) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	return s.repo.GetPost(ctx, id)
}

func (s *Service) record(ctx context.Context, userID uuid.UUID, kind activity.Kind, at time.Time) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, userID, kind, at); err != nil {
		s.logger.Warn("record activity", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			return &model.ErrValidation{Msg: field + " is required"}
		}
		return &model.ErrValidation{Msg: fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
	}
	return &model.ErrValidation{Msg: err.Error()}
}
