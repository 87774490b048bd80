package service

import (
	"context"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// TargetResolver loads the entity a TargetRef points at.
type TargetResolver struct {
	users   userStore
	content contentStore
}

// NewTargetResolver creates a TargetResolver.
func NewTargetResolver(users userStore, content contentStore) *TargetResolver {
	return &TargetResolver{users: users, content: content}
}

// Resolve returns the target, or an error wrapping model.ErrNotFound.
func (r *TargetResolver) Resolve(ctx context.Context, ref model.TargetRef) (model.Target, error) {
	switch ref.Kind {
	case model.TargetPost:
		p, err := r.content.GetPost(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return p, nil
	case model.TargetComment:
		c, err := r.content.GetComment(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return c, nil
	case model.TargetUser:
		u, err := r.users.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	return nil, &model.ErrValidation{Msg: "unknown target type " + string(ref.Kind)}
}

// SetPublished sets the publish flag of a Publishable target. Targets without
// a flag are left unchanged and report false.
func (r *TargetResolver) SetPublished(ctx context.Context, t model.Target, published bool) (bool, error) {
	p, ok := t.(model.Publishable)
	if !ok {
		return false, nil
	}
	ref := p.TargetRef()
	switch ref.Kind {
	case model.TargetPost:
		return true, r.content.SetPostPublished(ctx, ref.ID, published)
	}
	return false, nil
}
