// Package model holds the moderation domain types: reports, moderation
// actions, appeals and the polymorphic target they point at.
package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TargetKind tags which entity a TargetRef points at.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
	TargetUser    TargetKind = "user"
)

// ParseTargetKind accepts post, comment or user in any letter case.
func ParseTargetKind(s string) (TargetKind, error) {
	switch k := TargetKind(strings.ToLower(strings.TrimSpace(s))); k {
	case TargetPost, TargetComment, TargetUser:
		return k, nil
	}
	return "", &ErrValidation{Msg: fmt.Sprintf("unknown target type %q", s)}
}

// TargetRef identifies a post, comment or user.
type TargetRef struct {
	Kind TargetKind `json:"type" db:"target_type"`
	ID   uuid.UUID  `json:"id"   db:"target_id"`
}

// NewTargetRef parses kind and returns a validated reference.
func NewTargetRef(kind string, id uuid.UUID) (TargetRef, error) {
	k, err := ParseTargetKind(kind)
	if err != nil {
		return TargetRef{}, err
	}
	if id == uuid.Nil {
		return TargetRef{}, &ErrValidation{Msg: "target id is required"}
	}
	return TargetRef{Kind: k, ID: id}, nil
}

// IsZero reports whether r is unset.
func (r TargetRef) IsZero() bool { return r.Kind == "" && r.ID == uuid.Nil }

func (r TargetRef) String() string { return string(r.Kind) + ":" + r.ID.String() }

// Target is a moderatable entity resolved from a TargetRef.
type Target interface {
	TargetRef() TargetRef
	// AuthorID is the user answerable for the target. A user is its own author.
	AuthorID() uuid.UUID
	ModerationText() string
}

// Publishable is a Target with a publish flag. Only posts implement it.
type Publishable interface {
	Target
	IsPublished() bool
}
