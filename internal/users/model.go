package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// Role is a user's permission level.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// User is a community member.
type User struct {
	ID             uuid.UUID  `json:"id"                        db:"id"`
	Email          string     `json:"email"                     db:"email"`
	PasswordHash   string     `json:"-"                         db:"password_hash"`
	Username       string     `json:"username"                  db:"username"`
	Bio            string     `json:"bio"                       db:"bio"`
	Role           Role       `json:"role"                      db:"role"`
	Suspended      bool       `json:"suspended"                 db:"suspended"`
	SuspendedUntil *time.Time `json:"suspended_until,omitempty" db:"suspended_until"`
	WarningCount   int        `json:"warning_count"             db:"warning_count"`
	CreatedAt      time.Time  `json:"created_at"                db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"                db:"updated_at"`
}

// Listing filters accepted by ParseListFilter.
const (
	FilterSuspended = "suspended"
	FilterWarned    = "warned"
)

// ListFilter narrows a user listing. Set flags combine with AND.
type ListFilter struct {
	Suspended bool // suspended flag set
	Warned    bool // at least one warning
	Limit     int
	Offset    int
}

// ParseListFilter maps the admin ?filter= value to a ListFilter. An empty
// value lists everyone.
func ParseListFilter(raw string) (ListFilter, error) {
	switch raw {
	case "":
		return ListFilter{}, nil
	case FilterSuspended:
		return ListFilter{Suspended: true}, nil
	case FilterWarned:
		return ListFilter{Warned: true}, nil
	}
	return ListFilter{}, &model.ErrValidation{Msg: "filter must be suspended or warned"}
}

// IsModerator reports whether the user may act on reports and appeals.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

// IsSuspended reports whether a suspension is in force at now. The Suspended
// flag is not cleared when SuspendedUntil passes; callers must use this.
func (u *User) IsSuspended(now time.Time) bool {
	return u.Suspended && (u.SuspendedUntil == nil || u.SuspendedUntil.After(now))
}

// TargetRef identifies the user as a moderation target.
func (u *User) TargetRef() model.TargetRef {
	return model.TargetRef{Kind: model.TargetUser, ID: u.ID}
}

// AuthorID is the user itself.
func (u *User) AuthorID() uuid.UUID { return u.ID }

// ModerationText is the profile text scored for spam.
func (u *User) ModerationText() string {
	return u.Username + " " + u.Bio
}
