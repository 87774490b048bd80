package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process user store for development and tests.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*User
	byEmail    map[string]uuid.UUID
	byUsername map[string]uuid.UUID
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[uuid.UUID]*User),
		byEmail:    make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
	}
}

// Create stores u. A preset ID is kept so callers can seed known accounts.
func (r *MemoryRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return ErrDuplicateEmail
	}
	if _, ok := r.byUsername[u.Username]; ok {
		return ErrDuplicateUsername
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleUser
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = u.ID
	r.byUsername[u.Username] = u.ID
	return nil
}

// GetByID returns a copy of the user, or ErrNotFound.
func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(id)
}

// GetByEmail returns a copy of the user registered with email.
func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(r.byEmail[email])
}

// GetByUsername returns a copy of the user with username.
func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(r.byUsername[username])
}

// List returns users matching f, newest accounts first.
func (r *MemoryRepository) List(_ context.Context, f ListFilter) ([]*User, error) {
	r.mu.RLock()
	var out []*User
	for _, u := range r.byID {
		if f.Suspended && !u.Suspended {
			continue
		}
		if f.Warned && u.WarningCount == 0 {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	start := min(max(f.Offset, 0), len(out))
	return out[start:min(start+limit, len(out))], nil
}

// UpdateProfile sets the user's bio.
func (r *MemoryRepository) UpdateProfile(_ context.Context, id uuid.UUID, bio string) error {
	return r.mutate(id, func(u *User) { u.Bio = bio })
}

// SetSuspension writes the suspended flag and expiry together.
func (r *MemoryRepository) SetSuspension(_ context.Context, id uuid.UUID, suspended bool, until *time.Time) error {
	return r.mutate(id, func(u *User) {
		u.Suspended = suspended
		u.SuspendedUntil = until
	})
}

// IncrementWarnings adds one warning and returns the new count.
func (r *MemoryRepository) IncrementWarnings(_ context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.mutate(id, func(u *User) {
		u.WarningCount++
		n = u.WarningCount
	})
	return n, err
}

func (r *MemoryRepository) mutate(id uuid.UUID, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) copyOf(id uuid.UUID) (*User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}
