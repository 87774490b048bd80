package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// ErrInvalidCredentials is returned by Authenticate for any bad email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSuspended is returned by Authenticate while a suspension is in force.
var ErrSuspended = errors.New("account suspended")

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	validate   = validator.New()
)

const (
	minPasswordLen = 8
	minUsernameLen = 3
	maxUsernameLen = 50
	maxBioLen      = 500
)

// userRepo is the storage interface consumed by UserService.
type userRepo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, bio string) error
	List(ctx context.Context, f ListFilter) ([]*User, error)
}

// Moderator is called after a user is created so the new profile can be
// screened. *service.DecisionEngine satisfies it.
type Moderator interface {
	ModerateNewUser(ctx context.Context, u *User) error
}

// UserService implements account registration and login.
type UserService struct {
	repo      userRepo
	moderator Moderator
	logger    *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo userRepo, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

// SetModerator wires the post-signup moderation hook.
func (s *UserService) SetModerator(m Moderator) {
	s.moderator = m
}

// RegisterInput carries the signup fields.
type RegisterInput struct {
	Email    string
	Username string
	Password string
	Bio      string
}

// Register validates input, hashes the password, creates the user and then
// runs the moderation hook. A failing hook is logged; the account stays.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if err := validateRegistration(email, username, in.Password, in.Bio); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Bio:          in.Bio,
		Role:         RoleUser,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.moderator != nil {
		if err := s.moderator.ModerateNewUser(ctx, u); err != nil {
			s.logger.Warn("new user moderation failed",
				zap.String("user_id", u.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID.String()), zap.String("username", u.Username))
	return u, nil
}

// Authenticate verifies email/password credentials. Suspended users are refused.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.IsSuspended(time.Now().UTC()) {
		return nil, ErrSuspended
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns accounts for the moderation dashboard, newest first.
func (s *UserService) List(ctx context.Context, f ListFilter) ([]*User, error) {
	return s.repo.List(ctx, f)
}

// UpdateProfile replaces the user's bio.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, bio string) error {
	if len(bio) > maxBioLen {
		return &model.ErrValidation{Msg: fmt.Sprintf("bio must be at most %d characters", maxBioLen)}
	}
	return s.repo.UpdateProfile(ctx, id, bio)
}

func validateRegistration(email, username, password, bio string) error {
	if email == "" {
		return &model.ErrValidation{Msg: "email is required"}
	}
	if err := validate.Var(email, "email"); err != nil {
		return &model.ErrValidation{Msg: "email is invalid"}
	}
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return &model.ErrValidation{Msg: fmt.Sprintf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)}
	}
	if !usernameRe.MatchString(username) {
		return &model.ErrValidation{Msg: "username can only contain letters, numbers, and underscores"}
	}
	if len(password) < minPasswordLen {
		return &model.ErrValidation{Msg: fmt.Sprintf("password must be at least %d characters", minPasswordLen)}
	}
	if len(bio) > maxBioLen {
		return &model.ErrValidation{Msg: fmt.Sprintf("bio must be at most %d characters", maxBioLen)}
	}
	return nil
}
