package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// ErrNotFound is returned when a user lookup finds no matching record.
var ErrNotFound = fmt.Errorf("user %w", model.ErrNotFound)

// ErrDuplicateEmail is returned when a signup uses an already-registered email.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicateUsername is returned when the requested username is taken.
var ErrDuplicateUsername = errors.New("username already taken")

const defaultListLimit = 50

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const userColumns = `id, email, password_hash, username, bio, role,
	suspended, suspended_until, warning_count, created_at, updated_at`

// UserRepository provides storage for users against PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user record. Sets ID, CreatedAt, UpdatedAt on the user.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleUser
	}

	q := `
		INSERT INTO users (id, email, password_hash, username, bio, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, q,
		u.ID, u.Email, u.PasswordHash, u.Username, u.Bio, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return ErrDuplicateEmail
			}
			return ErrDuplicateUsername
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// List returns users matching f, newest accounts first.
func (r *UserRepository) List(ctx context.Context, f ListFilter) ([]*User, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	b := psql.Select(userColumns).From("users").
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(max(f.Offset, 0)))
	if f.Suspended {
		b = b.Where(sq.Eq{"suspended": true})
	}
	if f.Warned {
		b = b.Where(sq.Gt{"warning_count": 0})
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateProfile sets the user's bio.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, bio string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET bio = $2, updated_at = $3 WHERE id = $1`, id, bio, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSuspension writes the suspended flag and expiry together.
func (r *UserRepository) SetSuspension(ctx context.Context, id uuid.UUID, suspended bool, until *time.Time) error {
	q := `UPDATE users SET suspended = $2, suspended_until = $3, updated_at = $4 WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, id, suspended, until, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set suspension: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementWarnings atomically adds one warning and returns the new count.
func (r *UserRepository) IncrementWarnings(ctx context.Context, id uuid.UUID) (int, error) {
	q := `UPDATE users SET warning_count = warning_count + 1, updated_at = $2 WHERE id = $1 RETURNING warning_count`
	var n int
	if err := r.db.QueryRow(ctx, q, id, time.Now().UTC()).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment warnings: %w", err)
	}
	return n, nil
}

func (r *UserRepository) scanOne(ctx context.Context, q string, args ...any) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Username, &u.Bio, &u.Role,
		&u.Suspended, &u.SuspendedUntil, &u.WarningCount, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
