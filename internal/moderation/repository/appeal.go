package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

const appealColumns = `id, appellant_id, moderation_action_id, reason, status,
	reviewed_by, reviewed_at, created_at`

// AppealRepository provides storage for appeals.
type AppealRepository struct {
	db *pgxpool.Pool
}

// NewAppealRepository creates a new AppealRepository.
func NewAppealRepository(db *pgxpool.Pool) *AppealRepository {
	return &AppealRepository{db: db}
}

// Create inserts a pending appeal and sets its ID, Status and CreatedAt.
func (r *AppealRepository) Create(ctx context.Context, a *model.Appeal) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.Status = model.AppealPending

	q := `
		INSERT INTO appeals (id, appellant_id, moderation_action_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, q, a.ID, a.AppellantID, a.ModerationActionID, a.Reason, a.Status, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create appeal: %w", err)
	}
	return nil
}

// GetByID retrieves an appeal by ID.
func (r *AppealRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appeal, error) {
	row := r.db.QueryRow(ctx, `SELECT `+appealColumns+` FROM appeals WHERE id = $1`, id)
	a, err := scanAppeal(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// List returns appeals matching f, newest first.
func (r *AppealRepository) List(ctx context.Context, f model.AppealFilter) ([]*model.Appeal, error) {
	b := psql.Select(appealColumns).From("appeals").
		OrderBy("created_at DESC").
		Limit(listLimit(f.Limit)).
		Offset(uint64(max(f.Offset, 0)))
	if len(f.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": statusStrings(f.Statuses)})
	}
	if f.AppellantID != nil {
		b = b.Where(sq.Eq{"appellant_id": *f.AppellantID})
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list appeals: %w", err)
	}
	defer rows.Close()

	var out []*model.Appeal
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// StartReview moves a pending appeal to under_review.
func (r *AppealRepository) StartReview(ctx context.Context, id uuid.UUID) (*model.Appeal, error) {
	q := `UPDATE appeals SET status = $2 WHERE id = $1 AND status = $3 RETURNING ` + appealColumns
	a, err := scanAppeal(r.db.QueryRow(ctx, q, id, model.AppealUnderReview, model.AppealPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, closeConflict(ctx, r.db, "appeals", id)
	}
	if err != nil {
		return nil, fmt.Errorf("start appeal review: %w", err)
	}
	return a, nil
}

// Resolve records a decision on an open appeal in a single conditional update.
func (r *AppealRepository) Resolve(ctx context.Context, id uuid.UUID, status model.AppealStatus, reviewedBy uuid.UUID, at time.Time) (*model.Appeal, error) {
	q := `
		UPDATE appeals SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1 AND status IN ($5, $6)
		RETURNING ` + appealColumns
	row := r.db.QueryRow(ctx, q, id, status, reviewedBy, at, model.AppealPending, model.AppealUnderReview)
	a, err := scanAppeal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, closeConflict(ctx, r.db, "appeals", id)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve appeal: %w", err)
	}
	return a, nil
}

func scanAppeal(row pgx.Row) (*model.Appeal, error) {
	var a model.Appeal
	err := row.Scan(
		&a.ID, &a.AppellantID, &a.ModerationActionID, &a.Reason, &a.Status,
		&a.ReviewedBy, &a.ReviewedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
