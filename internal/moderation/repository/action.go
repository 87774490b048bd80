package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

const actionColumns = `id, subject_id, moderator_id, action_type, reason,
	target_type, target_id, expires_at, created_at`

// ActionRepository provides storage for moderation actions. Actions are
// append-only.
type ActionRepository struct {
	db *pgxpool.Pool
}

// NewActionRepository creates a new ActionRepository.
func NewActionRepository(db *pgxpool.Pool) *ActionRepository {
	return &ActionRepository{db: db}
}

// Create inserts a moderation action and sets its ID and CreatedAt.
func (r *ActionRepository) Create(ctx context.Context, a *model.ModerationAction) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()

	q := `
		INSERT INTO moderation_actions (id, subject_id, moderator_id, action_type, reason,
		                                target_type, target_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, q,
		a.ID, a.SubjectID, a.ModeratorID, a.ActionType, a.Reason,
		a.Target.Kind, a.Target.ID, a.ExpiresAt, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create moderation action: %w", err)
	}
	return nil
}

// GetByID retrieves an action by ID.
func (r *ActionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ModerationAction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+actionColumns+` FROM moderation_actions WHERE id = $1`, id)
	a, err := scanAction(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// List returns actions matching f, newest first.
func (r *ActionRepository) List(ctx context.Context, f model.ActionFilter) ([]*model.ModerationAction, error) {
	b := psql.Select(actionColumns).From("moderation_actions").
		OrderBy("created_at DESC").
		Limit(listLimit(f.Limit)).
		Offset(uint64(max(f.Offset, 0)))
	if f.SubjectID != nil {
		b = b.Where(sq.Eq{"subject_id": *f.SubjectID})
	}
	if len(f.Types) > 0 {
		b = b.Where(sq.Eq{"action_type": statusStrings(f.Types)})
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list moderation actions: %w", err)
	}
	defer rows.Close()

	var out []*model.ModerationAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAction(row pgx.Row) (*model.ModerationAction, error) {
	var a model.ModerationAction
	err := row.Scan(
		&a.ID, &a.SubjectID, &a.ModeratorID, &a.ActionType, &a.Reason,
		&a.Target.Kind, &a.Target.ID, &a.ExpiresAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
