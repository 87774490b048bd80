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

const reportColumns = `id, submitter_id, target_type, target_id, reason, description,
	status, resolved_by, resolved_at, created_at`

// ReportRepository provides storage for reports.
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new pending report and sets its ID, Status and CreatedAt.
func (r *ReportRepository) Create(ctx context.Context, rpt *model.Report) error {
	rpt.ID = uuid.New()
	rpt.CreatedAt = time.Now().UTC()
	rpt.Status = model.ReportPending

	q := `
		INSERT INTO reports (id, submitter_id, target_type, target_id, reason, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, q,
		rpt.ID, rpt.SubmitterID, rpt.Target.Kind, rpt.Target.ID,
		rpt.Reason, rpt.Description, rpt.Status, rpt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by ID.
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	row := r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	rpt, err := scanReport(row)
	if err != nil {
		return nil, notFound(err)
	}
	return rpt, nil
}

// List returns reports matching f, newest first.
func (r *ReportRepository) List(ctx context.Context, f model.ReportFilter) ([]*model.Report, error) {
	b := psql.Select(reportColumns).From("reports").
		OrderBy("created_at DESC").
		Limit(listLimit(f.Limit)).
		Offset(uint64(max(f.Offset, 0)))
	if len(f.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": statusStrings(f.Statuses)})
	}
	if f.Target != nil {
		b = b.Where(sq.Eq{"target_type": string(f.Target.Kind), "target_id": f.Target.ID})
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*model.Report
	for rows.Next() {
		rpt, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rpt)
	}
	return out, rows.Err()
}

// StartReview moves a pending report to under_review.
func (r *ReportRepository) StartReview(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	q := `UPDATE reports SET status = $2 WHERE id = $1 AND status = $3 RETURNING ` + reportColumns
	rpt, err := scanReport(r.db.QueryRow(ctx, q, id, model.ReportUnderReview, model.ReportPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, closeConflict(ctx, r.db, "reports", id)
	}
	if err != nil {
		return nil, fmt.Errorf("start report review: %w", err)
	}
	return rpt, nil
}

// Resolve closes an open report in a single conditional update. A report that
// is missing returns ErrNotFound; one already closed returns ErrConflict.
func (r *ReportRepository) Resolve(ctx context.Context, id uuid.UUID, status model.ReportStatus, resolvedBy uuid.UUID, at time.Time) (*model.Report, error) {
	q := `
		UPDATE reports SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1 AND status IN ($5, $6)
		RETURNING ` + reportColumns
	row := r.db.QueryRow(ctx, q, id, status, resolvedBy, at, model.ReportPending, model.ReportUnderReview)
	rpt, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, closeConflict(ctx, r.db, "reports", id)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve report: %w", err)
	}
	return rpt, nil
}

func scanReport(row pgx.Row) (*model.Report, error) {
	var rpt model.Report
	err := row.Scan(
		&rpt.ID, &rpt.SubmitterID, &rpt.Target.Kind, &rpt.Target.ID,
		&rpt.Reason, &rpt.Description, &rpt.Status,
		&rpt.ResolvedBy, &rpt.ResolvedAt, &rpt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rpt, nil
}

func statusStrings[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
