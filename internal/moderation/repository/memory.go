package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// MemoryReports is an in-process ReportRepository for development and tests.
type MemoryReports struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*model.Report
}

// NewMemoryReports creates an empty MemoryReports.
func NewMemoryReports() *MemoryReports {
	return &MemoryReports{rows: make(map[uuid.UUID]*model.Report)}
}

// Create stores a pending report and sets its ID, Status and CreatedAt.
func (m *MemoryReports) Create(_ context.Context, rpt *model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rpt.ID = uuid.New()
	rpt.CreatedAt = time.Now().UTC()
	rpt.Status = model.ReportPending
	cp := *rpt
	m.rows[rpt.ID] = &cp
	return nil
}

// GetByID returns a copy of the report, or ErrNotFound.
func (m *MemoryReports) GetByID(_ context.Context, id uuid.UUID) (*model.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rpt, ok := m.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *rpt
	return &cp, nil
}

// List returns reports matching f, newest first.
func (m *MemoryReports) List(_ context.Context, f model.ReportFilter) ([]*model.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Report
	for _, rpt := range m.rows {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, rpt.Status) {
			continue
		}
		if f.Target != nil && rpt.Target != *f.Target {
			continue
		}
		cp := *rpt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

// StartReview moves a pending report to under_review.
func (m *MemoryReports) StartReview(_ context.Context, id uuid.UUID) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rpt, ok := m.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if rpt.Status != model.ReportPending {
		return nil, model.ErrConflict
	}
	rpt.Status = model.ReportUnderReview
	cp := *rpt
	return &cp, nil
}

// Resolve closes an open report. Closed reports return ErrConflict.
func (m *MemoryReports) Resolve(_ context.Context, id uuid.UUID, status model.ReportStatus, resolvedBy uuid.UUID, at time.Time) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rpt, ok := m.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if !rpt.Status.Open() {
		return nil, model.ErrConflict
	}
	rpt.Status = status
	rpt.ResolvedBy = &resolvedBy
	rpt.ResolvedAt = &at
	cp := *rpt
	return &cp, nil
}

// MemoryActions is an in-process ActionRepository for development and tests.
type MemoryActions struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*model.ModerationAction
	seq  []uuid.UUID
}

// NewMemoryActions creates an empty MemoryActions.
func NewMemoryActions() *MemoryActions {
	return &MemoryActions{rows: make(map[uuid.UUID]*model.ModerationAction)}
}

// Create stores an action and sets its ID and CreatedAt.
func (m *MemoryActions) Create(_ context.Context, a *model.ModerationAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	cp := *a
	m.rows[a.ID] = &cp
	m.seq = append(m.seq, a.ID)
	return nil
}

// GetByID returns a copy of the action, or ErrNotFound.
func (m *MemoryActions) GetByID(_ context.Context, id uuid.UUID) (*model.ModerationAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// List returns actions newest first. Insertion order breaks timestamp ties.
func (m *MemoryActions) List(_ context.Context, f model.ActionFilter) ([]*model.ModerationAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.ModerationAction
	for i := len(m.seq) - 1; i >= 0; i-- {
		a := m.rows[m.seq[i]]
		if f.SubjectID != nil && a.SubjectID != *f.SubjectID {
			continue
		}
		if len(f.Types) > 0 && !slices.Contains(f.Types, a.ActionType) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return page(out, f.Limit, f.Offset), nil
}

// MemoryAppeals is an in-process AppealRepository for development and tests.
type MemoryAppeals struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*model.Appeal
}

// NewMemoryAppeals creates an empty MemoryAppeals.
func NewMemoryAppeals() *MemoryAppeals {
	return &MemoryAppeals{rows: make(map[uuid.UUID]*model.Appeal)}
}

// Create stores a pending appeal and sets its ID, Status and CreatedAt.
func (m *MemoryAppeals) Create(_ context.Context, a *model.Appeal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.Status = model.AppealPending
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

// GetByID returns a copy of the appeal, or ErrNotFound.
func (m *MemoryAppeals) GetByID(_ context.Context, id uuid.UUID) (*model.Appeal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// List returns appeals matching f, newest first.
func (m *MemoryAppeals) List(_ context.Context, f model.AppealFilter) ([]*model.Appeal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Appeal
	for _, a := range m.rows {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
			continue
		}
		if f.AppellantID != nil && a.AppellantID != *f.AppellantID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

// StartReview moves a pending appeal to under_review.
func (m *MemoryAppeals) StartReview(_ context.Context, id uuid.UUID) (*model.Appeal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if a.Status != model.AppealPending {
		return nil, model.ErrConflict
	}
	a.Status = model.AppealUnderReview
	cp := *a
	return &cp, nil
}

// Resolve decides an open appeal. Decided appeals return ErrConflict.
func (m *MemoryAppeals) Resolve(_ context.Context, id uuid.UUID, status model.AppealStatus, reviewedBy uuid.UUID, at time.Time) (*model.Appeal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if !a.Status.Open() {
		return nil, model.ErrConflict
	}
	a.Status = status
	a.ReviewedBy = &reviewedBy
	a.ReviewedAt = &at
	cp := *a
	return &cp, nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if n := int(listLimit(limit)); len(in) > n {
		in = in[:n]
	}
	return in
}
