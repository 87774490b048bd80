package service

import (
	"context"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// Dashboard list sizes.
const (
	overviewReports = 20
	overviewActions = 10
	overviewAppeals = 10
)

// OverviewService assembles the moderation dashboard.
type OverviewService struct {
	reports *ReportService
	actions *ActionService
	appeals *AppealService
}

// NewOverviewService creates an OverviewService.
func NewOverviewService(reports *ReportService, actions *ActionService, appeals *AppealService) *OverviewService {
	return &OverviewService{reports: reports, actions: actions, appeals: appeals}
}

// Overview returns the newest open reports, recent actions and open appeals.
func (s *OverviewService) Overview(ctx context.Context) (*model.Overview, error) {
	reports, err := s.reports.ListUnresolved(ctx, overviewReports)
	if err != nil {
		return nil, err
	}
	actions, err := s.actions.ListRecent(ctx, overviewActions)
	if err != nil {
		return nil, err
	}
	appeals, err := s.appeals.ListUnresolved(ctx, overviewAppeals)
	if err != nil {
		return nil, err
	}
	return &model.Overview{PendingReports: reports, RecentActions: actions, PendingAppeals: appeals}, nil
}
