package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/moderation/service"
)

// ReportHandler serves report submission and moderator report handling.
type ReportHandler struct {
	svc    *service.ReportService
	logger *zap.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(svc *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: logger}
}

// Register mounts the routes. user requires a signed-in user; admin requires
// a moderator.
func (h *ReportHandler) Register(user, admin *gin.RouterGroup) {
	user.POST("/reports", h.CreateReport)

	admin.GET("/reports", h.ListReports)
	admin.GET("/reports/:id", h.GetReport)
	admin.POST("/reports/:id/review", h.StartReview)
	admin.PATCH("/reports/:id", h.ResolveReport)
}

// CreateReport handles POST /reports.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req model.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, err := model.NewTargetRef(req.TargetType, req.TargetID)
	if err != nil {
		respondError(c, h.logger, "create report", err)
		return
	}

	rpt, err := h.svc.Create(c.Request.Context(), userID, target, req.Reason, req.Description)
	if err != nil {
		respondError(c, h.logger, "create report", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": rpt})
}

// ListReports handles GET /admin/reports?status=pending,under_review.
func (h *ReportHandler) ListReports(c *gin.Context) {
	statuses, err := statusList(c.Query("status"), model.ParseReportStatus)
	if err != nil {
		respondError(c, h.logger, "list reports", err)
		return
	}
	limit, offset := pageParams(c)

	reports, err := h.svc.List(c.Request.Context(), model.ReportFilter{Statuses: statuses, Limit: limit, Offset: offset})
	if err != nil {
		respondError(c, h.logger, "list reports", err)
		return
	}
	if reports == nil {
		reports = []*model.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// GetReport handles GET /admin/reports/:id.
func (h *ReportHandler) GetReport(c *gin.Context) {
	id, ok := pathID(c, "report")
	if !ok {
		return
	}
	rpt, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": rpt})
}

// StartReview handles POST /admin/reports/:id/review.
func (h *ReportHandler) StartReview(c *gin.Context) {
	id, ok := pathID(c, "report")
	if !ok {
		return
	}
	modID, ok := caller(c)
	if !ok {
		return
	}
	rpt, err := h.svc.StartReview(c.Request.Context(), id, modID)
	if err != nil {
		respondError(c, h.logger, "start report review", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": rpt})
}

// ResolveReport handles PATCH /admin/reports/:id.
func (h *ReportHandler) ResolveReport(c *gin.Context) {
	id, ok := pathID(c, "report")
	if !ok {
		return
	}
	modID, ok := caller(c)
	if !ok {
		return
	}
	var req model.ResolveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.Act(c.Request.Context(), id, modID, &req)
	if err != nil {
		respondError(c, h.logger, "resolve report", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
