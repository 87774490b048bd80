package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/moderation/service"
)

// AppealHandler serves appeal submission and moderator appeal decisions.
type AppealHandler struct {
	svc    *service.AppealService
	logger *zap.Logger
}

// NewAppealHandler creates an AppealHandler.
func NewAppealHandler(svc *service.AppealService, logger *zap.Logger) *AppealHandler {
	return &AppealHandler{svc: svc, logger: logger}
}

// Register mounts the routes. user requires a signed-in user; admin requires
// a moderator.
func (h *AppealHandler) Register(user, admin *gin.RouterGroup) {
	user.POST("/appeals", h.CreateAppeal)
	user.GET("/appeals", h.ListMyAppeals)
	user.GET("/appeals/:id", h.GetAppeal)

	admin.GET("/appeals", h.ListAppeals)
	admin.POST("/appeals/:id/review", h.StartReview)
	admin.PATCH("/appeals/:id", h.ResolveAppeal)
}

// CreateAppeal handles POST /appeals.
func (h *AppealHandler) CreateAppeal(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req model.CreateAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.svc.Create(c.Request.Context(), userID, req.ModerationActionID, req.Reason)
	if err != nil {
		respondError(c, h.logger, "create appeal", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"appeal": a})
}

// ListMyAppeals handles GET /appeals.
func (h *AppealHandler) ListMyAppeals(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	appeals, err := h.svc.ListByAppellant(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, h.logger, "list appeals", err)
		return
	}
	if appeals == nil {
		appeals = []*model.Appeal{}
	}
	c.JSON(http.StatusOK, gin.H{"appeals": appeals, "count": len(appeals)})
}

// GetAppeal handles GET /appeals/:id for the appellant or a moderator.
func (h *AppealHandler) GetAppeal(c *gin.Context) {
	id, ok := pathID(c, "appeal")
	if !ok {
		return
	}
	viewer, ok := caller(c)
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), id, viewer)
	if err != nil {
		respondError(c, h.logger, "get appeal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appeal": a})
}

// ListAppeals handles GET /admin/appeals?status=.
func (h *AppealHandler) ListAppeals(c *gin.Context) {
	statuses, err := statusList(c.Query("status"), model.ParseAppealStatus)
	if err != nil {
		respondError(c, h.logger, "list appeals", err)
		return
	}
	limit, offset := pageParams(c)
	appeals, err := h.svc.List(c.Request.Context(), model.AppealFilter{Statuses: statuses, Limit: limit, Offset: offset})
	if err != nil {
		respondError(c, h.logger, "list appeals", err)
		return
	}
	if appeals == nil {
		appeals = []*model.Appeal{}
	}
	c.JSON(http.StatusOK, gin.H{"appeals": appeals, "count": len(appeals)})
}

// StartReview handles POST /admin/appeals/:id/review.
func (h *AppealHandler) StartReview(c *gin.Context) {
	id, ok := pathID(c, "appeal")
	if !ok {
		return
	}
	modID, ok := caller(c)
	if !ok {
		return
	}
	a, err := h.svc.StartReview(c.Request.Context(), id, modID)
	if err != nil {
		respondError(c, h.logger, "start appeal review", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appeal": a})
}

// ResolveAppeal handles PATCH /admin/appeals/:id.
func (h *AppealHandler) ResolveAppeal(c *gin.Context) {
	id, ok := pathID(c, "appeal")
	if !ok {
		return
	}
	modID, ok := caller(c)
	if !ok {
		return
	}
	var req model.ResolveAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	decision, err := model.ParseAppealDecision(req.Decision)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid decision"})
		return
	}

	res, err := h.svc.Resolve(c.Request.Context(), id, modID, decision)
	if err != nil {
		respondError(c, h.logger, "resolve appeal", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
