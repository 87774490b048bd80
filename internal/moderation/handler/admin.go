package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/auditlog"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/moderation/service"
	"github.com/andmorefine/clay-community-site/internal/users"
)

type userDirectory interface {
	List(ctx context.Context, f users.ListFilter) ([]*users.User, error)
}

// AdminHandler serves the moderator dashboard, direct user sanctions and the
// audit ledger.
type AdminHandler struct {
	overview *service.OverviewService
	actions  *service.ActionService
	reports  *service.ReportService
	users    userDirectory
	ledger   auditlog.Log // nil = audit endpoints disabled
	logger   *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(overview *service.OverviewService, actions *service.ActionService, reports *service.ReportService, dir userDirectory, ledger auditlog.Log, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{overview: overview, actions: actions, reports: reports, users: dir, ledger: ledger, logger: logger}
}

// Register mounts the routes on admin, which must require a moderator.
func (h *AdminHandler) Register(admin *gin.RouterGroup) {
	admin.GET("/overview", h.Overview)
	admin.GET("/actions/:id", h.GetAction)
	admin.GET("/users", h.ListUsers)
	admin.GET("/users/:id/actions", h.ListUserActions)
	admin.POST("/users/:id/suspend", h.Suspend)
	admin.POST("/users/:id/unsuspend", h.Unsuspend)
	admin.POST("/users/:id/warn", h.Warn)
	if h.ledger != nil {
		admin.GET("/audit", h.RecentAudit)
		admin.GET("/audit/verify", h.VerifyAudit)
	}
}

// Overview handles GET /admin/overview.
func (h *AdminHandler) Overview(c *gin.Context) {
	ov, err := h.overview.Overview(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "load overview", err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

// GetAction handles GET /admin/actions/:id.
func (h *AdminHandler) GetAction(c *gin.Context) {
	id, ok := pathID(c, "action")
	if !ok {
		return
	}
	a, err := h.actions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get action", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": a})
}

// ListUsers handles GET /admin/users?filter=suspended|warned.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	f, err := users.ParseListFilter(c.Query("filter"))
	if err != nil {
		respondError(c, h.logger, "list users", err)
		return
	}
	f.Limit, f.Offset = pageParams(c)

	list, err := h.users.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.logger, "list users", err)
		return
	}
	if list == nil {
		list = []*users.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": list, "count": len(list)})
}

// ListUserActions handles GET /admin/users/:id/actions?type=. The response
// also carries the reports filed against the user's profile.
func (h *AdminHandler) ListUserActions(c *gin.Context) {
	userID, ok := pathID(c, "user")
	if !ok {
		return
	}
	types, err := statusList(c.Query("type"), model.ParseActionType)
	if err != nil {
		respondError(c, h.logger, "list actions", err)
		return
	}
	limit, offset := pageParams(c)
	ctx := c.Request.Context()

	actions, err := h.actions.List(ctx, model.ActionFilter{SubjectID: &userID, Types: types, Limit: limit, Offset: offset})
	if err != nil {
		respondError(c, h.logger, "list actions", err)
		return
	}
	reports, err := h.reports.List(ctx, model.ReportFilter{
		Target: &model.TargetRef{Kind: model.TargetUser, ID: userID},
		Limit:  limit,
	})
	if err != nil {
		respondError(c, h.logger, "list user reports", err)
		return
	}
	if actions == nil {
		actions = []*model.ModerationAction{}
	}
	if reports == nil {
		reports = []*model.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions, "reports": reports, "count": len(actions)})
}

// Suspend handles POST /admin/users/:id/suspend.
func (h *AdminHandler) Suspend(c *gin.Context) {
	userID, ok := pathID(c, "user")
	if !ok {
		return
	}
	modID, ok := caller(c)
	if !ok {
		return
	}
	var req model.SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.actions.Suspend(c.Request.Context(), userID, req.Duration, req.Reason, modID)
	if err != nil {
		respondError(c, h.logger, "suspend user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": a, "message": "User suspended"})
}

// Unsuspend handles POST /admin/users/:id/unsuspend.
func (h *AdminHandler) Unsuspend(c *gin.Context) {
	userID, ok := pathID(c, "user")
	if !ok {
		return
	}
	modID, ok := caller(c)
	if !ok {
		return
	}
	a, err := h.actions.Unsuspend(c.Request.Context(), userID, modID)
	if err != nil {
		respondError(c, h.logger, "unsuspend user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": a, "message": "Suspension lifted"})
}

// Warn handles POST /admin/users/:id/warn.
func (h *AdminHandler) Warn(c *gin.Context) {
	userID, ok := pathID(c, "user")
	if !ok {
		return
	}
	modID, ok := caller(c)
	if !ok {
		return
	}
	var req model.WarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.actions.Warn(c.Request.Context(), userID, req.Reason, modID)
	if err != nil {
		respondError(c, h.logger, "warn user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": a, "message": "User warned"})
}

// RecentAudit handles GET /admin/audit.
func (h *AdminHandler) RecentAudit(c *gin.Context) {
	limit, _ := pageParams(c)
	entries, err := h.ledger.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, "read audit log", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// VerifyAudit handles GET /admin/audit/verify.
func (h *AdminHandler) VerifyAudit(c *gin.Context) {
	ctx := c.Request.Context()
	n, err := h.ledger.Len(ctx)
	if err != nil {
		respondError(c, h.logger, "read audit log", err)
		return
	}
	if err := h.ledger.Verify(ctx); err != nil {
		h.logger.Warn("audit chain verification failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"valid": false, "entries": n, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "entries": n})
}
