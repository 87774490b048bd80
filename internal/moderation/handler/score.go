package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/moderation/service"
	"github.com/andmorefine/clay-community-site/internal/spam"
	"github.com/andmorefine/clay-community-site/internal/users"
)

type userGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// ScoreHandler lets moderators dry-run the spam scorers.
type ScoreHandler struct {
	engine *service.DecisionEngine
	users  userGetter
	logger *zap.Logger
}

// NewScoreHandler creates a ScoreHandler.
func NewScoreHandler(engine *service.DecisionEngine, users userGetter, logger *zap.Logger) *ScoreHandler {
	return &ScoreHandler{engine: engine, users: users, logger: logger}
}

// Register mounts the routes on mod, which must require a moderator.
func (h *ScoreHandler) Register(mod *gin.RouterGroup) {
	mod.POST("/moderation/score", h.Score)
}

type scoreRequest struct {
	Text   string     `json:"text"`
	UserID *uuid.UUID `json:"user_id"`
}

// Score handles POST /moderation/score. Without user_id only the content
// scorer runs. With one, the full verdict is computed for that user. Scoring
// here never files a report or counts toward verdict metrics.
func (h *ScoreHandler) Score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == nil {
		c.JSON(http.StatusOK, gin.H{"content": h.engine.ScoreText(req.Text)})
		return
	}

	ctx := c.Request.Context()
	u, err := h.users.GetByID(ctx, *req.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		respondError(c, h.logger, "load user", err)
		return
	}
	c.JSON(http.StatusOK, h.engine.Evaluate(ctx, spam.Text(req.Text), u))
}
