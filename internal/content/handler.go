package content

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/identity"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

type postSvc interface {
	CreatePost(ctx context.Context, userID uuid.UUID, title, description string) (*Post, error)
	CreateComment(ctx context.Context, userID, postID uuid.UUID, body string) (*Comment, error)
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
}

// Handler serves the post and comment create routes.
type Handler struct {
	svc    postSvc
	logger *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc postSvc, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts routes on rg. authed must already require a user token.
func (h *Handler) Register(rg *gin.RouterGroup, authed *gin.RouterGroup) {
	rg.GET("/posts/:id", h.GetPost)
	authed.POST("/posts", h.CreatePost)
	authed.POST("/posts/:id/comments", h.CreateComment)
}

type createPostRequest struct {
	Title       string `json:"title"       binding:"required"`
	Description string `json:"description" binding:"required"`
}

type createCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// CreatePost handles POST /posts.
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid, ok := callerID(c)
	if !ok {
		return
	}
	p, err := h.svc.CreatePost(c.Request.Context(), uid, req.Title, req.Description)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// CreateComment handles POST /posts/:id/comments.
func (h *Handler) CreateComment(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post ID"})
		return
	}
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid, ok := callerID(c)
	if !ok {
		return
	}
	cm, err := h.svc.CreateComment(c.Request.Context(), uid, postID, req.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

// GetPost handles GET /posts/:id. Unpublished posts are hidden.
func (h *Handler) GetPost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post ID"})
		return
	}
	p, err := h.svc.GetPost(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !p.Published {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) fail(c *gin.Context, err error) {
	var ve *model.ErrValidation
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Msg})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("content request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	claims := identity.ClaimsFromCtx(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return uuid.Nil, false
	}
	uid, err := claims.UserUUID()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID in token"})
		return uuid.Nil, false
	}
	return uid, true
}
