package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// accountSvc is the interface expected by Handler, satisfied by *UserService.
type accountSvc interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

// tokenIssuer is satisfied by *identity.UserTokenIssuer.
type tokenIssuer interface {
	Issue(userID, username, role string) (string, error)
}

// Handler serves signup and login.
type Handler struct {
	svc    accountSvc
	tokens tokenIssuer
	logger *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc accountSvc, tokens tokenIssuer, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the account routes on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/users", h.Signup)
	rg.POST("/auth/login", h.Login)
}

type signupRequest struct {
	Email    string `json:"email"    binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Bio      string `json:"bio"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /users.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.svc.Register(c.Request.Context(), RegisterInput{
		Email: req.Email, Username: req.Username, Password: req.Password, Bio: req.Bio,
	})
	if err != nil {
		var ve *model.ErrValidation
		switch {
		case errors.As(err, &ve):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Msg})
		case errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrDuplicateUsername):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("signup", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		}
		return
	}

	h.respondWithToken(c, http.StatusCreated, u)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrSuspended):
			c.JSON(http.StatusForbidden, gin.H{"error": "account suspended"})
		case errors.Is(err, ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		default:
			h.logger.Error("login", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	h.respondWithToken(c, http.StatusOK, u)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, u *User) {
	tok, err := h.tokens.Issue(u.ID.String(), u.Username, string(u.Role))
	if err != nil {
		h.logger.Error("issue user token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(status, gin.H{"user": u, "token": tok})
}
