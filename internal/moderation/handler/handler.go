// Package handler exposes the moderation services over HTTP with Gin.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/identity"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// statusFor maps a moderation error outcome to an HTTP status.
var statusFor = map[model.Outcome]int{
	model.OutcomeNotFound:   http.StatusNotFound,
	model.OutcomeValidation: http.StatusUnprocessableEntity,
	model.OutcomeBadRequest: http.StatusBadRequest,
	model.OutcomeForbidden:  http.StatusForbidden,
	model.OutcomeConflict:   http.StatusConflict,
}

// respondError writes err as JSON. Unclassified errors are logged and hidden
// behind a generic message.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	if code, ok := statusFor[model.Classify(err)]; ok {
		var ve *model.ErrValidation
		msg := err.Error()
		if errors.As(err, &ve) {
			msg = ve.Msg
		}
		c.JSON(code, gin.H{"error": msg})
		return
	}
	logger.Error(op, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + op})
}

// caller returns the authenticated user's ID, writing 401/400 when absent.
func caller(c *gin.Context) (uuid.UUID, bool) {
	claims := identity.ClaimsFromCtx(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user authentication required"})
		return uuid.Nil, false
	}
	id, err := claims.UserUUID()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return uuid.Nil, false
	}
	return id, true
}

func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// statusList parses a comma-separated ?status= filter.
func statusList[S ~string](raw string, parse func(string) (S, error)) ([]S, error) {
	if raw == "" {
		return nil, nil
	}
	var out []S
	for _, part := range strings.Split(raw, ",") {
		s, err := parse(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
