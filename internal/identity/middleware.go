package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxUserClaims = "clay_user_claims"

// RequireUser returns a Gin middleware that enforces a valid user session
// Bearer token and injects its claims into the context.
func RequireUser(tokens *UserTokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := authenticate(c, tokens); claims != nil {
			c.Set(ctxUserClaims, claims)
			c.Next()
		}
	}
}

// RequireModerator is RequireUser restricted to moderator and admin roles.
func RequireModerator(tokens *UserTokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := authenticate(c, tokens)
		if claims == nil {
			return
		}
		if !claims.IsModerator() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "moderator role required",
			})
			return
		}
		c.Set(ctxUserClaims, claims)
		c.Next()
	}
}

// ClaimsFromCtx retrieves the claims injected by RequireUser or
// RequireModerator. Returns nil if none are present.
func ClaimsFromCtx(c *gin.Context) *UserTokenClaims {
	v, _ := c.Get(ctxUserClaims)
	claims, _ := v.(*UserTokenClaims)
	return claims
}

// authenticate verifies the Bearer token, aborting with 401 on failure.
func authenticate(c *gin.Context, tokens *UserTokenIssuer) *UserTokenClaims {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Bearer user token required",
		})
		return nil
	}
	claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid user token: " + err.Error(),
		})
		return nil
	}
	return claims
}
