package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in the role claim.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// UserTokenClaims are the JWT claims for a user session token.
type UserTokenClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsModerator reports whether the role may act on reports and appeals.
func (c *UserTokenClaims) IsModerator() bool {
	return c.Role == RoleModerator || c.Role == RoleAdmin
}

// UserUUID parses the user_id claim.
func (c *UserTokenClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// UserTokenIssuer issues and verifies user session JWTs signed with a shared
// HMAC secret.
type UserTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewUserTokenIssuer creates a UserTokenIssuer.
//
//	secret  HMAC key; must be non-empty.
//	issuer  the "iss" claim value.
//	ttl     token lifetime (default: 24 hours).
func NewUserTokenIssuer(secret, issuer string, ttl time.Duration) (*UserTokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("identity: token secret is required")
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &UserTokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue creates a signed session token for the user.
func (u *UserTokenIssuer) Issue(userID, username, role string) (string, error) {
	now := u.now()
	claims := UserTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    u.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.ttl)),
			ID:        uuid.New().String(),
		},
		UserID:   userID,
		Username: username,
		Role:     role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.secret)
	if err != nil {
		return "", fmt.Errorf("sign user token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
func (u *UserTokenIssuer) Verify(tokenStr string) (*UserTokenClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&UserTokenClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return u.secret, nil
		},
		jwt.WithIssuer(u.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(u.now),
	)
	if err != nil {
		return nil, fmt.Errorf("verify user token: %w", err)
	}
	claims, ok := token.Claims.(*UserTokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid user token claims")
	}
	if _, err := claims.UserUUID(); err != nil {
		return nil, errors.New("user token has no valid user_id")
	}
	return claims, nil
}
