// Package identity issues and verifies user session tokens and provides the
// Gin middleware that authenticates requests with them.
//
//   - UserTokenIssuer   HS256 session JWTs carrying the user's role
//   - RequireUser       Gin middleware enforcing a valid Bearer session token
//   - RequireModerator  RequireUser plus a moderator or admin role
package identity
