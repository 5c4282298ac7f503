package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload for access tokens. The registered ID
// claim (jti) keys the revocation denylist.
type JWTClaims struct {
	PrincipalID int64 `json:"principal_id"`
	Role        Role  `json:"role"`
	jwt.RegisteredClaims
}

// TokenID returns the jti claim.
func (c *JWTClaims) TokenID() string {
	if c == nil {
		return ""
	}
	return c.ID
}

// Remaining returns how long the token stays valid after now.
func (c *JWTClaims) Remaining(now time.Time) time.Duration {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// LoginResult returns the issued token and principal info.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Role        Role      `json:"role"`
	PrincipalID int64     `json:"principal_id"`
	DisplayName string    `json:"display_name,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
}
