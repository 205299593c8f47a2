package client

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the access token claims issued by the auth service
type Claims struct {
	Role   string   `json:"role"`
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// Email returns the subject, which the auth service sets to the user's email
func (c *Claims) Email() string {
	return c.Subject
}

// HasScope reports whether scope was granted
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ParseAccessToken decodes the claims of an access token without verifying
// its signature. The auth service verifies tokens; the client only reads them.
func ParseAccessToken(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &claims, nil
}
