package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/roles"
)

// Claims are the access token claims the session client cares about.
type Claims struct {
	jwt.RegisteredClaims
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Email string   `json:"email,omitempty"`
}

// PortalRole returns the role claim, falling back to the first entry of "roles".
func (c *Claims) PortalRole() roles.Role {
	if c == nil {
		return roles.Unknown
	}
	if r := roles.Parse(c.Role); r != roles.Unknown {
		return r
	}
	for _, r := range c.Roles {
		if role := roles.Parse(r); role != roles.Unknown {
			return role
		}
	}
	return roles.Unknown
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// DecodeUnverified parses the payload of a JWT WITHOUT checking its signature.
//
// Trust boundary: the result is only good for scheduling (expiry) and routing
// (role) decisions on the client. Signature verification is the backend's job.
// Malformed input returns ErrMalformedToken and never panics.
func DecodeUnverified(raw string) (claims *Claims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, errors.ErrMalformedToken
		}
	}()

	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, errors.ErrMalformedToken
	}

	claims = &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedToken, "%s", err.Error())
	}
	return claims, nil
}

// IsExpiredOrExpiring is true if the token cannot be decoded, carries no exp,
// or expires within buffer of now.
func IsExpiredOrExpiring(raw string, buffer time.Duration, now time.Time) bool {
	claims, err := DecodeUnverified(raw)
	if err != nil {
		return true
	}
	exp := claims.Expiry()
	if exp.IsZero() {
		return true
	}
	return exp.Sub(now) <= buffer
}

// IsExpired is IsExpiredOrExpiring with no buffer.
func IsExpired(raw string, now time.Time) bool {
	return IsExpiredOrExpiring(raw, 0, now)
}
