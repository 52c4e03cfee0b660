package devapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/httpserver"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/users"
)

// Messages and codes the client keys its recovery on.
const (
	MsgNoToken         = "No token provided"
	MsgInvalidToken    = "Invalid token"
	MsgTokenExpired    = "Token expired"
	MsgDeactivated     = "Your account has been deactivated"
	MsgRefreshExpired  = "Refresh token has expired. Please login again"
	MsgRefreshInvalid  = "Invalid refresh token"
	MsgInvalidLogin    = "Invalid email or password"
	MsgAdminRequired   = "Admin access required"
	CodeNoToken        = "NO_TOKEN"
	CodeTokenInvalid   = "TOKEN_INVALID"
	CodeTokenExpired   = "TOKEN_EXPIRED"
	CodeDeactivated    = "ACCOUNT_DEACTIVATED"
	CodeRefreshExpired = "REFRESH_TOKEN_EXPIRED"
	CodeRefreshInvalid = "REFRESH_TOKEN_INVALID"
	CodeInvalidLogin   = "INVALID_CREDENTIALS"
	CodeForbidden      = "FORBIDDEN"
)

type contextKey string

const (
	contextKeyUser   contextKey = "user"
	contextKeyClaims contextKey = "claims"
)

func userFromContext(ctx context.Context) *users.User {
	u, _ := ctx.Value(contextKeyUser).(*users.User)
	return u
}

func claimsFromContext(ctx context.Context) *token.Claims {
	c, _ := ctx.Value(contextKeyClaims).(*token.Claims)
	return c
}

func bearerToken(r *http.Request) string {
	scheme, tok, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// RequireAuth validates the bearer token and puts the user and claims on the context
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httpserver.WriteError(w, http.StatusUnauthorized, MsgNoToken, CodeNoToken)
			return
		}

		user, claims, err := s.tokens.Authenticate(raw)
		switch {
		case errors.Is(err, errors.ErrTokenExpired):
			httpserver.WriteError(w, http.StatusUnauthorized, MsgTokenExpired, CodeTokenExpired)
			return
		case errors.Is(err, errors.ErrAccountDeactivated):
			httpserver.WriteError(w, http.StatusForbidden, MsgDeactivated, CodeDeactivated)
			return
		case err != nil:
			httpserver.WriteError(w, http.StatusUnauthorized, MsgInvalidToken, CodeTokenInvalid)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		ctx = context.WithValue(ctx, contextKeyClaims, claims)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if u := userFromContext(r.Context()); u == nil || !u.IsAdmin() {
			httpserver.WriteError(w, http.StatusForbidden, MsgAdminRequired, CodeForbidden)
			return
		}
		next(w, r)
	}
}
