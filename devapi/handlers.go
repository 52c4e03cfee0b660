package devapi

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/httpserver"
	"github.com/jrsteele09/go-session-client/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *users.User `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpserver.WriteMessage(w, http.StatusOK, "ok")
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !httpserver.DecodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			httpserver.WriteError(w, http.StatusBadRequest, "Email and password are required", "BAD_REQUEST")
			return
		}

		pair, user, err := s.tokens.Login(req.Email, req.Password)
		switch {
		case errors.Is(err, errors.ErrAccountDeactivated):
			httpserver.WriteError(w, http.StatusForbidden, MsgDeactivated, CodeDeactivated)
			return
		case errors.Is(err, errors.ErrInvalidCredentials):
			httpserver.WriteError(w, http.StatusUnauthorized, MsgInvalidLogin, CodeInvalidLogin)
			return
		case err != nil:
			log.Ctx(r.Context()).Error().Err(err).Msg("login failed")
			httpserver.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		log.Ctx(r.Context()).Info().Str("user_id", user.ID).Str("role", user.Role.String()).Msg("user logged in")
		httpserver.WriteJSON(w, http.StatusOK, loginResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			User:         user,
		})
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !httpserver.DecodeJSON(w, r, &req) {
			return
		}
		if req.RefreshToken == "" {
			httpserver.WriteError(w, http.StatusBadRequest, "Refresh token is required", "BAD_REQUEST")
			return
		}

		pair, err := s.tokens.Refresh(req.RefreshToken)
		switch {
		case errors.Is(err, errors.ErrRefreshTokenExpired):
			httpserver.WriteError(w, http.StatusUnauthorized, MsgRefreshExpired, CodeRefreshExpired)
			return
		case errors.Is(err, errors.ErrInvalidRefreshToken):
			httpserver.WriteError(w, http.StatusUnauthorized, MsgRefreshInvalid, CodeRefreshInvalid)
			return
		case errors.Is(err, errors.ErrAccountDeactivated):
			httpserver.WriteError(w, http.StatusForbidden, MsgDeactivated, CodeDeactivated)
			return
		case err != nil:
			log.Ctx(r.Context()).Error().Err(err).Msg("refresh failed")
			httpserver.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		httpserver.WriteJSON(w, http.StatusOK, refreshResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpserver.WriteJSON(w, http.StatusOK, userFromContext(r.Context()))
	}
}

// LogoutHandler revokes whatever the caller presents. It answers 401 when
// no valid bearer is sent, which clients treat as benign.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if r.ContentLength != 0 && !httpserver.DecodeJSON(w, r, &req) {
			return
		}

		raw := bearerToken(r)
		if raw == "" {
			s.tokens.Logout(nil, req.RefreshToken)
			httpserver.WriteError(w, http.StatusUnauthorized, MsgNoToken, CodeNoToken)
			return
		}
		_, claims, err := s.tokens.Authenticate(raw)
		if err != nil {
			s.tokens.Logout(nil, req.RefreshToken)
			httpserver.WriteError(w, http.StatusUnauthorized, MsgInvalidToken, CodeTokenInvalid)
			return
		}

		s.tokens.Logout(claims, req.RefreshToken)
		httpserver.WriteMessage(w, http.StatusOK, "Logged out")
	}
}

func (s *Server) DeactivateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.tokens.Deactivate(id); err != nil {
			if errors.Is(err, errors.ErrUserNotFound) {
				httpserver.WriteError(w, http.StatusNotFound, "Account not found", "NOT_FOUND")
				return
			}
			log.Ctx(r.Context()).Error().Err(err).Str("account_id", id).Msg("deactivation failed")
			httpserver.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		admin := userFromContext(r.Context())
		log.Ctx(r.Context()).Info().Str("account_id", id).Str("by", admin.ID).Msg("account deactivated")
		httpserver.WriteMessage(w, http.StatusOK, "Account deactivated")
	}
}
