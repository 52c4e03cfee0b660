// Package devapi is a local stand-in for the telehealth REST backend. It
// issues real HS256 tokens and answers with the backend's status codes and
// messages so the session client can be exercised end to end.
package devapi

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/internal/httpserver"
	"github.com/jrsteele09/go-session-client/token"
	"github.com/jrsteele09/go-session-client/users"
)

// Route paths served by the backend.
const (
	RouteAuthLogin   = "/auth/login"
	RouteAuthRefresh = "/auth/refresh-token"
	RouteAuthMe      = "/auth/me"
	RouteAuthLogout  = "/auth/logout"
	RouteDeactivate  = "/admin/accounts/{id}/deactivate"
	RouteHealth      = "/healthz"
)

type Server struct {
	router *httpserver.Router
	env    string
	tokens *token.Manager
	users  users.UserRepo
	cors   config.CorsConfig

	pruneEvery time.Duration
}

func New(cfg config.Config, tokens *token.Manager, userRepo users.UserRepo) *Server {
	s := &Server{
		router: httpserver.NewRouter(cfg.GetEnv()),
		env:    cfg.GetEnv(),
		tokens: tokens,
		users:  userRepo,
		cors:   cfg,

		pruneEvery: cfg.GetDevAPIRevocationPruneInterval(),
	}
	s.initRoutes()
	s.router.LogRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run does the backend's background housekeeping until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.tokens.RunRevocationPruner(ctx, s.pruneEvery)
}

func (s *Server) APIMiddleware(mw ...httpserver.Middleware) []httpserver.Middleware {
	return append([]httpserver.Middleware{
		httpserver.LoggingMiddleware(s.env),
		httpserver.RecoverMiddleware,
		httpserver.CorsMiddleware(s.cors),
	}, mw...)
}

func (s *Server) initRoutes() {
	s.router.RegisterRouteFunc("GET "+RouteHealth, httpserver.ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	s.router.RegisterRouteFunc("POST "+RouteAuthLogin, httpserver.ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.router.RegisterRouteFunc("POST "+RouteAuthRefresh, httpserver.ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.router.RegisterRouteFunc("POST "+RouteAuthLogout, httpserver.ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	s.router.RegisterRouteFunc("GET "+RouteAuthMe, httpserver.ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.router.RegisterRouteFunc("POST "+RouteDeactivate, httpserver.ChainMiddleware(s.DeactivateHandler(), s.APIMiddleware(s.RequireAuth, s.RequireAdmin)...))
}
