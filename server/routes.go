package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jrsteele09/go-session-client/internal/httpserver"
)

// Route path constants. {role} is one of admin, provider or patient.
const (
	RouteLogin     = "/{role}/login"
	RouteDashboard = "/{role}/dashboard"
	RouteLogout    = "/{role}/logout"
	RouteHealth    = "/healthz"
	RouteMetrics   = "/metrics"
)

func (s *Server) initRoutes() {
	s.router.RegisterRouteFunc("GET "+RouteHealth, httpserver.ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.router.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// PORTAL PAGES
	s.router.RegisterRouteFunc("GET "+RouteLogin, httpserver.ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleware(s.RequireRole)...))
	s.router.RegisterRouteFunc("POST "+RouteLogin, httpserver.ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleware(s.RequireRole)...))
	s.router.RegisterRouteFunc("GET "+RouteDashboard, httpserver.ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleware(s.RequireRole)...))
	s.router.RegisterRouteFunc("POST "+RouteLogout, httpserver.ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleware(s.RequireRole)...))
}
