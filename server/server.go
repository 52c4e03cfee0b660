// Package server is the server-rendered portal gateway. Every page request
// builds its own session manager over encrypted credential cookies, so no
// credentials are cached between requests or shared between users.
package server

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jrsteele09/go-session-client/apiclient"
	"github.com/jrsteele09/go-session-client/credentials/cookiestore"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/internal/httpserver"
	"github.com/jrsteele09/go-session-client/internal/metrics"
	"github.com/jrsteele09/go-session-client/refresh"
	"github.com/jrsteele09/go-session-client/transport"
)

const contentTypeHTML = "text/html; charset=utf-8"

type Server struct {
	router *httpserver.Router
	env    string
	config config.Config

	// backend is the base transport for calls to the REST backend
	backend   http.RoundTripper
	refresher refresh.Refresher
	publicAPI *apiclient.Client
	codec     *cookiestore.Codec

	metrics  *metrics.Recorder
	gatherer prometheus.Gatherer

	loginTmpl     *template.Template
	dashboardTmpl *template.Template
}

type Option func(*Server)

// WithBackendTransport sets the base RoundTripper used to reach the backend.
func WithBackendTransport(rt http.RoundTripper) Option {
	return func(s *Server) {
		s.backend = rt
	}
}

// WithRegistry registers the session metrics with reg and serves reg on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.metrics = metrics.New(reg)
		s.gatherer = reg
	}
}

func New(cfg config.Config, options ...Option) (*Server, error) {
	s := &Server{
		router: httpserver.NewRouter(cfg.GetEnv()),
		env:    cfg.GetEnv(),
		config: cfg,
		codec:  cookiestore.NewCodec(cfg.GetCookieHashKey(), cfg.GetCookieBlockKey(), cfg.GetCookieSecure()),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.gatherer == nil {
		WithRegistry(prometheus.NewRegistry())(s)
	}

	var err error
	if s.loginTmpl, err = ParseTemplate("login.html"); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse login template: %w", err)
	}
	if s.dashboardTmpl, err = ParseTemplate("dashboard.html"); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse dashboard template: %w", err)
	}

	plain := transport.NewPlainClient(s.backend, cfg.GetHTTPRetryMax())
	s.refresher = refresh.NewClient(cfg.GetAPIBaseURL(), cfg.GetRefreshPath(), plain)
	s.publicAPI = apiclient.New(cfg.GetAPIBaseURL(), plain)

	s.initRoutes()
	s.router.LogRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) HTMLMiddleware(mw ...httpserver.Middleware) []httpserver.Middleware {
	return append([]httpserver.Middleware{
		httpserver.LoggingMiddleware(s.env),
		httpserver.RecoverMiddleware,
		httpserver.FrameSecurityMiddleware,
	}, mw...)
}

func (s *Server) APIMiddleware(mw ...httpserver.Middleware) []httpserver.Middleware {
	return append([]httpserver.Middleware{
		httpserver.LoggingMiddleware(s.env),
		httpserver.RecoverMiddleware,
		httpserver.CorsMiddleware(s.config),
	}, mw...)
}
