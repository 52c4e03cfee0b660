package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-session-client/apiclient"
	"github.com/jrsteele09/go-session-client/credentials/cookiestore"
	"github.com/jrsteele09/go-session-client/navigation"
	"github.com/jrsteele09/go-session-client/roles"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/transport"
)

// requestSession is the session of one page request.
type requestSession struct {
	ctx        context.Context
	store      *cookiestore.Store
	manager    *session.Manager
	api        *apiclient.Client
	redirector *navigation.HTTPRedirector
}

// RequireRole rejects paths whose {role} segment is not a portal and puts
// the role hint and current location on the context.
func (s *Server) RequireRole(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := roles.Parse(r.PathValue("role"))
		if !role.Valid() {
			http.NotFound(w, r)
			return
		}
		ctx := roles.NewContext(r.Context(), role)
		ctx = navigation.WithLocation(ctx, r.URL.Path)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*requestSession, error) {
	store := s.codec.ForRequest(w, r)
	redirector := navigation.NewHTTPRedirector(w, r)

	manager, err := session.New(store, s.refresher,
		session.WithServerRendering(),
		session.WithNavigator(redirector),
		session.WithMetrics(s.metrics),
		session.WithCacheTTL(s.config.GetCacheTTL()),
		session.WithRefreshBuffer(s.config.GetRefreshBuffer()),
	)
	if err != nil {
		return nil, err
	}

	httpClient := transport.NewClient(s.backend, manager, s.config.GetHTTPRetryMax(),
		transport.WithLoginEndpoints(s.config.GetLoginEndpoints()...),
		transport.WithBenign401(s.config.GetBenign401Endpoints()...),
		transport.WithMetrics(s.metrics),
	)

	return &requestSession{
		ctx:        r.Context(),
		store:      store,
		manager:    manager,
		api:        apiclient.New(s.config.GetAPIBaseURL(), httpClient),
		redirector: redirector,
	}, nil
}

// redirected reports whether the session already answered the request with a
// redirect to a login page.
func (rs *requestSession) redirected() bool {
	_, ok := rs.redirector.Redirected()
	return ok
}
