// Package navigation decides where an ended session goes and performs the move,
// either as a server-side HTTP redirect or as a client-side hard navigation.
package navigation

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-client/roles"
)

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(ctx context.Context, to string) error
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(ctx context.Context, to string) error

func (f NavigatorFunc) Navigate(ctx context.Context, to string) error {
	return f(ctx, to)
}

// Discard never navigates. Used where no page exists (background jobs, tests).
var Discard Navigator = NavigatorFunc(func(context.Context, string) error { return nil })

type locationKey struct{}

// WithLocation records the page the request originates from. Set at the router boundary.
func WithLocation(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, locationKey{}, path)
}

// Location returns the originating page path, or "".
func Location(ctx context.Context) string {
	p, _ := ctx.Value(locationKey{}).(string)
	return p
}

// LoginRedirect returns the login route for role, and false when current is
// already that route (redirect loop prevention).
func LoginRedirect(role roles.Role, current string) (string, bool) {
	dest := role.LoginRoute()
	if current != "" && strings.TrimSuffix(current, "/") == dest {
		return dest, false
	}
	return dest, true
}

// ToLogin sends the user to role's login page unless they are already there.
// It reports whether a navigation happened.
func ToLogin(ctx context.Context, nav Navigator, role roles.Role) (bool, error) {
	dest, ok := LoginRedirect(role, Location(ctx))
	if !ok {
		log.Ctx(ctx).Debug().Str("role", role.String()).Msg("already on login page, not redirecting")
		return false, nil
	}
	if nav == nil {
		return false, nil
	}
	if err := nav.Navigate(ctx, dest); err != nil {
		return false, err
	}
	return true, nil
}

// HardNavigator performs a full client-side navigation through open, resolving
// routes against baseURL. Nothing held in memory is trusted afterwards.
type HardNavigator struct {
	baseURL *url.URL
	open    func(string) error
}

func NewHardNavigator(baseURL string, open func(string) error) (*HardNavigator, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &HardNavigator{baseURL: u, open: open}, nil
}

func (n *HardNavigator) Navigate(_ context.Context, to string) error {
	target := n.baseURL.ResolveReference(&url.URL{Path: to})
	return n.open(target.String())
}

// HTTPRedirector redirects the in-flight server-rendered response. Only the
// first navigation is written; headers can be sent once.
type HTTPRedirector struct {
	w    http.ResponseWriter
	r    *http.Request
	once sync.Once

	mu     sync.Mutex
	target string
}

func NewHTTPRedirector(w http.ResponseWriter, r *http.Request) *HTTPRedirector {
	return &HTTPRedirector{w: w, r: r}
}

func (h *HTTPRedirector) Navigate(_ context.Context, to string) error {
	h.once.Do(func() {
		h.mu.Lock()
		h.target = to
		h.mu.Unlock()
		http.Redirect(h.w, h.r, to, http.StatusSeeOther)
	})
	return nil
}

// Redirected returns the redirect target, if a redirect was written.
func (h *HTTPRedirector) Redirected() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.target, h.target != ""
}
