// Package httpserver holds the routing, middleware and JSON response helpers
// shared by the gateway and the development backend.
package httpserver

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type Router struct {
	env    string
	mux    *http.ServeMux
	routes []string
}

func NewRouter(env string) *Router {
	return &Router{
		env: env,
		mux: http.NewServeMux(),
	}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

func (rt *Router) RegisterRouteHandler(pattern string, handler http.Handler) {
	rt.routes = append(rt.routes, pattern)
	rt.mux.Handle(pattern, handler)
}

func (rt *Router) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	rt.routes = append(rt.routes, pattern)
	rt.mux.HandleFunc(pattern, handler)
}

// Routes returns the registered patterns in registration order.
func (rt *Router) Routes() []string {
	return append([]string(nil), rt.routes...)
}

// LogRoutes prints the route table in development.
func (rt *Router) LogRoutes() {
	if rt.env != "DEV" {
		return
	}
	for _, route := range rt.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
	}
}
