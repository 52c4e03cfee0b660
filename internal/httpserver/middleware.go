package httpserver

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-client/internal/config"
)

type Middleware func(http.HandlerFunc) http.HandlerFunc

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...Middleware) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// LoggingMiddleware logs each request, in colour when env is DEV. It also
// puts the request-scoped logger on the context for log.Ctx.
func LoggingMiddleware(env string) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := log.With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", r.Header.Get("X-Request-Id")).
				Logger()
			r = r.WithContext(logger.WithContext(r.Context()))

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next(rec, r)

			if env == "DEV" {
				logger.Info().Msgf("[%-19s] %s %s%d%s %s", colourMethod(r.Method), r.URL.Path,
					colourStatus(rec.status), rec.status, ResetColor, time.Since(start))
				return
			}
			logger.Info().Int("status", rec.status).Dur("took", time.Since(start)).Msg("request")
		}
	}
}

func RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")
				WriteError(w, http.StatusInternalServerError, "Internal server error", "")
			}
		}()
		next(w, r)
	}
}

func FrameSecurityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Prevent embedding on other sites
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'")
		next(w, r)
	}
}

// CorsMiddleware applies the configured CORS policy. Credentials are allowed
// for listed origins; a "*" entry allows any origin without credentials.
func CorsMiddleware(cfg config.CorsConfig) Middleware {
	origins := cfg.GetAllowedOrigins()
	c := cors.New(cors.Options{
		AllowedOrigins:   origins.List(),
		AllowedMethods:   append(cfg.GetAllowedMethods(), http.MethodOptions),
		AllowedHeaders:   cfg.GetAllowedHeaders(),
		AllowCredentials: !origins.IsAllowedOrigin("*"),
		MaxAge:           86400,
	})
	return func(next http.HandlerFunc) http.HandlerFunc {
		return c.Handler(next).ServeHTTP
	}
}
