package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const RequestIDHeader = "X-Request-Id"

// RequestID tags outgoing requests with an id, keeping one already set, and
// logs each exchange at debug level.
func RequestID(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		id := req.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			req = req.Clone(req.Context())
			req.Header.Set(RequestIDHeader, id)
		}

		start := time.Now()
		resp, err := next.RoundTrip(req)

		evt := log.Ctx(req.Context()).Debug().
			Str("request_id", id).
			Str("method", req.Method).
			Str("url", req.URL.Redacted()).
			Dur("took", time.Since(start))
		if err != nil {
			evt.Err(err).Msg("backend request failed")
			return nil, err
		}
		evt.Int("status", resp.StatusCode).Msg("backend request")
		return resp, nil
	})
}
