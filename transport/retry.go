package transport

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const (
	retryInitialInterval = 100 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
)

// Retry resends requests that failed without a response (connection refused,
// reset, DNS) up to maxRetries times with exponential backoff. HTTP statuses
// are never retried here, and requests whose body cannot be rebuilt are sent once.
func Retry(maxRetries int) Constructor {
	return func(next http.RoundTripper) http.RoundTripper {
		if maxRetries <= 0 {
			return next
		}
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !replayable(req) {
				return next.RoundTrip(req)
			}

			ctx := req.Context()
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = retryInitialInterval
			b.MaxInterval = retryMaxInterval

			var (
				resp    *http.Response
				attempt int
			)
			err := backoff.RetryNotify(
				func() error {
					r := req
					if attempt > 0 {
						var err error
						if r, err = replay(req); err != nil {
							return backoff.Permanent(err)
						}
					}
					attempt++

					var err error
					resp, err = next.RoundTrip(r)
					if err != nil && ctx.Err() != nil {
						return backoff.Permanent(err)
					}
					return err
				},
				backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx),
				func(err error, wait time.Duration) {
					log.Ctx(ctx).Warn().Err(err).
						Str("method", req.Method).
						Str("url", req.URL.Redacted()).
						Dur("next", wait).
						Msg("request failed, retrying")
				},
			)
			if err != nil {
				return nil, err
			}
			return resp, nil
		})
	}
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}
