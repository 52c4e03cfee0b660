package transport

import (
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

// NewClient returns the authenticated client stack:
// RequestID -> Interceptor -> Retry -> base.
func NewClient(base http.RoundTripper, auth Authenticator, maxRetries int, options ...InterceptorOption) *http.Client {
	return &http.Client{
		Transport: NewChain(RequestID, Auth(auth, options...), Retry(maxRetries)).Then(base),
		Timeout:   DefaultTimeout,
	}
}

// NewPlainClient is NewClient without authentication, for the refresh and
// login endpoints.
func NewPlainClient(base http.RoundTripper, maxRetries int) *http.Client {
	return &http.Client{
		Transport: NewChain(RequestID, Retry(maxRetries)).Then(base),
		Timeout:   DefaultTimeout,
	}
}
