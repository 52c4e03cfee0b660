package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/metrics"
	"github.com/jrsteele09/go-session-client/internal/payload"
)

const maxInspectBytes = 1 << 20

// Backend wording for a request that carried no usable token at all.
// Expired tokens are not listed: those are recovered by refreshing.
var (
	TokenInvalidMessages = []string{
		"No token provided",
		"Invalid token",
		"Token is invalid",
		"Token missing",
		"Malformed token",
		"jwt malformed",
		"invalid signature",
	}
	TokenInvalidCodes = []string{"TOKEN_INVALID", "INVALID_TOKEN", "TOKEN_MISSING", "NO_TOKEN"}

	DeactivationWords = []string{"deactivated", "suspended"}
	DeactivationCodes = []string{"ACCOUNT_DEACTIVATED", "ACCOUNT_SUSPENDED"}
)

var (
	DefaultLoginEndpoints = []string{"/auth/login"}
	DefaultBenign401      = []string{"/auth/logout", "/auth/verify-otp"}
)

// Session end reasons, as reported to the Authenticator and in metrics.
const (
	ReasonTokenInvalid       = "token_invalid"
	ReasonAccountDeactivated = "account_deactivated"
)

// Authenticator is the part of session.Manager the interceptor needs.
type Authenticator interface {
	GetCachedAuth(ctx context.Context) (credentials.Credentials, error)
	RefreshAfter(ctx context.Context, stale string) (string, error)
	EndSession(ctx context.Context, accessToken, reason string) error
}

// Interceptor attaches the session's bearer token and recovers from auth
// failures: a 401 triggers one refresh and one resend, a deactivation 403 or
// an invalid-token 401 ends the session.
type Interceptor struct {
	next           http.RoundTripper
	auth           Authenticator
	loginEndpoints []string
	benign401      []string
	metrics        *metrics.Recorder
}

type InterceptorOption func(*Interceptor)

// WithLoginEndpoints sets the paths whose 401/403 mean bad credentials, not
// a stale session. Matched as path suffixes.
func WithLoginEndpoints(paths ...string) InterceptorOption {
	return func(i *Interceptor) {
		i.loginEndpoints = paths
	}
}

// WithBenign401 sets paths expected to 401 without meaning anything.
func WithBenign401(paths ...string) InterceptorOption {
	return func(i *Interceptor) {
		i.benign401 = paths
	}
}

func WithMetrics(r *metrics.Recorder) InterceptorOption {
	return func(i *Interceptor) {
		i.metrics = r
	}
}

func NewInterceptor(next http.RoundTripper, auth Authenticator, options ...InterceptorOption) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	i := &Interceptor{
		next:           next,
		auth:           auth,
		loginEndpoints: DefaultLoginEndpoints,
		benign401:      DefaultBenign401,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Auth is the Chain constructor for an Interceptor.
func Auth(auth Authenticator, options ...InterceptorOption) Constructor {
	return func(next http.RoundTripper) http.RoundTripper {
		return NewInterceptor(next, auth, options...)
	}
}

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	return i.send(req, "")
}

// send issues req with bearer, or with the session's current token when bearer is empty.
func (i *Interceptor) send(req *http.Request, bearer string) (*http.Response, error) {
	ctx := req.Context()
	out := req.Clone(ctx)

	if SkipAuth(ctx) {
		return i.next.RoundTrip(out)
	}

	if bearer == "" {
		// A terminal error here means the session has already been ended
		// and navigated; the request is not sent.
		creds, err := i.auth.GetCachedAuth(ctx)
		if err != nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, err
		}
		bearer = creds.AccessToken
	}
	if bearer != "" {
		out.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := i.next.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusForbidden:
		i.forbidden(ctx, out, resp, bearer)
		return resp, nil
	case http.StatusUnauthorized:
		return i.unauthorized(ctx, req, resp, bearer)
	default:
		return resp, nil
	}
}

func (i *Interceptor) forbidden(ctx context.Context, req *http.Request, resp *http.Response, bearer string) {
	if matchesPath(req.URL.Path, i.loginEndpoints) {
		return
	}
	body := peekBody(resp)
	if !isDeactivation(body) {
		return
	}

	log.Ctx(ctx).Warn().Str("path", req.URL.Path).Msg("account deactivated, ending session")
	if err := i.auth.EndSession(ctx, bearer, ReasonAccountDeactivated); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to end session")
	}
}

func (i *Interceptor) unauthorized(ctx context.Context, req *http.Request, resp *http.Response, bearer string) (*http.Response, error) {
	path := req.URL.Path
	if matchesPath(path, i.loginEndpoints) || matchesPath(path, i.benign401) {
		return resp, nil
	}

	if isTokenInvalid(peekBody(resp)) {
		log.Ctx(ctx).Warn().Str("path", path).Msg("token rejected as invalid, ending session")
		if err := i.auth.EndSession(ctx, bearer, ReasonTokenInvalid); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to end session")
		}
		return resp, nil
	}

	if Retried(ctx) {
		i.metrics.Retry("exhausted")
		return resp, nil
	}

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		log.Ctx(ctx).Warn().Str("path", path).Msg("request body cannot be replayed, not retrying")
		return resp, nil
	}

	fresh, err := i.auth.RefreshAfter(ctx, bearer)
	if err != nil {
		if !errors.Is(err, errors.ErrNoRefreshToken) {
			log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("refresh failed, returning original response")
		}
		i.metrics.Retry("refresh_failed")
		return resp, nil
	}

	resend, err := replay(req.WithContext(withRetried(ctx)))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("could not rebuild request body")
		return resp, nil
	}
	drain(resp)

	log.Ctx(ctx).Debug().Str("path", path).Msg("resending request after refresh")
	out, err := i.send(resend, fresh)
	if err == nil {
		i.metrics.Retry(statusClass(out.StatusCode))
	}
	return out, err
}

func isDeactivation(body []byte) bool {
	if code := payload.Code(body); code != "" && payload.MatchesAny(code, DeactivationCodes...) {
		return true
	}
	return payload.ContainsAny(payload.Message(body), DeactivationWords...)
}

func isTokenInvalid(body []byte) bool {
	if code := payload.Code(body); code != "" && payload.MatchesAny(code, TokenInvalidCodes...) {
		return true
	}
	return payload.MatchesAny(payload.Message(body), TokenInvalidMessages...)
}

func matchesPath(path string, endpoints []string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, e := range endpoints {
		if e != "" && strings.HasSuffix(path, strings.TrimSuffix(e, "/")) {
			return true
		}
	}
	return false
}

// replay returns a copy of req with a fresh body.
func replay(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out := *req
	out.Body = body
	return &out, nil
}

// peekBody reads up to maxInspectBytes of the body and puts it back so the
// caller still sees the whole response.
func peekBody(resp *http.Response) []byte {
	if resp.Body == nil {
		return nil
	}
	orig := resp.Body
	head, _ := io.ReadAll(io.LimitReader(orig, maxInspectBytes))
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), orig), orig}
	return head
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxInspectBytes))
	_ = resp.Body.Close()
}

func statusClass(status int) string {
	switch {
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
