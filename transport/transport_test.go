package transport_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sessionerrors "github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/sessiontest"
	"github.com/jrsteele09/go-session-client/navigation"
	"github.com/jrsteele09/go-session-client/refresh"
	"github.com/jrsteele09/go-session-client/roles"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/transport"
)

// backend rejects the tokens in rejected with 401 "Token expired" and
// answers everything else with the bearer it saw.
type backend struct {
	mu       sync.Mutex
	rejected map[string]bool
	hits     atomic.Int32
	bodies   []string
	handler  http.HandlerFunc
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.hits.Add(1)
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.bodies = append(b.bodies, string(body))
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	rejected := b.rejected[bearer]
	b.mu.Unlock()

	if b.handler != nil {
		b.handler(w, r)
		return
	}
	if rejected {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Token expired"}`)
		return
	}
	_, _ = io.WriteString(w, bearer)
}

type testFixture struct {
	backend   *backend
	server    *httptest.Server
	store     *sessiontest.Store
	refresher *sessiontest.Refresher
	nav       *sessiontest.Navigator
	client    *http.Client
	stale     string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	stale := sessiontest.Token(roles.Provider, time.Hour)
	f := &testFixture{
		backend:   &backend{rejected: map[string]bool{stale: true}},
		store:     sessiontest.NewStore(stale, "refresh-1"),
		refresher: sessiontest.NewRefresher(roles.Provider),
		nav:       &sessiontest.Navigator{},
		stale:     stale,
	}
	f.server = httptest.NewServer(f.backend)
	t.Cleanup(f.server.Close)

	m, err := session.New(f.store, f.refresher, session.WithNavigator(f.nav))
	require.NoError(t, err)
	f.client = transport.NewClient(nil, m, 0)
	return f
}

func (f *testFixture) do(t *testing.T, ctx context.Context, method, path, body string) (int, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, f.server.URL+path, rd)
	require.NoError(t, err)

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(id string) transport.Constructor {
		return func(next http.RoundTripper) http.RoundTripper {
			return transport.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, id)
				return next.RoundTrip(r)
			})
		}
	}
	final := transport.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		order = append(order, "t")
		w := httptest.NewRecorder()
		return w.Result(), nil
	})

	chain := transport.NewChain(tag("c1"), tag("c2")).Append(tag("c3"))
	_, err := chain.Then(final).RoundTrip(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2", "c3", "t"}, order)
}

func TestAttachesBearer(t *testing.T) {
	f := setupTestFixture(t)
	fresh := sessiontest.Token(roles.Provider, time.Hour)
	require.NoError(t, f.store.Write(context.Background(), fresh, "refresh-1"))

	status, body := f.do(t, context.Background(), http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, fresh, body)
	require.Zero(t, f.refresher.Calls())
}

func TestSkipAuth(t *testing.T) {
	f := setupTestFixture(t)

	status, body := f.do(t, transport.WithSkipAuth(context.Background()), http.MethodPost, "/auth/login", `{}`)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, body)
	require.Zero(t, f.store.Reads())
}

func TestUnauthorizedRefreshesAndResendsOnce(t *testing.T) {
	f := setupTestFixture(t)

	status, body := f.do(t, context.Background(), http.MethodPost, "/appointments", `{"slot":"09:00"}`)
	require.Equal(t, http.StatusOK, status)
	require.NotEqual(t, f.stale, body)
	require.Equal(t, 1, f.refresher.Calls())
	require.EqualValues(t, 2, f.backend.hits.Load())
	require.Equal(t, []string{`{"slot":"09:00"}`, `{"slot":"09:00"}`}, f.backend.bodies)

	stored, err := f.store.MemoryStore.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, body, stored.AccessToken)
}

func TestSecond401IsFinal(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Token expired"}`)
	}

	status, body := f.do(t, context.Background(), http.MethodGet, "/patients", "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.JSONEq(t, `{"message":"Token expired"}`, body)
	require.Equal(t, 1, f.refresher.Calls())
	require.EqualValues(t, 2, f.backend.hits.Load())
	require.Empty(t, f.nav.Visited())
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	f := setupTestFixture(t)

	const requests = 2
	var wg sync.WaitGroup
	statuses := make([]int, requests)
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses[i], _ = f.do(t, context.Background(), http.MethodGet, fmt.Sprintf("/orders/%d", i), "")
		}()
	}
	wg.Wait()

	require.Equal(t, 1, f.refresher.Calls())
	for _, s := range statuses {
		require.Equal(t, http.StatusOK, s)
	}
}

func TestLoginAndBenignEndpointsAreNotRecovered(t *testing.T) {
	for _, path := range []string{"/auth/login", "/api/auth/login", "/auth/logout", "/auth/verify-otp"} {
		t.Run(path, func(t *testing.T) {
			f := setupTestFixture(t)
			f.backend.handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"Invalid token"}`)
			}

			status, _ := f.do(t, context.Background(), http.MethodPost, path, `{}`)
			require.Equal(t, http.StatusUnauthorized, status)
			require.Zero(t, f.refresher.Calls())
			require.Empty(t, f.nav.Visited())
			require.EqualValues(t, 1, f.backend.hits.Load())
		})
	}
}

func TestInvalidTokenLogsOutWithoutRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"message":"Invalid token"}`)
	}
	ctx := navigation.WithLocation(context.Background(), "/provider/schedule")

	status, body := f.do(t, ctx, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Contains(t, body, "Invalid token")
	require.Zero(t, f.refresher.Calls())
	require.Equal(t, []string{"/provider/login"}, f.nav.Visited())

	stored, err := f.store.MemoryStore.Read(ctx)
	require.NoError(t, err)
	require.True(t, stored.Empty())
}

func TestDeactivatedAccountLogsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"Your account has been deactivated"}`)
	}

	status, body := f.do(t, context.Background(), http.MethodGet, "/provider/patients", "")
	require.Equal(t, http.StatusForbidden, status)
	require.Contains(t, body, "deactivated")
	require.Zero(t, f.refresher.Calls())
	require.EqualValues(t, 1, f.backend.hits.Load())
	require.Equal(t, []string{"/provider/login"}, f.nav.Visited())
}

func TestDeactivationCodeOnLoginIsIgnored(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"code":"ACCOUNT_SUSPENDED"}`)
	}

	status, _ := f.do(t, context.Background(), http.MethodPost, "/auth/login", `{}`)
	require.Equal(t, http.StatusForbidden, status)
	require.Empty(t, f.nav.Visited())
}

func TestOtherForbiddenPassesThrough(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"Insufficient permissions"}`)
	}

	status, _ := f.do(t, context.Background(), http.MethodDelete, "/admin/users/7", "")
	require.Equal(t, http.StatusForbidden, status)
	require.Empty(t, f.nav.Visited())

	stored, err := f.store.MemoryStore.Read(context.Background())
	require.NoError(t, err)
	require.False(t, stored.Empty())
}

func TestTerminalRefreshReturnsOriginal401(t *testing.T) {
	f := setupTestFixture(t)
	f.refresher.Fail(&refresh.Error{Status: 401, Message: "Refresh token has expired. Please login again", Outcome: refresh.Expired})

	status, body := f.do(t, context.Background(), http.MethodGet, "/provider/notes", "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.JSONEq(t, `{"message":"Token expired"}`, body)
	require.EqualValues(t, 1, f.backend.hits.Load())
	require.Equal(t, []string{"/provider/login"}, f.nav.Visited())
}

func TestTerminalProactiveRefreshAbortsRequest(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.MemoryStore.Write(ctx, sessiontest.Token(roles.Admin, 30*time.Second), "refresh-1"))
	f.refresher.Fail(&refresh.Error{Status: 401, Message: "Refresh token has expired. Please login again", Outcome: refresh.Expired})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.server.URL+"/admin/users", nil)
	require.NoError(t, err)
	_, err = f.client.Do(req)
	require.Error(t, err)
	require.True(t, sessionerrors.IsTerminal(err))

	require.Zero(t, f.backend.hits.Load())
	require.Equal(t, 1, f.refresher.Calls())
	require.Equal(t, []string{"/admin/login"}, f.nav.Visited())
}

func TestTransientRefreshReturnsOriginal401(t *testing.T) {
	f := setupTestFixture(t)
	f.refresher.Fail(&refresh.Error{Status: 502, Outcome: refresh.Transient})

	status, _ := f.do(t, context.Background(), http.MethodGet, "/provider/notes", "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Empty(t, f.nav.Visited())

	stored, err := f.store.MemoryStore.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, f.stale, stored.AccessToken)
}

func TestUnreplayableBodyIsNotResent(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/uploads", io.NopCloser(strings.NewReader("blob")))
	require.NoError(t, err)
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, f.refresher.Calls())
}

func TestRetryNetworkErrors(t *testing.T) {
	var calls atomic.Int32
	flaky := transport.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(r.Body)
		if calls.Add(1) < 3 {
			return nil, errors.New("connection reset by peer")
		}
		w := httptest.NewRecorder()
		_, _ = w.Write(body)
		return w.Result(), nil
	})

	rt := transport.Retry(2)(flaky)
	req, err := http.NewRequest(http.MethodPost, "http://backend.test/x", bytes.NewReader([]byte("payload")))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "payload", string(body))
	require.EqualValues(t, 3, calls.Load())
}

func TestRetryGivesUp(t *testing.T) {
	var calls atomic.Int32
	down := transport.RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	})

	_, err := transport.Retry(1)(down).RoundTrip(httptest.NewRequest(http.MethodGet, "http://backend.test/", nil))
	require.ErrorContains(t, err, "connection refused")
	require.EqualValues(t, 2, calls.Load())
}

func TestRetryIgnoresStatuses(t *testing.T) {
	var calls atomic.Int32
	failing := transport.RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		w := httptest.NewRecorder()
		w.WriteHeader(http.StatusServiceUnavailable)
		return w.Result(), nil
	})

	resp, err := transport.Retry(3)(failing).RoundTrip(httptest.NewRequest(http.MethodGet, "http://backend.test/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.EqualValues(t, 1, calls.Load())
}

func TestRequestID(t *testing.T) {
	var seen []string
	rt := transport.RequestID(transport.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = append(seen, r.Header.Get(transport.RequestIDHeader))
		return httptest.NewRecorder().Result(), nil
	}))

	_, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(transport.RequestIDHeader, "fixed")
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	require.Len(t, seen[0], 36)
	require.Equal(t, "fixed", seen[1])
}

func TestNoCredentialsSendsAnonymous(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Clear(context.Background()))

	status, body := f.do(t, context.Background(), http.MethodGet, "/public/faq", "")
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, body)
	require.Zero(t, f.refresher.Calls())
}
