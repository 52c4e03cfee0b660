package server_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-client/credentials/cookiestore"
	"github.com/jrsteele09/go-session-client/devapi"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/roles"
	"github.com/jrsteele09/go-session-client/server"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testFixture struct {
	clock   *clock
	gateway *httptest.Server
	browser *http.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("ENV", "DEV")

	c := &clock{now: time.Now()}
	backend, err := devapi.Bootstrap(config.New(), devapi.Options{NowFunc: c.Now})
	require.NoError(t, err)
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	t.Setenv("API_BASE_URL", backendSrv.URL)
	t.Setenv("HTTP_RETRY_MAX", "0")
	gw, err := server.New(config.New(), server.WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	gatewaySrv := httptest.NewServer(gw)
	t.Cleanup(gatewaySrv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	browser := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testFixture{clock: c, gateway: gatewaySrv, browser: browser}
}

func (f *testFixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := f.browser.Get(f.gateway.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (f *testFixture) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := f.browser.PostForm(f.gateway.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (f *testFixture) login(t *testing.T, role roles.Role) {
	t.Helper()
	resp, _ := f.post(t, "/"+role.String()+"/login", url.Values{
		"email":    {devapi.SeedEmail(role)},
		"password": {devapi.SeedPassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/"+role.String()+"/dashboard", resp.Header.Get("Location"))
}

func cookieNamed(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginPage(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.get(t, "/provider/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Provider portal")
	require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))

	resp, _ = f.get(t, "/nurse/login")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoginAndDashboard(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, roles.Provider)

	resp, body := f.get(t, "/provider/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, devapi.SeedEmail(roles.Provider))
}

func TestLoginErrors(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.post(t, "/admin/login", url.Values{
		"email":    {devapi.SeedEmail(roles.Admin)},
		"password": {"wrong"},
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, body, devapi.MsgInvalidLogin)

	resp, body = f.post(t, "/admin/login", url.Values{
		"email":    {devapi.SeedEmail(roles.Patient)},
		"password": {devapi.SeedPassword},
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, body, "admin portal")
	require.Nil(t, cookieNamed(resp, cookiestore.AccessTokenCookie))
}

func TestDashboardWithoutSessionRedirectsToLogin(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.get(t, "/admin/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/login", resp.Header.Get("Location"))
}

func TestDashboardRefreshesExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, roles.Patient)

	f.clock.Advance(20 * time.Minute)

	resp, body := f.get(t, "/patient/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, devapi.SeedEmail(roles.Patient))
	require.NotNil(t, cookieNamed(resp, cookiestore.AccessTokenCookie))
}

func TestDashboardEndsSessionWhenRefreshTokenExpired(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, roles.Provider)

	f.clock.Advance(8 * 24 * time.Hour)

	resp, _ := f.get(t, "/provider/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/provider/login", resp.Header.Get("Location"))

	cleared := cookieNamed(resp, cookiestore.RefreshTokenCookie)
	require.NotNil(t, cleared)
	require.Negative(t, cleared.MaxAge)
}

func TestDashboardRedirectsToOwnPortal(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, roles.Admin)

	resp, _ := f.get(t, "/patient/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/dashboard", resp.Header.Get("Location"))
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, roles.Provider)

	resp, _ := f.post(t, "/provider/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/provider/login", resp.Header.Get("Location"))

	resp, _ = f.get(t, "/provider/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/provider/login", resp.Header.Get("Location"))
}

func TestHealthAndMetrics(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f.get(t, "/admin/dashboard")

	resp, body := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(body, `session_logouts_total{reason="token_invalid"} 1`), body)
}
