package cookiestore_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/credentials/cookiestore"
	"github.com/stretchr/testify/require"
)

var (
	hashKey  = []byte("0123456789abcdef0123456789abcdef")
	blockKey = []byte("abcdef0123456789abcdef0123456789")
)

func TestWriteThenReadInSameRequest(t *testing.T) {
	ctx := context.Background()
	codec := cookiestore.NewCodec(hashKey, blockKey, false)
	w := httptest.NewRecorder()
	s := codec.ForRequest(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NoError(t, s.Write(ctx, "access", "refresh"))
	creds, err := s.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, credentials.Credentials{AccessToken: "access", RefreshToken: "refresh"}, creds)
	require.Len(t, w.Result().Cookies(), 2)
}

func TestCookiesRoundTripAcrossRequests(t *testing.T) {
	ctx := context.Background()
	codec := cookiestore.NewCodec(hashKey, blockKey, false)

	w := httptest.NewRecorder()
	require.NoError(t, codec.ForRequest(w, httptest.NewRequest(http.MethodGet, "/", nil)).Write(ctx, "access", "refresh"))

	next := httptest.NewRequest(http.MethodGet, "/patient/dashboard", nil)
	for _, c := range w.Result().Cookies() {
		require.NotEqual(t, "access", c.Value, "cookie must not carry the raw token")
		next.AddCookie(c)
	}

	creds, err := codec.ForRequest(httptest.NewRecorder(), next).Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "access", creds.AccessToken)
	require.Equal(t, "refresh", creds.RefreshToken)
}

func TestTamperedCookieIsIgnored(t *testing.T) {
	codec := cookiestore.NewCodec(hashKey, blockKey, false)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: cookiestore.AccessTokenCookie, Value: "forged"})

	creds, err := codec.ForRequest(httptest.NewRecorder(), r).Read(context.Background())
	require.NoError(t, err)
	require.True(t, creds.Empty())
}

func TestClearExpiresCookies(t *testing.T) {
	ctx := context.Background()
	codec := cookiestore.NewCodec(hashKey, blockKey, true)
	w := httptest.NewRecorder()
	s := codec.ForRequest(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NoError(t, s.Write(ctx, "access", "refresh"))
	require.NoError(t, s.Clear(ctx))

	creds, err := s.Read(ctx)
	require.NoError(t, err)
	require.True(t, creds.Empty())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 4)
	for _, c := range cookies[2:] {
		require.Equal(t, -1, c.MaxAge)
		require.True(t, c.Secure)
	}
}
