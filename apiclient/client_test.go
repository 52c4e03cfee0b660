package apiclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-client/apiclient"
	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/sessiontest"
	"github.com/jrsteele09/go-session-client/roles"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/jrsteele09/go-session-client/transport"
)

func setupTestFixture(t *testing.T, handler http.HandlerFunc) (*apiclient.Client, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	access := sessiontest.Token(roles.Patient, time.Hour)
	m, err := session.New(sessiontest.NewStore(access, "refresh-1"), sessiontest.NewRefresher(roles.Patient))
	require.NoError(t, err)
	return apiclient.New(srv.URL+"/", transport.NewClient(nil, m, 0)), access
}

func TestDoUnwrapsDataEnvelope(t *testing.T) {
	client, access := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer "+r.Header.Get("X-Expect"), r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"u1","email":"pat@example.com","role":"patient"}}`)
	})

	var user apiclient.User
	err := client.Get(context.Background(), "/auth/me", &user, apiclient.WithHeader("X-Expect", access))
	require.NoError(t, err)
	require.Equal(t, apiclient.User{ID: "u1", Email: "pat@example.com", Role: roles.Patient}, user)
}

func TestDoWithoutEnvelope(t *testing.T) {
	client, _ := setupTestFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[1,2,3]`)
	})

	var out []int
	require.NoError(t, client.Get(context.Background(), "/numbers", &out))
	require.Equal(t, []int{1, 2, 3}, out)
}

func TestDoSendsJSONBody(t *testing.T) {
	client, _ := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "Cardiology", in["department"])
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Patch(context.Background(), "/provider/profile", map[string]string{"department": "Cardiology"}, nil))
}

func TestAPIError(t *testing.T) {
	client, _ := setupTestFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"Appointment not found","code":"not_found"}`)
	})

	err := client.Delete(context.Background(), "/appointments/9", nil)
	var apiErr *apiclient.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "Appointment not found", apiErr.Message)
	require.Equal(t, "NOT_FOUND", apiErr.Code)
	require.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
	require.Zero(t, apiclient.StatusCode(context.Canceled))
}

func TestLoginSkipsAuth(t *testing.T) {
	client, _ := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, apiclient.LoginPath, r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data":{"accessToken":"a","refreshToken":"r","user":{"id":"1","email":"doc@example.com","role":"provider"}}}`)
	})

	res, err := client.Login(context.Background(), "doc@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "a", res.AccessToken)
	require.Equal(t, "r", res.RefreshToken)
	require.Equal(t, roles.Provider, res.User.Role)
}
