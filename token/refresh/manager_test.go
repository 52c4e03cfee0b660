package refresh_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-session-client/token/refresh/repofake"
)

func TestCreateReplacesPreviousToken(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour)

	first, err := m.Create("user-1")
	require.NoError(t, err)
	require.Len(t, first, 64)

	second, err := m.Create("user-1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = m.Get(first)
	require.ErrorIs(t, err, errors.ErrNotFound)

	rt, err := m.Get(second)
	require.NoError(t, err)
	require.Equal(t, "user-1", rt.UserID)
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour,
		refresh.WithNowFunc(func() time.Time { return now }))

	tok, err := m.Create("user-1")
	require.NoError(t, err)
	rt, err := m.Get(tok)
	require.NoError(t, err)
	require.False(t, m.IsExpired(rt))

	now = now.Add(time.Hour + time.Second)
	require.True(t, m.IsExpired(rt))
}

func TestRevoke(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour, refresh.WithTokenLength(16))

	tok, err := m.Create("user-1")
	require.NoError(t, err)
	require.Len(t, tok, 32)
	require.NoError(t, m.Revoke("user-1"))

	_, err = m.Get(tok)
	require.ErrorIs(t, err, errors.ErrNotFound)
}
