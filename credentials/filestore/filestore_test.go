package filestore

import (
	"context"
	"os"
	"testing"

	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir(), "http://localhost:8081")

	creds, err := s.Read(ctx)
	require.NoError(t, err)
	require.True(t, creds.Empty())

	require.NoError(t, s.Write(ctx, "a1", "r1"))
	require.NoError(t, s.Write(ctx, "a2", "r1"))

	creds, err = s.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, credentials.Credentials{AccessToken: "a2", RefreshToken: "r1"}, creds)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	creds, err = s.Read(ctx)
	require.NoError(t, err)
	require.True(t, creds.Empty())
}

func TestOneFilePerServer(t *testing.T) {
	dir := t.TempDir()
	require.NotEqual(t, New(dir, "https://a.example.com").Path(), New(dir, "https://b.example.com").Path())
}

func TestCorruptFileIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir(), "http://localhost")
	require.NoError(t, s.Write(ctx, "a", "r"))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	creds, err := s.Read(ctx)
	require.NoError(t, err)
	require.True(t, creds.Empty())
	_, err = os.Stat(s.Path())
	require.True(t, os.IsNotExist(err))
}
