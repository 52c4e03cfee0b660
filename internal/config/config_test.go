package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestSessionDefaults(t *testing.T) {
	c := config.New()
	require.Equal(t, 5*time.Minute, c.GetCacheTTL())
	require.Equal(t, time.Minute, c.GetRefreshBuffer())
	require.Less(t, c.GetRefreshBuffer(), c.GetCacheTTL())
	require.Equal(t, []string{"/auth/login"}, c.GetLoginEndpoints())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_CACHE_TTL", "90s")
	t.Setenv("BENIGN_401_ENDPOINTS", "/a, /b,,")
	t.Setenv("PORT", "9090")
	t.Setenv("API_BASE_URL", "https://api.example.com/")

	c := config.New()
	require.Equal(t, 90*time.Second, c.GetCacheTTL())
	require.Equal(t, []string{"/a", "/b"}, c.GetBenign401Endpoints())
	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "https://api.example.com", c.GetAPIBaseURL())
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("SESSION_REFRESH_BUFFER", "soon")
	require.Equal(t, time.Minute, config.New().GetRefreshBuffer())
}

func TestAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://portal.example.com")
	origins := config.New().GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://portal.example.com"))
	require.False(t, origins.IsAllowedOrigin("http://localhost:3000"))
	require.Equal(t, []string{"https://portal.example.com"}, origins.List())
}

func TestDevAPIRotateRefresh(t *testing.T) {
	require.False(t, config.New().GetDevAPIRotateRefresh())

	t.Setenv("DEVAPI_ROTATE_REFRESH", "true")
	require.True(t, config.New().GetDevAPIRotateRefresh())

	t.Setenv("DEVAPI_ROTATE_REFRESH", "maybe")
	require.False(t, config.New().GetDevAPIRotateRefresh())
}

func TestDevAPIRevocationPruneInterval(t *testing.T) {
	require.Equal(t, time.Minute, config.New().GetDevAPIRevocationPruneInterval())

	t.Setenv("DEVAPI_REVOCATION_PRUNE_INTERVAL", "5s")
	require.Equal(t, 5*time.Second, config.New().GetDevAPIRevocationPruneInterval())
}
