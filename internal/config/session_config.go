package config

import "time"

type SessionConfig interface {
	GetCacheTTL() time.Duration
	GetRefreshBuffer() time.Duration
	GetRefreshPath() string
	GetLoginEndpoints() []string
	GetBenign401Endpoints() []string
	GetHTTPRetryMax() int
}

type Session struct{}

var _ SessionConfig = Session{}

// GetCacheTTL is how long an access token may be served from memory
func (Session) GetCacheTTL() time.Duration {
	return GetEnvDuration("SESSION_CACHE_TTL", 5*time.Minute)
}

// GetRefreshBuffer is how long before expiry a token is renewed. Must be smaller than the cache TTL.
func (Session) GetRefreshBuffer() time.Duration {
	return GetEnvDuration("SESSION_REFRESH_BUFFER", time.Minute)
}

func (Session) GetRefreshPath() string {
	return GetEnv("REFRESH_PATH", "/auth/refresh-token")
}

func (Session) GetLoginEndpoints() []string {
	return GetEnvList("LOGIN_ENDPOINTS", []string{"/auth/login"})
}

// GetBenign401Endpoints lists endpoints that are expected to answer 401 without ending the session
func (Session) GetBenign401Endpoints() []string {
	return GetEnvList("BENIGN_401_ENDPOINTS", []string{"/auth/logout", "/auth/verify-otp"})
}

func (Session) GetHTTPRetryMax() int {
	return GetEnvInt("HTTP_RETRY_MAX", 2)
}
