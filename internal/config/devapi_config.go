package config

import "time"

type DevAPIConfig interface {
	GetDevAPIPort() string
	GetDevAPISecret() string
	GetDevAPIAccessTokenExpiry() time.Duration
	GetDevAPIRefreshTokenExpiry() time.Duration
	GetDevAPIRotateRefresh() bool
	GetDevAPIRevocationPruneInterval() time.Duration
}

type DevAPI struct{}

var _ DevAPIConfig = DevAPI{}

func (DevAPI) GetDevAPIPort() string {
	return ":" + GetEnv("DEVAPI_PORT", "8081")
}

func (DevAPI) GetDevAPISecret() string {
	return GetEnv("DEVAPI_SECRET", "dev-secret")
}

func (DevAPI) GetDevAPIAccessTokenExpiry() time.Duration {
	return GetEnvDuration("DEVAPI_ACCESS_TTL", 15*time.Minute)
}

func (DevAPI) GetDevAPIRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("DEVAPI_REFRESH_TTL", 7*24*time.Hour)
}

// GetDevAPIRotateRefresh makes the refresh endpoint issue a new refresh token on every call
func (DevAPI) GetDevAPIRotateRefresh() bool {
	return GetEnvBool("DEVAPI_ROTATE_REFRESH", false)
}

func (DevAPI) GetDevAPIRevocationPruneInterval() time.Duration {
	return GetEnvDuration("DEVAPI_REVOCATION_PRUNE_INTERVAL", time.Minute)
}
