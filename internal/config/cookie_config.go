package config

type CookieConfig interface {
	GetCookieHashKey() []byte
	GetCookieBlockKey() []byte
	GetCookieSecure() bool
}

type Cookie struct{}

var _ CookieConfig = Cookie{}

// GetCookieHashKey authenticates the credential cookies (32 or 64 bytes recommended)
func (Cookie) GetCookieHashKey() []byte {
	return []byte(GetEnv("COOKIE_HASH_KEY", "dev-only-hash-key-change-me-0123456789abcdef"))
}

// GetCookieBlockKey encrypts the credential cookies; must be 16, 24 or 32 bytes
func (Cookie) GetCookieBlockKey() []byte {
	return []byte(GetEnv("COOKIE_BLOCK_KEY", "dev-only-block-key-0123456789abc"))
}

func (Cookie) GetCookieSecure() bool {
	return (EnvVars{}).GetEnv() != "DEV"
}
