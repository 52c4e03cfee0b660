package config

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	CookieConfig
	RedisConfig
	DevAPIConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIBaseURL() string
	GetCredentialsDir() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Cookie
	Redis
	DevAPI
}

func New() Config {
	return mainConfig{}
}
