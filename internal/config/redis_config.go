package config

type RedisConfig interface {
	GetRedisURL() string
	GetRedisPassword() string
}

type Redis struct{}

var _ RedisConfig = Redis{}

func (Redis) GetRedisURL() string {
	return GetEnv("REDIS_URL", "")
}

func (Redis) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}
