package config

type RedisConfig struct {
	DB       int
	Url      string
	Password string
}

func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		DB:       getIntEnv("REDIS_DB", 0),
		Url:      getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
	}
}

// Enabled reports whether participant rendezvous and worker presence go through Redis.
func (c *RedisConfig) Enabled() bool {
	return c != nil && c.Url != ""
}
