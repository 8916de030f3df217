package config

import "os"

type AppConfig struct {
	DebugMode      bool
	LogLevel       string
	RunConfig      *RunConfig
	ScheduleSvcCfg *ScheduleSvcCfg
	RedisConfig    *RedisConfig
	PostgresConfig *PostgresConfig
	JwtConfig      *JwtConfig
	HTTPConfig     *HTTPConfig
	StrategyConfig *StrategyConfig
}

func NewSystemConfig() *AppConfig {
	debug := os.Getenv("DEBUG_MODE") == "true"
	level := getEnv("LOG_LEVEL", "info")
	if debug {
		level = "debug"
	}
	return &AppConfig{
		DebugMode:      debug,
		LogLevel:       level,
		RunConfig:      NewRunConfig(),
		ScheduleSvcCfg: NewScheduleSvcCfg(),
		RedisConfig:    NewRedisConfig(),
		PostgresConfig: NewPostgresConfig(),
		JwtConfig:      NewJwtConfig(),
		HTTPConfig:     NewHTTPConfig(),
		StrategyConfig: NewStrategyConfig(),
	}
}
