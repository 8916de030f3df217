package config

type PostgresConfig struct {
	// Url is empty when the exchange journal is disabled
	Url string
}

func NewPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Url: getEnv("DATABASE_URL", ""),
	}
}

func (c *PostgresConfig) Enabled() bool {
	return c != nil && c.Url != ""
}
