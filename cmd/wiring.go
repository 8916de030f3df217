package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gitlab.com/steer-2025.net/internal/adapter/postgres/exchangerepository"
	"gitlab.com/steer-2025.net/internal/adapter/redis/participantport"
	"gitlab.com/steer-2025.net/internal/adapter/redis/workerport"
	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/services/driver"
)

// dependencies holds the optional external stores of a run
type dependencies struct {
	redisClient *redis.Client
	db          *sqlx.DB
	options     []driver.DriverOption
	logger      primary.Logger
}

func setupDependencies(ctx context.Context, cfg *config.AppConfig, logger primary.Logger) (*dependencies, error) {
	deps := &dependencies{logger: logger}

	if cfg.RedisConfig.Enabled() {
		client, err := setupRedis(ctx, cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		deps.redisClient = client
		deps.options = append(deps.options,
			driver.WithParticipantRegistry(participantport.NewParticipantRegistry(client, logger)),
			driver.WithWorkerRepository(workerport.NewWorkerRepository(client, logger)),
		)
	}

	if cfg.PostgresConfig.Enabled() {
		db, err := setupDatabase(ctx, cfg.PostgresConfig)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.db = db
		repo := exchangerepository.NewExchangeRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			deps.Close()
			return nil, err
		}
		deps.options = append(deps.options, driver.WithExchangeRepository(repo))
	}

	return deps, nil
}

func (d *dependencies) Options() []driver.DriverOption {
	return d.options
}

func (d *dependencies) Close() {
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			d.logger.Warn("Failed to close redis client", "error", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			d.logger.Warn("Failed to close database", "error", err)
		}
	}
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(ctx context.Context, cfg *config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// setupRedis sets up the Redis connection
func setupRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Url,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
