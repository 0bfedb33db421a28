// Package database opens the Postgres pool and the Redis client.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/config"
	"github.com/hobbyist/hobbyist-api/internal/resilience"
)

// NewPostgresPool creates a PostgreSQL connection pool and waits for the
// server to answer, retrying with backoff while it starts up.
func NewPostgresPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxDBConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := resilience.Retry(ctx, startupRetry(cfg, log, "postgres"), pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Int32("max_conns", cfg.MaxDBConns).
		Msg("PostgreSQL connected")

	return pool, nil
}

// startupRetry retries every failure: a refused connection at boot is the
// common case, whatever code it classifies as.
func startupRetry(cfg *config.Config, log zerolog.Logger, service string) resilience.RetryOptions {
	return resilience.RetryOptions{
		MaxRetries: cfg.RetryMax,
		BaseDelay:  cfg.RetryBaseDelay,
		MaxDelay:   cfg.RetryMaxDelay,
		RetryableCodes: []apperror.Code{
			apperror.CodeNetwork, apperror.CodeTimeout, apperror.CodeDatabase, apperror.CodeInternal,
		},
		OnRetry: func(err *apperror.Error, attempt int) {
			log.Warn().Err(err).Str("service", service).Int("attempt", attempt).Msg("Connection failed, retrying")
		},
	}
}
