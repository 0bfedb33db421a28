package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/resilience"
)

const (
	BreakerPostgres = "postgres"
	BreakerRedis    = "redis"

	healthProbeTimeout = 2 * time.Second
)

// HealthService reports service health from the error tracker and the
// dependency breakers.
type HealthService struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	tracker  *apperror.Tracker
	breakers *resilience.Registry
	log      zerolog.Logger
}

// NewHealthService creates a new HealthService.
func NewHealthService(pool *pgxpool.Pool, rdb *redis.Client, tracker *apperror.Tracker, breakers *resilience.Registry, log zerolog.Logger) *HealthService {
	return &HealthService{
		pool:     pool,
		rdb:      rdb,
		tracker:  tracker,
		breakers: breakers,
		log:      log.With().Str("component", "health_service").Logger(),
	}
}

// Check probes postgres and redis through their breakers and grades the
// service.
func (s *HealthService) Check(ctx context.Context) apperror.Health {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	probes := map[string]func(ctx context.Context) error{
		BreakerPostgres: s.pool.Ping,
		BreakerRedis:    func(ctx context.Context) error { return s.rdb.Ping(ctx).Err() },
	}
	for name, probe := range probes {
		if err := s.breakers.Get(name).Execute(ctx, probe); err != nil {
			s.log.Warn().Err(err).Str("dependency", name).Msg("Health probe failed")
		}
	}
	return s.tracker.Health(s.breakers.Statuses())
}

// ErrorStats returns the tracker counters.
func (s *HealthService) ErrorStats() apperror.Stats {
	return s.tracker.Stats()
}
