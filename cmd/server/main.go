package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/config"
	"github.com/hobbyist/hobbyist-api/internal/database"
	"github.com/hobbyist/hobbyist-api/internal/handler"
	"github.com/hobbyist/hobbyist-api/internal/logger"
	"github.com/hobbyist/hobbyist-api/internal/middleware"
	"github.com/hobbyist/hobbyist-api/internal/repository"
	"github.com/hobbyist/hobbyist-api/internal/resilience"
	"github.com/hobbyist/hobbyist-api/internal/router"
	"github.com/hobbyist/hobbyist-api/internal/rules"
	"github.com/hobbyist/hobbyist-api/internal/service"
	"github.com/hobbyist/hobbyist-api/internal/validator"
	"github.com/hobbyist/hobbyist-api/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Hobbyist API")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Resilience ────────────────────────────────────────────────────
	tracker := apperror.NewTracker(log)
	breakers := resilience.NewRegistry(resilience.BreakerOptions{
		FailureThreshold: cfg.BreakerFailureThreshold,
		RecoveryTimeout:  cfg.BreakerRecoveryTimeout,
	}, log)
	dbGuard := resilience.NewGuard(breakers.Get(service.BreakerPostgres), retryOptions(cfg, log))

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	instructorRepo := repository.NewInstructorRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	// ─── Business Rules ────────────────────────────────────────────────
	ruleStore := repository.NewRuleStore(userRepo, instructorRepo, classRepo, bookingRepo, dbGuard)
	ruleValidator, err := rules.NewDefault(ruleStore, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register business rules")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, ruleValidator, dbGuard)
	instructorService := service.NewInstructorService(instructorRepo, dbGuard, log)
	classService := service.NewClassService(classRepo, instructorService, ruleValidator, dbGuard)
	bookingService := service.NewBookingService(cfg, bookingRepo, classRepo, instructorRepo, rdb, ruleValidator, dbGuard, log)
	ruleService := service.NewRuleService(ruleValidator)
	notificationService := service.NewNotificationService(notificationRepo, dbGuard)
	healthService := service.NewHealthService(pool, rdb, tracker, breakers, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Class:        handler.NewClassHandler(classService),
		Instructor:   handler.NewInstructorHandler(instructorService, authService),
		Booking:      handler.NewBookingHandler(bookingService),
		Rule:         handler.NewRuleHandler(ruleService),
		Notification: handler.NewNotificationHandler(notificationService),
		System:       handler.NewSystemHandler(healthService),
		WS:           handler.NewWSHandler(rdb, classService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	notificationWorker := worker.NewNotificationWorker(notificationRepo, rdb, log)

	workers.Go(func() { limiter.Run(workerCtx, time.Minute) })
	workers.Go(func() { notificationWorker.Start(workerCtx) })

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(router.Deps{
		Auth:    authService,
		Tracker: tracker,
		Limiter: limiter,
		Log:     log,
	}, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers; the notification worker flushes its buffer.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// retryOptions is the retry policy for guarded store reads.
func retryOptions(cfg *config.Config, log zerolog.Logger) resilience.RetryOptions {
	opts := resilience.DefaultRetryOptions()
	opts.MaxRetries = cfg.RetryMax
	opts.BaseDelay = cfg.RetryBaseDelay
	opts.MaxDelay = cfg.RetryMaxDelay
	opts.OnRetry = func(err *apperror.Error, attempt int) {
		log.Warn().Err(err).Str("code", string(err.Code)).Int("attempt", attempt).Msg("Retrying store call")
	}
	return opts
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
