package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/pensionledger/internal/adapter/http"
	"github.com/iho/pensionledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/pensionledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/pensionledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/pensionledger/internal/adapter/repository/redis"
	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/infrastructure/config"
	"github.com/iho/pensionledger/internal/infrastructure/eventbus"
	"github.com/iho/pensionledger/internal/infrastructure/eventpublisher"
	"github.com/iho/pensionledger/internal/infrastructure/locker"
	"github.com/iho/pensionledger/internal/infrastructure/logger"
	"github.com/iho/pensionledger/internal/infrastructure/metrics"
	"github.com/iho/pensionledger/internal/infrastructure/postgres"
	"github.com/iho/pensionledger/internal/infrastructure/redis"
	"github.com/iho/pensionledger/internal/usecase"
)

const rateLimiterIdle = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Caller: cfg.LogCaller})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:      cfg.DatabaseURL,
		MaxConns:         cfg.DatabaseMaxConns,
		MinConns:         cfg.DatabaseMinConns,
		ConnectTimeout:   cfg.DatabaseTimeout,
		StatementTimeout: cfg.DatabaseStatementTimeout,
		ApplicationName:  "pensionledger",
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Connect to Redis when configured
	var redisClient *goredis.Client
	if cfg.RedisEnabled() {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
	} else {
		log.Warn().Msg("REDIS_URL not set: using in-process withdrawal lock, idempotency disabled")
	}

	// Repositories
	txManager := postgresRepo.NewTxManager(pool, postgresRepo.WithLockTimeout(cfg.DatabaseLockTimeout))
	retrier := postgresRepo.NewRetrier(log)
	userRepo := postgresRepo.NewUserRepository(pool)
	contributionRepo := postgresRepo.NewContributionRepository(pool)
	withdrawalRepo := postgresRepo.NewWithdrawalRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	var projectionRepo usecase.BalanceProjectionRepository = postgresRepo.NewBalanceProjectionRepository(pool)

	clock := usecase.SystemClock{}
	recordIDs := postgresRepo.NewULIDGeneratorWithClock(clock)
	userIDs := postgresRepo.NewUUIDGenerator()

	userLocker, idempotencyStore := buildRedisAdapters(cfg, redisClient, log)
	if redisClient != nil {
		projectionRepo = redisRepo.NewProjectionCache(redisClient, projectionRepo, cfg.ProjectionCacheTTL, log)
	}

	// Domain services
	calculator := domain.NewBalanceCalculator()
	validator := domain.NewWithdrawalValidator(calculator)
	projector := usecase.NewBalanceProjector(contributionRepo, projectionRepo, calculator)

	// In-process event bus feeding the projector
	bus := eventbus.NewDispatcher(cfg.ProjectorWorkers, log, m)
	projectionHandler := usecase.NewProjectionHandler(projector, clock, log, m)
	bus.Subscribe(projectionHandler, projectionHandler.EventTypes()...)
	bus.Start(ctx)

	// Use cases
	allocationEngine := usecase.NewAllocationEngine(txManager, contributionRepo, withdrawalRepo, outboxRepo, recordIDs, retrier, bus, clock, log, m)
	withdrawalUC := usecase.NewWithdrawalUseCase(userRepo, contributionRepo, withdrawalRepo, validator, calculator, allocationEngine, userLocker, recordIDs, clock, log, m)
	balanceUC := usecase.NewBalanceUseCase(userRepo, contributionRepo, projectionRepo, calculator, projector, bus, clock, log, m)
	contributionUC := usecase.NewContributionUseCase(txManager, userRepo, contributionRepo, outboxRepo, recordIDs, bus, clock, log, m)
	userUC := usecase.NewUserUseCase(userRepo, userIDs, clock)
	reconciliationUC := usecase.NewReconciliationUseCase(userRepo, projectionRepo, projector, clock, log, m)

	// Outbox relay
	relayPublisher, closePublisher, err := buildRelayPublisher(cfg, bus, log)
	if err != nil {
		return fmt.Errorf("create relay publisher: %w", err)
	}
	defer func() {
		if err := closePublisher(); err != nil {
			log.Error().Err(err).Msg("failed to close relay publisher")
		}
	}()

	relay := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  relayPublisher,
		Clock:      clock,
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
		Retention:  cfg.OutboxRetention,
	})
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("outbox relay stopped")
		}
	}()

	// HTTP
	rateLimiter := apimiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	go cleanupLimiters(ctx, rateLimiter)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		BalanceHandler:        handler.NewBalanceHandler(balanceUC),
		WithdrawalHandler:     handler.NewWithdrawalHandler(withdrawalUC),
		UserHandler:           handler.NewUserHandler(userUC),
		ContributionHandler:   handler.NewContributionHandler(contributionUC),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationUC),
		HealthHandler:         handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		Metrics:               m,
		Registry:              registry,
		RateLimiter:           rateLimiter,
		CORSAllowedOrigins:    cfg.CORSAllowedOrigins,
		Logger:                log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			stop()
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	<-relayDone
	bus.Wait()

	log.Info().Msg("server stopped")

	return nil
}

// buildRedisAdapters picks the withdrawal lock and idempotency store. Without
// Redis the lock is process-local and idempotency is off.
func buildRedisAdapters(cfg *config.Config, client *goredis.Client, log zerolog.Logger) (usecase.UserLocker, usecase.IdempotencyStore) {
	if client == nil {
		return locker.New(), nil
	}

	return redisRepo.NewUserLocker(client, cfg.WithdrawalLockTTL, log), redisRepo.NewIdempotencyStore(client)
}

// buildRelayPublisher assembles the outbox fan-out: the in-process bus, Kafka
// when brokers are configured, and the event log.
func buildRelayPublisher(cfg *config.Config, bus usecase.EventPublisher, log zerolog.Logger) (eventpublisher.Publisher, func() error, error) {
	publishers := eventpublisher.MultiPublisher{
		eventpublisher.NewBusPublisher(bus),
		eventpublisher.NewLogPublisher(log),
	}
	closer := func() error { return nil }

	if cfg.KafkaEnabled() {
		kafkaPublisher, err := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		publishers = append(publishers, kafkaPublisher)
		closer = kafkaPublisher.Close
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka relay enabled")
	}

	return publishers, closer, nil
}

func cleanupLimiters(ctx context.Context, rl *apimiddleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters(rateLimiterIdle)
		}
	}
}
