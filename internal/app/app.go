package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/muhammadjehanzaib/sultan-store/internal/config"
	"github.com/muhammadjehanzaib/sultan-store/internal/event"
	handler "github.com/muhammadjehanzaib/sultan-store/internal/handler/http"
	"github.com/muhammadjehanzaib/sultan-store/internal/repository/postgres"
	"github.com/muhammadjehanzaib/sultan-store/internal/repository/redis"
	"github.com/muhammadjehanzaib/sultan-store/internal/service"
	"github.com/muhammadjehanzaib/sultan-store/migrations"
	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
	"github.com/muhammadjehanzaib/sultan-store/pkg/health"
	pkgkafka "github.com/muhammadjehanzaib/sultan-store/pkg/kafka"
	"github.com/muhammadjehanzaib/sultan-store/pkg/middleware"
	"github.com/muhammadjehanzaib/sultan-store/pkg/tracing"
)

const serviceName = "inventory"

// App wires together all dependencies and runs the inventory service.
type App struct {
	cfg              *config.Config
	logger           *slog.Logger
	pool             *pgxpool.Pool
	redis            *goredis.Client
	producer         *pkgkafka.Producer
	httpServer       *http.Server
	orderCreated     *pkgkafka.Consumer
	inventoryService *service.InventoryService
	tracerShutdown   func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, serviceName)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Kafka producer: a broker outage degrades events but not stock writes.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	if err := database.Retry(ctx, "kafka ping", 3, logger, nil, producer.Ping); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	store := postgres.NewStore(pool)
	eventProducer := event.NewProducer(producer, logger)
	inventoryService := service.NewInventoryService(store, eventProducer, logger, service.Options{
		Policy:           cfg.Policy(),
		DefaultThreshold: cfg.DefaultThreshold,
		HistoryLimit:     cfg.HistoryLimit,
		SyncRate:         cfg.ReconcileRatePerSecond,
	})
	logger.Info("inventory service configured",
		slog.String("stock_policy", string(cfg.Policy())),
		slog.Int("default_threshold", cfg.DefaultThreshold),
	)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// Consumer idempotency: Redis when reachable, process memory otherwise.
	var (
		redisClient      *goredis.Client
		idempotencyStore pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
	)
	if cfg.RedisEnabled {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis(), logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory event deduplication",
				slog.String("addr", cfg.Redis().Addr()),
				slog.String("error", err.Error()),
			)
		} else {
			redisStore := redis.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
			idempotencyStore = redisStore
			healthHandler.RegisterNonCritical("redis", redisStore.Ping)
			logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
		}
	}

	var orderCreated *pkgkafka.Consumer
	if cfg.ConsumeOrders {
		eventConsumer := event.NewConsumer(inventoryService, logger)
		orderCreated = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:   cfg.KafkaBrokers,
			GroupID:   "inventory-service-order-created",
			Topic:     event.TopicOrderCreated,
			MinBytes:  1,
			MaxBytes:  10e6,
			EnableDLQ: true,
		}, pkgkafka.IdempotentHandler(idempotencyStore, eventConsumer.HandleOrderCreated, logger), logger)
	}

	router := handler.NewRouter(inventoryService, healthHandler, logger, handler.RouterConfig{
		CORS:        middleware.NewCORSConfig(cfg.CORSAllowedOrigins),
		PprofCIDRs:  cfg.PprofAllowedCIDRs,
		EnablePprof: cfg.PprofEnabled,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:              cfg,
		logger:           logger,
		pool:             pool,
		redis:            redisClient,
		producer:         producer,
		httpServer:       httpServer,
		orderCreated:     orderCreated,
		inventoryService: inventoryService,
		tracerShutdown:   tracerShutdown,
	}, nil
}

// Run starts the HTTP server, the order consumer and the reconciliation
// job, then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.orderCreated != nil {
		go func() {
			if err := a.orderCreated.Start(ctx); err != nil {
				errCh <- fmt.Errorf("order created consumer: %w", err)
			}
		}()
	}

	if a.cfg.ReconcileInterval > 0 {
		go RunReconciliation(ctx, a.inventoryService, a.cfg.ReconcileInterval, a.logger)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumer
// 4. Kafka producer
// 5. Redis client
// 6. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.orderCreated != nil {
		if err := a.orderCreated.Close(); err != nil {
			a.logger.Error("order created consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
