// Package app wires the service's dependencies together and runs them.
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

	"github.com/klevu/catalog-sync/pkg/database"
	"github.com/klevu/catalog-sync/pkg/health"
	pkgkafka "github.com/klevu/catalog-sync/pkg/kafka"

	"github.com/klevu/catalog-sync/internal/config"
	"github.com/klevu/catalog-sync/internal/drift"
	"github.com/klevu/catalog-sync/internal/eligibility"
	"github.com/klevu/catalog-sync/internal/event"
	handler "github.com/klevu/catalog-sync/internal/handler/http"
	pgrepo "github.com/klevu/catalog-sync/internal/repository/postgres"
	redisrepo "github.com/klevu/catalog-sync/internal/repository/redis"
	"github.com/klevu/catalog-sync/internal/scope"
	"github.com/klevu/catalog-sync/internal/service"
	"github.com/klevu/catalog-sync/internal/tenant"
)

// App holds the running components of the catalog-sync service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *goredis.Client
	producer   *pkgkafka.Producer
	consumers  []*pkgkafka.Consumer
	httpServer *http.Server
}

// NewApp initializes all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pgCfg := cfg.PostgresConfig()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if err := pgrepo.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisConfig())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	// Repositories and providers.
	rowStore := pgrepo.NewTrackingRowRepository(pool)
	scopeRepo := pgrepo.NewScopeRepository(pool)
	resolver := pgrepo.NewCatalogRepository(pool)
	stockRegistry := redisrepo.NewStockRegistry(redisClient, cfg.StockTTL)
	storeMap := tenant.NewCachedStoreMap(scopeRepo)

	// Drift detection.
	stockCriterion := drift.NewStockStatusCriterion(storeMap, resolver, stockRegistry, logger)
	registry, err := drift.NewRegistry(stockCriterion)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("build criteria registry: %w", err)
	}

	detectorOpts := []drift.DetectorOption{
		drift.WithBatchCache(storeMap),
		drift.WithWorkers(cfg.DetectorWorkers),
	}

	var producer *pkgkafka.Producer
	if cfg.PublishEvents {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		detectorOpts = append(detectorOpts, drift.WithNotifier(event.NewProducer(producer)))
	}

	detector := drift.NewDetector(rowStore, registry, logger, detectorOpts...)

	// Eligibility chains. Each factory call builds a fresh chain with its
	// own scope tracker, so workers never share ambient scope state.
	productChain := func() *eligibility.Chain {
		return eligibility.NewProductChain(scopeRepo, stockRegistry, scope.NewTracker(), logger)
	}
	attributeChain := func() *eligibility.Chain {
		return eligibility.NewAttributeChain(scopeRepo, scope.NewTracker(), logger)
	}

	syncService := service.NewSyncService(
		rowStore, storeMap, resolver, detector,
		productChain, attributeChain, logger,
		service.WithAuditPageSize(cfg.AuditPageSize),
		service.WithAuditWorkers(cfg.AuditWorkers),
	)

	// Kafka consumers.
	eventConsumer := event.NewConsumer(syncService, stockRegistry, logger)
	topics := []string{
		event.TopicProductUpdated,
		event.TopicStockChanged,
		event.TopicAttributeUpdated,
	}

	var consumers []*pkgkafka.Consumer
	for _, topic := range topics {
		consumers = append(consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, eventConsumer.Handle, logger))
	}
	logger.Info("kafka consumers initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.Int("topic_count", len(topics)),
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	router := handler.NewRouter(
		handler.NewSyncHandler(syncService, rowStore, logger),
		healthHandler,
		logger,
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   producer,
		consumers:  consumers,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func(c *pkgkafka.Consumer) {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}(c)
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close producer: %w", err))
		}
	}

	if err := a.redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	a.pool.Close()

	return errors.Join(errs...)
}
