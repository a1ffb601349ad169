package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/productsearch/internal/cache"
	"github.com/utafrali/productsearch/internal/config"
	"github.com/utafrali/productsearch/internal/event"
	handler "github.com/utafrali/productsearch/internal/handler/http"
	"github.com/utafrali/productsearch/internal/indexer"
	"github.com/utafrali/productsearch/internal/planner"
	"github.com/utafrali/productsearch/internal/repository/postgres"
	"github.com/utafrali/productsearch/internal/service"
	"github.com/utafrali/productsearch/pkg/database"
	"github.com/utafrali/productsearch/pkg/health"
	pkgkafka "github.com/utafrali/productsearch/pkg/kafka"
	"github.com/utafrali/productsearch/pkg/middleware"
	"github.com/utafrali/productsearch/pkg/tracing"
)

const idempotencyTTL = 24 * time.Hour

// App wires together all dependencies and runs the product search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	reindexer      *service.Reindexer
	httpServer     *http.Server
	stopLimiter    context.CancelFunc
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		_ = a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	registerCollector(database.NewPoolStatsCollector(pool, config.ServiceName), logger)

	if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, logger)
	}

	// Initialize the document index.
	index, err := OpenIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Initialize Redis. It is optional: without it searches are not cached
	// and event deduplication falls back to process memory.
	var searchCache planner.ResultCache
	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			logger.Warn("redis unavailable, continuing without search cache",
				slog.String("addr", cfg.Redis().Addr()),
				slog.String("error", err.Error()),
			)
		} else {
			a.redis = client
			searchCache = cache.NewSearchCache(client, cfg.SearchCacheTTL)
			logger.Info("redis search cache enabled", slog.Duration("ttl", cfg.SearchCacheTTL))
		}
	}

	// Build the dependency graph.
	productRepo := postgres.NewProductRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)

	searchPlanner := planner.New(index, planner.Config{
		Limits:             cfg.PageLimits(),
		RecommendationSize: cfg.SearchRecommendationSize,
		Cache:              searchCache,
	}, logger)

	idx := indexer.New(index, logger)

	var sync service.IndexSync = idx
	if cfg.IndexSyncMode == config.SyncModeKafka {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		sync = event.NewProducer(a.producer, logger)
		logger.Info("index sync through kafka", slog.Any("brokers", cfg.KafkaBrokers))

		if cfg.KafkaConsumers {
			a.consumers = a.subscribe(idx)
		}
	} else {
		logger.Info("index sync inline")
	}

	catalog := service.NewCatalogService(productRepo, categoryRepo, sync, cfg.PageLimits(), logger)
	a.reindexer = service.NewReindexer(productRepo, index, cfg.ReindexBatchSize, logger)

	// The in-memory index starts empty, so it is filled from the catalog.
	if cfg.SearchEngine == config.EngineMemory {
		result, err := a.reindexer.Reindex(ctx, false)
		if err != nil {
			return fmt.Errorf("populate memory index: %w", err)
		}
		logger.Info("memory index populated", slog.Int("documents", result.Indexed))
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", pool.Ping)
	healthHandler.Register(cfg.SearchEngine, index.Ping)
	if a.redis != nil {
		healthHandler.RegisterOptional("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
	}

	// HTTP router.
	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	a.stopLimiter = stopLimiter

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(handler.Services{
		Searcher:  searchPlanner,
		Catalog:   catalog,
		Reindexer: a.reindexer,
	}, healthHandler, handler.RouterConfig{
		ServiceName:    config.ServiceName,
		CORS:           cors,
		RequestTimeout: cfg.HTTPRequestTimeout,
		SearchLimiter:  middleware.NewRateLimiter(limiterCtx, cfg.SearchRateLimitRPS, cfg.SearchRateLimitBurst, logger),
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return nil
}

// subscribe builds the consumers applying product events to the index.
func (a *App) subscribe(idx *indexer.Indexer) []*pkgkafka.Consumer {
	var store pkgkafka.IdempotencyStore
	if a.redis != nil {
		store = pkgkafka.NewRedisIdempotencyStore(a.redis, config.ServiceName+":events:", idempotencyTTL)
	} else {
		store = pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	}
	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)

	consumer := event.NewConsumer(idx, a.logger).Subscribe(event.GroupConfig{
		Brokers: a.cfg.KafkaBrokers,
		GroupID: a.cfg.KafkaConsumerGroup,
		Store:   store,
		DLQ:     a.dlq,
	})
	a.logger.Info("kafka consumer initialized",
		slog.String("group", a.cfg.KafkaConsumerGroup),
		slog.String("topic", consumer.Topic()),
	)
	return []*pkgkafka.Consumer{consumer}
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer %s: %w", c.Topic(), err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed, shutting down", slog.String("error", runErr.Error()))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka consumers and producers, Redis, PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush after the HTTP drain so spans of in-flight requests are kept.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error",
				slog.String("topic", c.Topic()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeResources())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp may have opened. It is safe to
// call on a partially initialized App.
func (a *App) closeResources() error {
	var errs []error

	if a.stopLimiter != nil {
		a.stopLimiter()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.dlq = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.tracerShutdown != nil {
		_ = a.tracerShutdown(context.Background())
		a.tracerShutdown = nil
	}
	return errors.Join(errs...)
}

func registerCollector(c prometheus.Collector, logger *slog.Logger) {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			logger.Warn("failed to register collector", slog.String("error", err.Error()))
		}
	}
}
