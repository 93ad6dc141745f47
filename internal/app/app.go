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

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/config"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/event"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/feed"
	handler "github.com/najeemsuhail/ecommerce-store-sub000/internal/handler/http"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/index"
	esindex "github.com/najeemsuhail/ecommerce-store-sub000/internal/index/elasticsearch"
	indexmemory "github.com/najeemsuhail/ecommerce-store-sub000/internal/index/memory"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository/memory"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/repository/postgres"
	"github.com/najeemsuhail/ecommerce-store-sub000/internal/service"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/database"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/health"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/httpclient"
	pkgkafka "github.com/najeemsuhail/ecommerce-store-sub000/pkg/kafka"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/tracing"
)

const (
	serviceName    = "catalog"
	serviceVersion = "1.0.0"

	idempotencyPrefix = "catalog:events:"
	idempotencyTTL    = 24 * time.Hour
)

// waiter is a background syncer that can be drained on shutdown.
type waiter interface {
	Wait()
}

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool          *pgxpool.Pool
	redis         *redis.Client
	producer      *pkgkafka.Producer
	consumer      *pkgkafka.Consumer
	syncer        waiter
	httpServer    *http.Server
	traceShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	traceShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.traceShutdown = traceShutdown
	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)

	repos, err := a.initStorage(ctx, healthHandler)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	idx, err := a.initIndex(ctx, healthHandler)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	if cfg.SearchCacheEnabled {
		a.redis, err = database.NewRedisClient(ctx, cfg.RedisConfig())
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		healthHandler.Register("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
		logger.Info("search result cache enabled",
			slog.String("addr", cfg.RedisConfig().Addr()),
			slog.Duration("ttl", cfg.SearchCacheTTL),
		)
	}

	// Index sync: Kafka round trip when enabled, otherwise direct.
	var (
		indexer *service.Indexer
		syncer  service.IndexSyncer
	)
	if idx != nil {
		indexer = service.NewIndexer(repos, idx, logger)
		if cfg.KafkaEnabled {
			syncer = a.initKafka(indexer, healthHandler)
		} else {
			direct := service.NewDirectSyncer(indexer, cfg.IndexSyncTimeout, logger)
			a.syncer = direct
			syncer = direct
		}
	}

	importService := service.NewImportService(repos, syncer, service.ImportConfig{
		Concurrency:   cfg.ImportConcurrency,
		MaxErrors:     cfg.ImportMaxErrors,
		DefaultSource: cfg.ImportDefaultSource,
	}, logger)

	var cache service.ResultCache
	if a.redis != nil {
		cache = service.NewRedisResultCache(a.redis, cfg.SearchCacheTTL, logger)
	}
	searchService := service.NewSearchService(repos, idx, cache, service.SearchConfig{
		UnionWindow:  cfg.UnionWindow,
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	}, logger)

	feedClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("catalog-feeds"),
		logger,
	)
	fetcher := feed.NewFetcher(feedClient, feed.FetcherConfig{
		PageSize:    cfg.FeedPageSize,
		PageTimeout: cfg.FeedPageTimeout,
	}, logger)

	deps := handler.Dependencies{
		Search:    searchService,
		Importer:  importService,
		Feeds:     feed.NewSyncer(fetcher, importService, cfg.FeedURLs, cfg.ImportChunkSize, logger),
		ChunkSize: cfg.ImportChunkSize,
	}
	if indexer != nil {
		deps.Indexer = indexer
	}
	router := handler.NewRouter(deps, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

func (a *App) initStorage(ctx context.Context, healthHandler *health.Handler) (service.Repositories, error) {
	switch a.cfg.StorageDriver {
	case config.StorageMemory:
		store := memory.NewStore()
		a.logger.Warn("using in-memory storage; data is lost on restart")
		return service.Repositories{
			Products:   store.Products(),
			Variants:   store.Variants(),
			Categories: store.Categories(),
			Attributes: store.Attributes(),
			Reviews:    store.Reviews(),
		}, nil
	default:
		pool, err := database.NewPostgresPool(ctx, a.cfg.PostgresConfig(), a.logger)
		if err != nil {
			return service.Repositories{}, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool

		if err := database.RunMigrations(ctx, pool, postgres.Migrations(), a.logger); err != nil {
			return service.Repositories{}, fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}
		healthHandler.Register("postgres", pool.Ping)

		return service.Repositories{
			Products:   postgres.NewProductRepository(pool),
			Variants:   postgres.NewVariantRepository(pool),
			Categories: postgres.NewCategoryRepository(pool),
			Attributes: postgres.NewAttributeRepository(pool),
			Reviews:    postgres.NewReviewRepository(pool),
		}, nil
	}
}

// initIndex returns nil when no search index is configured.
func (a *App) initIndex(ctx context.Context, healthHandler *health.Handler) (index.Index, error) {
	switch a.cfg.SearchEngine {
	case config.SearchElasticsearch:
		eng, err := esindex.New(ctx, a.cfg.ElasticsearchURL, a.cfg.ElasticsearchIndex, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch index: %w", err)
		}
		healthHandler.Register("elasticsearch", eng.Ping)
		a.logger.Info("elasticsearch index initialized",
			slog.String("url", a.cfg.ElasticsearchURL),
			slog.String("index", a.cfg.ElasticsearchIndex),
		)
		return index.NewBounded(eng, a.cfg.IndexTimeout), nil
	case config.SearchMemory:
		a.logger.Info("in-memory search index initialized")
		return index.NewBounded(indexmemory.New(), a.cfg.IndexTimeout), nil
	default:
		a.logger.Info("search index disabled; text search uses storage matching")
		return nil, nil
	}
}

// initKafka publishes product.upserted events after every committed row and
// consumes them to keep the index current.
func (a *App) initKafka(indexer *service.Indexer, healthHandler *health.Handler) service.IndexSyncer {
	a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
	events := event.NewProducer(a.producer, a.cfg.IndexSyncTimeout, a.logger)
	a.syncer = events

	var store pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	if a.redis != nil {
		store = pkgkafka.NewRedisIdempotencyStore(a.redis, idempotencyPrefix, idempotencyTTL)
	}
	a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  a.cfg.KafkaBrokers,
		GroupID:  a.cfg.KafkaGroupID,
		Topic:    event.TopicProductUpserted,
		MinBytes: 1,
		MaxBytes: 10e6, // 10 MB
	}, event.NewConsumer(indexer, a.logger).Handler(store), a.logger)

	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, a.cfg.KafkaBrokers)
	})
	a.logger.Info("kafka index sync initialized",
		slog.Any("brokers", a.cfg.KafkaBrokers),
		slog.String("topic", event.TopicProductUpserted),
		slog.String("group_id", a.cfg.KafkaGroupID),
	)
	return events
}

// Run starts the HTTP server and the Kafka consumer, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// Pending index syncs still need the producer and storage.
	if a.syncer != nil {
		a.syncer.Wait()
	}

	errs = append(errs, a.closeAll()...)

	if err := a.traceShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeAll releases backing connections opened so far.
func (a *App) closeAll() []error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}
