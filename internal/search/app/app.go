package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eloritzkovitz/voltrico/pkg/database"
	"github.com/eloritzkovitz/voltrico/pkg/health"
	"github.com/eloritzkovitz/voltrico/pkg/httpclient"
	pkgkafka "github.com/eloritzkovitz/voltrico/pkg/kafka"
	"github.com/eloritzkovitz/voltrico/pkg/tracing"

	"github.com/eloritzkovitz/voltrico/internal/search/config"
	"github.com/eloritzkovitz/voltrico/internal/search/engine"
	esengine "github.com/eloritzkovitz/voltrico/internal/search/engine/elasticsearch"
	"github.com/eloritzkovitz/voltrico/internal/search/engine/memory"
	"github.com/eloritzkovitz/voltrico/internal/search/event"
	handler "github.com/eloritzkovitz/voltrico/internal/search/handler/http"
	"github.com/eloritzkovitz/voltrico/internal/search/service"
)

// App wires together all dependencies and runs the search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	consumers      []*pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	redis          *redis.Client
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "search",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Search engine.
	var eng engine.SearchEngine
	var esEng *esengine.Engine
	switch cfg.SearchEngine {
	case "elasticsearch":
		var err error
		esEng, err = esengine.New(cfg.ElasticsearchURL, cfg.ProductsIndex, cfg.OrdersIndex, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		eng = esEng
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("products_index", cfg.ProductsIndex),
			slog.String("orders_index", cfg.OrdersIndex),
		)
	default:
		eng = memory.New()
		logger.Info("in-memory search engine initialized")
	}

	// Catalog client for the reindex path, guarded by a circuit breaker.
	catalogClient := service.NewHTTPCatalogClient(
		cfg.CatalogServiceURL,
		httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("catalog"),
			logger,
		),
		logger,
	)

	searchService := service.NewSearchService(eng, catalogClient, logger)

	// Idempotency store for consumer deduplication.
	var redisClient *redis.Client
	var idemStore pkgkafka.IdempotencyStore
	if cfg.IdempotencyBackend == "redis" {
		var err error
		redisClient, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		idemStore = pkgkafka.NewRedisIdempotencyStore(redisClient, cfg.ConsumerGroup, cfg.IdempotencyTTL)
		logger.Info("redis idempotency store initialized",
			slog.String("host", cfg.RedisHost),
		)
	} else {
		idemStore = pkgkafka.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
		logger.Info("in-memory idempotency store initialized")
	}

	// Kafka consumers with DLQ and idempotent handler.
	eventConsumer := event.NewConsumer(searchService, logger)
	handlerFn := pkgkafka.IdempotentHandler(idemStore, eventConsumer.Handle, logger)

	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)

	topics := []string{
		pkgkafka.TopicProductEvents,
		pkgkafka.TopicOrderEvents,
	}

	var consumers []*pkgkafka.Consumer
	for _, topic := range topics {
		consumerCfg := pkgkafka.DefaultConsumerConfig(cfg.KafkaBrokers, cfg.ConsumerGroup, topic)
		consumerCfg.MaxRetries = cfg.ConsumerMaxRetries
		consumerCfg.RetryBackoff = cfg.ConsumerRetryBackoff
		consumerCfg.HandlerTimeout = cfg.ConsumerHandlerTimeout

		c := pkgkafka.NewConsumer(consumerCfg, handlerFn, dlq, logger)
		consumers = append(consumers, c)
	}
	logger.Info("kafka consumers initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.Int("topic_count", len(topics)),
	)

	// Health checks.
	healthHandler := health.NewHandler()
	if esEng != nil {
		healthHandler.Register("elasticsearch", esEng.Ping)
	}
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	router := handler.NewRouter(searchService, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		consumers:      consumers,
		dlq:            dlq,
		redis:          redisClient,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		c := c
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.dlq.Close(); err != nil {
		a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
