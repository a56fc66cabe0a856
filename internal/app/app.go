package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ConnorDW-SA/marketplace/internal/config"
	"github.com/ConnorDW-SA/marketplace/internal/event"
	handler "github.com/ConnorDW-SA/marketplace/internal/handler/http"
	"github.com/ConnorDW-SA/marketplace/internal/query"
	"github.com/ConnorDW-SA/marketplace/internal/repository"
	"github.com/ConnorDW-SA/marketplace/internal/repository/memory"
	"github.com/ConnorDW-SA/marketplace/internal/repository/mongodb"
	"github.com/ConnorDW-SA/marketplace/internal/repository/postgres"
	"github.com/ConnorDW-SA/marketplace/internal/service"
	"github.com/ConnorDW-SA/marketplace/pkg/database"
	"github.com/ConnorDW-SA/marketplace/pkg/health"
	pkgkafka "github.com/ConnorDW-SA/marketplace/pkg/kafka"
	"github.com/ConnorDW-SA/marketplace/pkg/tracing"
)

// ServiceName identifies the service in logs, traces and metrics.
const ServiceName = "catalog-service"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	repo           repository.ProductRepository
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	closeStore     func(context.Context) error
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	}

	healthHandler := health.NewHandler()

	repo, closeStore, err := openStore(ctx, cfg, healthHandler, logger)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}

	// Kafka is optional; without it events are dropped.
	var (
		producer      *pkgkafka.Producer
		eventProducer *event.Producer
	)
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(cfg.Kafka(), logger)
		if err := producer.Ping(ctx); err != nil {
			logger.Warn("kafka producer ping failed, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		eventProducer = event.NewProducer(producer, logger)
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	} else {
		eventProducer = event.NewProducer(nil, logger)
		logger.Info("kafka disabled, product events will not be published")
	}

	// Build the dependency graph.
	productService := service.NewProductService(repo, eventProducer, logger)
	reviewService := service.NewReviewService(repo, eventProducer, logger)

	productHandler := handler.NewProductHandler(productService, query.NewParser(cfg.QueryLimits()), cfg.BaseURL(), logger)
	reviewHandler := handler.NewReviewHandler(reviewService, logger)

	router := handler.NewRouter(productHandler, reviewHandler, healthHandler, handler.RouterConfig{
		CORS:           cfg.CORS(),
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		repo:           repo,
		producer:       producer,
		httpServer:     httpServer,
		closeStore:     closeStore,
		tracerShutdown: tracerShutdown,
	}, nil
}

// openStore connects the configured product store and registers its
// readiness check. The returned function releases the connection.
func openStore(ctx context.Context, cfg *config.Config, healthHandler *health.Handler, logger *slog.Logger) (repository.ProductRepository, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		mongoCfg := cfg.Mongo()
		mongoCfg.PoolMonitor = database.NewMongoPoolMetrics(prometheus.DefaultRegisterer, ServiceName).Monitor()

		client, err := database.NewMongoClient(ctx, &mongoCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongo: %w", err)
		}
		logger.Info("connected to MongoDB",
			slog.String("database", cfg.MongoDatabase),
			slog.String("collection", cfg.MongoCollection),
		)

		repo := mongodb.NewProductRepository(client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}

		healthHandler.RegisterCritical("mongo", database.MongoPinger(client))
		return repo, client.Disconnect, nil

	case config.DriverPostgres:
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)

		if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		healthHandler.RegisterCritical("postgres", pool.Ping)
		return postgres.NewProductRepository(pool), func(context.Context) error {
			pool.Close()
			return nil
		}, nil

	default:
		logger.Warn("using in-memory product store, data is lost on restart")
		repo := memory.NewProductRepository()
		healthHandler.RegisterCritical("memory", repo.Ping)
		return repo, func(context.Context) error { return nil }, nil
	}
}

// Handler returns the application's HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("store", a.cfg.StoreDriver),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, store.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
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

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.closeStore != nil {
		storeCtx, storeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer storeCancel()
		if err := a.closeStore(storeCtx); err != nil {
			a.logger.Error("store close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
