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
	goredis "github.com/redis/go-redis/v9"

	"github.com/ImMohammedAbdulla/Backend-app/internal/auth"
	"github.com/ImMohammedAbdulla/Backend-app/internal/config"
	"github.com/ImMohammedAbdulla/Backend-app/internal/event"
	handler "github.com/ImMohammedAbdulla/Backend-app/internal/handler/http"
	"github.com/ImMohammedAbdulla/Backend-app/internal/repository"
	"github.com/ImMohammedAbdulla/Backend-app/internal/repository/postgres"
	rediscache "github.com/ImMohammedAbdulla/Backend-app/internal/repository/redis"
	"github.com/ImMohammedAbdulla/Backend-app/internal/service"
	"github.com/ImMohammedAbdulla/Backend-app/internal/storage"
	"github.com/ImMohammedAbdulla/Backend-app/internal/storage/memory"
	s3storage "github.com/ImMohammedAbdulla/Backend-app/internal/storage/s3"
	"github.com/ImMohammedAbdulla/Backend-app/migrations"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/database"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/health"
	pkgkafka "github.com/ImMohammedAbdulla/Backend-app/pkg/kafka"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/tracing"
)

const (
	serviceName    = "identity"
	serviceVersion = "0.1.0"
)

// App wires together all dependencies and runs the identity service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		Insecure:       cfg.OTELInsecure,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPoolWithLogger(ctx, &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		_ = a.closeStores()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThreshold > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	// Identity cache. A nil interface value disables caching.
	var identityCache repository.IdentityCache
	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:        cfg.RedisHost,
			Port:        cfg.RedisPort,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: 5 * time.Second,
		})
		if err != nil {
			_ = a.closeStores()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		identityCache = rediscache.NewIdentityCache(client, cfg.IdentityCacheTTL)
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		logger.Info("identity cache enabled", slog.Duration("ttl", cfg.IdentityCacheTTL))
	}

	// Domain events.
	var events service.EventPublisher = event.Discard{}
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.producer = producer
		events = event.NewProducer(producer, logger)
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Media storage.
	var (
		store storage.Storage
		media http.Handler
	)
	switch cfg.StorageBackend {
	case "s3":
		s3Store, err := s3storage.New(ctx, s3storage.Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		}, logger)
		if err != nil {
			_ = a.closeStores()
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		store = s3Store
		healthHandler.RegisterNonCritical("s3", s3Store.Ping)
	default:
		memStore := memory.New(cfg.MediaBaseURL)
		store, media = memStore, memStore
	}
	logger.Info("media storage initialized", slog.String("backend", cfg.StorageBackend))

	// Build the dependency graph.
	tokenManager := auth.NewTokenManager(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenExpiry,
		cfg.RefreshTokenExpiry,
	)
	userRepo := postgres.NewUserRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	videoRepo := postgres.NewVideoRepository(pool)
	aggregateRepo := postgres.NewAggregateRepository(pool)

	tokenService := service.NewTokenService(userRepo, tokenManager, logger)
	userService := service.NewUserService(userRepo, tokenService, store, identityCache, events, logger)
	channelService := service.NewChannelService(aggregateRepo, subscriptionRepo, userRepo, events, logger)
	videoService := service.NewVideoService(videoRepo, userRepo, identityCache, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Users:         userService,
		Channels:      channelService,
		Videos:        videoService,
		Health:        healthHandler,
		Logger:        logger,
		CORSOrigins:   cfg.CORSAllowedOrigins,
		SecureCookies: cfg.CookieSecure,
		MaxUpload:     cfg.MaxUploadBytes,
		Media:         media,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

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

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, Redis, PostgreSQL pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Drain in-flight HTTP requests.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush spans from drained requests.
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

	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var err error
	if a.redis != nil {
		if err = a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return err
}
