package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hasan-mia/techstore-ui/internal/catalog"
	"github.com/hasan-mia/techstore-ui/internal/config"
	"github.com/hasan-mia/techstore-ui/internal/event"
	handler "github.com/hasan-mia/techstore-ui/internal/handler/http"
	"github.com/hasan-mia/techstore-ui/internal/session"
	"github.com/hasan-mia/techstore-ui/internal/storage"
	"github.com/hasan-mia/techstore-ui/pkg/health"
	"github.com/hasan-mia/techstore-ui/pkg/httpclient"
	pkgkafka "github.com/hasan-mia/techstore-ui/pkg/kafka"
	"github.com/hasan-mia/techstore-ui/pkg/middleware"
	"github.com/hasan-mia/techstore-ui/pkg/tracing"
)

const (
	serviceName = "storefront"
	dedupTTL    = 24 * time.Hour
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	backend        *backend
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	router         func(ctx context.Context) http.Handler
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(serviceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("tracer shutdown error", slog.String("error", shutdownErr.Error()))
		}
		return nil, err
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		backend:        be,
		tracerShutdown: tracerShutdown,
	}

	// Events. Without brokers, mutations are still persisted but not published.
	var publisher session.Publisher = event.Nop{}
	if cfg.KafkaEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = event.NewProducer(a.producer, logger)
	} else {
		logger.Info("no kafka brokers configured, domain events disabled")
	}

	// Product catalog behind retry, circuit breaker and a shared cache.
	httpClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("catalog"),
		logger,
	)
	products := catalog.NewCachedProvider(
		catalog.NewHTTPProvider(httpClient, cfg.ProductAPIURL),
		storage.NewAdapter(be.kv, cfg.ProductCacheTTL(), logger),
		logger,
	)

	if cfg.KafkaEnabled() {
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.ConsumerGroup,
			Topic:    cfg.CatalogEventsTopic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, pkgkafka.IdempotentHandler(
			event.NewDedupStore(be.kv, dedupTTL),
			catalog.InvalidationHandler(products, logger),
			logger,
		), a.dlq, logger)
	}

	sessions := session.NewProvider(storage.NewAdapter(be.kv, cfg.StateTTL(), logger), publisher, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("storage", be.kv.Ping)
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	var validate middleware.TokenValidator
	if cfg.JWTSecret != "" {
		validate = middleware.NewJWTValidator(cfg.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set, only guest sessions are accepted")
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	a.router = func(ctx context.Context) http.Handler {
		return handler.NewRouter(ctx, handler.RouterConfig{
			Sessions:       sessions,
			Catalog:        products,
			Health:         healthHandler,
			Logger:         logger,
			TokenValidator: validate,
			RateLimit:      middleware.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
			CORS:           cors,
			PprofCIDRs:     cfg.PprofCIDRs,
		})
	}

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server, the catalog consumer, and the state sweeper,
// then blocks until ctx is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	a.httpServer.Handler = a.router(gctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error {
			if err := a.consumer.Start(gctx); err != nil {
				return fmt.Errorf("catalog consumer: %w", err)
			}
			return nil
		})
	}

	if a.backend.expirer != nil {
		g.Go(func() error {
			runSweeper(gctx, a.backend.expirer, a.cfg.SweepInterval(), a.logger)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("shutdown signal received")
		}
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka consumer, Kafka producers, storage.
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

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.backend.close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s with ±25% jitter between them).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
