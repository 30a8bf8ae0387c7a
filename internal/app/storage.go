package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hasan-mia/techstore-ui/internal/config"
	"github.com/hasan-mia/techstore-ui/internal/storage"
	"github.com/hasan-mia/techstore-ui/internal/storage/memory"
	pgstore "github.com/hasan-mia/techstore-ui/internal/storage/postgres"
	redisstore "github.com/hasan-mia/techstore-ui/internal/storage/redis"
	"github.com/hasan-mia/techstore-ui/migrations"
	"github.com/hasan-mia/techstore-ui/pkg/database"
)

// expirer is implemented by backends that do not expire entries on their own.
type expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// backend is the storage selected by STORAGE_BACKEND.
type backend struct {
	name    string
	kv      storage.KV
	expirer expirer
	close   func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return &backend{
			name:  config.BackendRedis,
			kv:    redisstore.NewStore(rdb, "storefront:"),
			close: func() { _ = rdb.Close() },
		}, nil

	case config.BackendPostgres:
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
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		store := pgstore.NewStore(pool)
		return &backend{name: config.BackendPostgres, kv: store, expirer: store, close: pool.Close}, nil

	case config.BackendMemory:
		store := memory.NewStore()
		logger.Warn("using in-memory session storage; state is lost on restart and not shared between instances")
		return &backend{name: config.BackendMemory, kv: store, expirer: store, close: func() {}}, nil

	case config.BackendNone:
		logger.Warn("session storage disabled; carts and wishlists will not persist")
		return &backend{name: config.BackendNone, kv: storage.Nop{}, close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// runSweeper deletes expired entries every interval until ctx is done.
func runSweeper(ctx context.Context, e expirer, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, e, logger)
		}
	}
}

func sweepOnce(ctx context.Context, e expirer, logger *slog.Logger) {
	removed, err := e.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("expired state sweep failed", slog.String("error", err.Error()))
		}
		return
	}
	if removed > 0 {
		logger.Info("expired session state removed", slog.Int64("removed", removed))
	}
}
