// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, document locks) that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/archivist/internal/config"
	"github.com/JaimeStill/archivist/pkg/database"
	"github.com/JaimeStill/archivist/pkg/keylock"
	"github.com/JaimeStill/archivist/pkg/lifecycle"
)

// Infrastructure holds the core systems required by all domain modules.
// Redis is nil when document locks are kept in process.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Locker    keylock.Locker
	Redis     *redis.Client
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	infra := &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Locker:    keylock.NewMemory(),
	}

	if cfg.Lock.Distributed() {
		opts, err := redis.ParseURL(cfg.Lock.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("lock init failed: %w", err)
		}
		infra.Redis = redis.NewClient(opts)
		infra.Locker = keylock.NewRedis(
			infra.Redis,
			cfg.Lock.TTLDuration(),
			cfg.Lock.RetryDuration(),
			logger,
		)
	}

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if i.Redis != nil {
		i.startRedis()
	}
	return nil
}

func (i *Infrastructure) startRedis() {
	logger := i.Logger.With("system", "redis")

	i.Lifecycle.OnStartup(func() {
		ctx, cancel := context.WithTimeout(i.Lifecycle.Context(), 5*time.Second)
		defer cancel()

		if err := i.Redis.Ping(ctx).Err(); err != nil {
			logger.Error("redis ping failed", "error", err)
			return
		}
		logger.Info("redis connection established")
	})

	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()
		if err := i.Redis.Close(); err != nil {
			logger.Error("redis close failed", "error", err)
			return
		}
		logger.Info("redis connection closed")
	})
}
