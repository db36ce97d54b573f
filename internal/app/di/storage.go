// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"forum_backend/internal/platform/config"
	"forum_backend/internal/platform/db"
	"forum_backend/internal/platform/kv"
	redisclient "forum_backend/internal/platform/redis"
)

const dbConnectTimeout = 30 * time.Second

// Storage is the selected backend plus whatever must be closed on shutdown.
type Storage struct {
	Backend kv.Backend
	closers []func() error
}

// Close releases the backend connections.
func (s *Storage) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewStorage opens the backend named by cfg.StorageDriver.
//
// With "auto", Redis is used when reachable, otherwise Postgres when configured,
// otherwise the in-memory fallback. The fallback loses every record on restart,
// so it is logged loudly and reported as such in the system status.
func NewStorage(ctx context.Context, cfg config.Config) (*Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageRedis:
		return openRedis(ctx, cfg)
	case config.StoragePostgres, config.StorageSQLite:
		return openSQL(ctx, cfg)
	case config.StorageMongo:
		return openMongo(ctx, cfg)
	case config.StorageMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		return &Storage{Backend: kv.NewMemoryBackend()}, nil
	case config.StorageAuto, "":
		return openAuto(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func openAuto(ctx context.Context, cfg config.Config) (*Storage, error) {
	if cfg.Redis.Configured() {
		s, err := openRedis(ctx, cfg)
		if err == nil {
			return s, nil
		}
		slog.Warn("Redis unavailable, trying next backend", "error", err)
	}
	if cfg.DB.Configured() {
		s, err := openSQL(ctx, cfg)
		if err == nil {
			return s, nil
		}
		slog.Warn("database unavailable, falling back to memory", "error", err)
	}
	slog.Warn("no durable storage available; using in-memory fallback, data is lost on restart")
	return &Storage{Backend: kv.NewMemoryBackend()}, nil
}

func openRedis(ctx context.Context, cfg config.Config) (*Storage, error) {
	rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Storage{Backend: kv.NewRedisBackend(rdb), closers: []func() error{rdb.Close}}, nil
}

func openSQL(ctx context.Context, cfg config.Config) (*Storage, error) {
	gdb, err := db.Open(cfg.DB, dbConnectTimeout)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	b := kv.NewSQLBackend(gdb, "")
	if err := b.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	slog.Info("SQL storage ready", "dialect", b.Name())
	return &Storage{Backend: b, closers: []func() error{sqlDB.Close}}, nil
}

func openMongo(ctx context.Context, cfg config.Config) (*Storage, error) {
	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI is required for the mongo storage driver")
	}
	mdb, err := kv.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	slog.Info("MongoDB storage ready", "database", cfg.MongoDB)
	return &Storage{
		Backend: kv.NewMongoBackend(mdb, ""),
		closers: []func() error{func() error { return mdb.Client().Disconnect(context.Background()) }},
	}, nil
}
