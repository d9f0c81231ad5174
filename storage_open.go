package authstate

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authstate/storage"
	"github.com/redis/go-redis/v9"
)

// OpenStorage builds the token storage backend selected by cfg. The returned
// close function releases backend resources and is never nil.
func OpenStorage(ctx context.Context, cfg StorageConfig) (storage.TokenStorage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", StorageMemory:
		return storage.NewMemory(), noop, nil

	case StorageFile:
		if cfg.FilePath == "" {
			return nil, noop, fmt.Errorf("file backend requires a path")
		}
		return storage.NewFileStorage(cfg.FilePath), noop, nil

	case StorageRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, noop, fmt.Errorf("%w: redis ping: %v", ErrStorageUnavailable, err)
		}
		return storage.NewRedisStorage(rdb, cfg.RedisPrefix), rdb.Close, nil

	case StorageSQLite:
		sq, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return sq, sq.Close, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownStorageBackend, cfg.Backend)
	}
}
