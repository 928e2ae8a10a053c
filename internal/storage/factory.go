package storage

import (
	"context"
	"fmt"

	"drawflow-backend/internal/config"
)

// New opens the store selected by cfg.Type. A "none" type, or a backend
// that cannot be reached, yields ErrStoreUnavailable so callers can run
// without persistence.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStorage(cfg.LegacyFile), nil

	case "disk", "":
		d := NewDiskStorage(cfg.DataDir, cfg.CacheSize, cfg.LegacyFile)
		if err := d.Init(); err != nil {
			return nil, err
		}
		return d, nil

	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, cfg.LegacyFile)

	case "redis":
		return NewRedisStorage(ctx, cfg.RedisURL, cfg.RedisKey, cfg.LegacyFile)

	case "none":
		return nil, ErrStoreUnavailable

	default:
		return nil, fmt.Errorf("%w: unknown storage type %q", ErrStorageInit, cfg.Type)
	}
}
