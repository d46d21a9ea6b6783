package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thenoetrevino/collabflow/internal/config"
	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/docstore/badgerstore"
	"github.com/thenoetrevino/collabflow/internal/docstore/memstore"
	"github.com/thenoetrevino/collabflow/internal/docstore/redisstore"
	"github.com/thenoetrevino/collabflow/internal/docstore/sqlstore"
)

// OpenStore opens the configured document store backend.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (docstore.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memstore.New(), nil

	case config.BackendSQLite:
		if err := ensureDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, err
		}
		store, err := sqlstore.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.BackendBadger:
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		store, err := badgerstore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.BackendRedis:
		store, err := redisstore.Dial(ctx, cfg.RedisURL, redisstore.WithPrefix(cfg.Prefix))
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}
