package snapshot

import (
	"context"
	"fmt"

	"github.com/rickgao/parkwatch/internal/config"
	"github.com/rickgao/parkwatch/internal/database"
)

// Open creates the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.SnapshotConfig) (Store, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileStore(cfg.Dir)
	case "memory":
		return NewMemoryStore(0), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	case "postgres":
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}
