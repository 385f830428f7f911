package cartstore

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/types"
)

// Store is the durable local mirror of the cart. It is read once at startup
// and written after every settled mutation; when the backend is unreachable
// it becomes the only source of truth.
type Store interface {
	LoadLines(ctx context.Context) ([]types.CartLine, error)
	SaveLines(ctx context.Context, lines []types.CartLine) error
	LoadSessionID(ctx context.Context) (string, error)
	SaveSessionID(ctx context.Context, sessionID string) error
	Close() error
}

// New selects a mirror backend from configuration.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	switch cfg.Mirror.NormalizedBackend() {
	case config.MirrorBackendSQLite:
		return NewSQLite(cfg.Mirror.SQLitePath)
	case config.MirrorBackendRedis:
		return NewRedis(ctx, cfg.Redis)
	case config.MirrorBackendMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown mirror backend %q", cfg.Mirror.Backend)
}
