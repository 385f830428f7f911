package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/types"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace = "sf"
	linesKey     = keyNamespace + ":cart:lines"
	sessionKey   = keyNamespace + ":cart:session"
)

// RedisStore mirrors the cart into redis. Used by harness deployments where
// several processes share one shopper session, which mirrors the multi-tab
// reality of the browser storefront.
type RedisStore struct {
	client *redis.Client
}

// NewRedis bootstraps the redis mirror and verifies connectivity.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func (s *RedisStore) LoadLines(ctx context.Context) ([]types.CartLine, error) {
	raw, err := s.client.Get(ctx, linesKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load mirrored cart: %w", err)
	}
	var lines []types.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode mirrored cart: %w", err)
	}
	return lines, nil
}

func (s *RedisStore) SaveLines(ctx context.Context, lines []types.CartLine) error {
	encoded, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode mirrored cart: %w", err)
	}
	if err := s.client.Set(ctx, linesKey, encoded, 0).Err(); err != nil {
		return fmt.Errorf("write mirrored cart: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadSessionID(ctx context.Context) (string, error) {
	sessionID, err := s.client.Get(ctx, sessionKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session id: %w", err)
	}
	return sessionID, nil
}

func (s *RedisStore) SaveSessionID(ctx context.Context, sessionID string) error {
	if err := s.client.Set(ctx, sessionKey, sessionID, 0).Err(); err != nil {
		return fmt.Errorf("write session id: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
