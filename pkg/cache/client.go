// Package cache coordinates reference reloads across replicas through Redis
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"
)

const (
	ReloadLockKey       = "symtag:reference-reload"
	ReferenceVersionKey = "symtag:reference-version"

	connectTimeout = 5 * time.Second
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Client is the Redis connection shared by the reload lock and version watcher
type Client struct {
	rdb    *redis.Client
	logger ectologger.Logger
}

// NewClient connects and pings, failing fast so startup can retry
func NewClient(ctx context.Context, cfg Config, logger ectologger.Logger) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: connectTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", addr, err)
	}

	logger.WithContext(ctx).WithFields(map[string]any{"addr": addr, "db": cfg.DB}).Info("Reload coordination connected")
	return &Client{rdb: rdb, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping is the readiness check
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Version returns the shared reference version, 0 when nothing was published
func (c *Client) Version(ctx context.Context) (int64, error) {
	version, err := c.rdb.Get(ctx, ReferenceVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// PublishVersion bumps the shared reference version and returns the new value
func (c *Client) PublishVersion(ctx context.Context) (int64, error) {
	return c.rdb.Incr(ctx, ReferenceVersionKey).Result()
}
