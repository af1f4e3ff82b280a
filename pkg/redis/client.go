package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/tradebot/pkg/config"
)

// Client wraps the Redis client with additional utilities
// ⭐ SSOT: Redis connections are managed only here
type Client struct {
	rdb     *redis.Client
	prefix  string
	enabled bool
}

// New creates a new Redis client
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{prefix: cfg.Redis.Prefix, enabled: false}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{
		rdb:     rdb,
		prefix:  cfg.Redis.Prefix,
		enabled: true,
	}, nil
}

// Wrap builds a Client around an existing go-redis client
func Wrap(rdb *redis.Client, prefix string) *Client {
	return &Client{rdb: rdb, prefix: prefix, enabled: rdb != nil}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Prefix returns the namespace every key is stored under
func (c *Client) Prefix() string {
	return c.prefix
}

// Redis returns the underlying redis client for advanced usage
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
