// internal/infrastructure/database/redis/connection.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
)

const (
	connectTimeout = 5 * time.Second
	pingTimeout    = 3 * time.Second
)

// Client owns the Redis pool behind the rate limiter and the readiness probe.
// Nothing in the ledger depends on it.
type Client struct {
	rdb    *redis.Client
	logger *logrus.Logger
}

// Options maps the Redis section of the configuration onto go-redis options
func Options(cfg *config.Config) *redis.Options {
	poolSize := cfg.Redis.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	return &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     poolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  connectTimeout,
		ReadTimeout:  pingTimeout,
		WriteTimeout: pingTimeout,
		PoolTimeout:  pingTimeout + time.Second,
	}
}

// NewConnection opens the pool and fails fast when the server does not answer
func NewConnection(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	opts := Options(cfg)
	c := &Client{rdb: redis.NewClient(opts), logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.Health(ctx); err != nil {
		c.rdb.Close()
		return nil, fmt.Errorf("failed to reach Redis at %s: %w", opts.Addr, err)
	}

	logger.WithFields(logrus.Fields{
		"addr":      opts.Addr,
		"db":        opts.DB,
		"pool_size": opts.PoolSize,
	}).Info("Redis connected")

	return c, nil
}

// Client returns the underlying go-redis client
func (c *Client) Client() *redis.Client {
	return c.rdb
}

// Health pings the server, bounded by pingTimeout when ctx has no earlier deadline
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close logs pool usage and releases the connections
func (c *Client) Close() error {
	stats := c.rdb.PoolStats()
	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"timeouts": stats.Timeouts,
	}).Info("Closing Redis pool")
	return c.rdb.Close()
}
