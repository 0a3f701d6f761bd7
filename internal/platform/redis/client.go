// Package redis opens the Redis connection shared by the login limiter and
// the session revocation list.
package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"govportal/internal/platform/config"
)

// Client is the shared connection. The embedded client is what the stores use.
type Client struct {
	*goredis.Client
	addr string
}

// New connects and pings. It returns nil, nil when no URL is configured so
// callers fall back to the in-memory stores.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, nil
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	client := goredis.NewClient(opts)
	pingCtx := ctx
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", opts.Addr, err)
	}
	return &Client{Client: client, addr: opts.Addr}, nil
}

// Options parses the URL and applies the pool settings that are set. Zero
// values keep the go-redis defaults.
func Options(cfg config.RedisConfig) (*goredis.Options, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func (c *Client) Addr() string {
	return c.addr
}

// Health is registered as the /healthz redis check.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.addr, err)
	}
	return nil
}
