// Package redis mirrors the live order book and carries book and simulation
// events between processes using go-redis/v9.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
	// DialTimeout bounds the initial connect; zero keeps the driver default.
	DialTimeout time.Duration
}

// Client is the connection shared by the BookMirror and the SignalBus.
type Client struct {
	rdb *redis.Client
}

// New dials Redis and verifies it with PING, so a process configured with
// Redis refuses to start without it.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{rdb: redis.NewClient(opts)}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// options translates cfg into driver options. With TLS on, the server name
// is taken from the host part of Addr.
func options(cfg ClientConfig) (*redis.Options, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis: addr is required")
	}
	opts := &redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: cfg.DialTimeout,
	}
	if cfg.TLSEnabled {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("redis: addr %q: %w", cfg.Addr, err)
		}
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// Ping round-trips to the server; it doubles as the health probe.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying exposes the driver to the mirror and bus in this package.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
