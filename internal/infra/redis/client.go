package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/planforge/api/internal/config"
	"github.com/planforge/api/pkg/logger"
)

// Client owns the single go-redis connection pool shared by the cache,
// token store, and rate limiter in this package.
type Client struct {
	client *redis.Client
	logger *logger.Logger
	cfg    *config.RedisConfig
}

// New dials Redis and verifies the connection before returning. Transient
// dial failures are retried with exponential backoff up to cfg.MaxRetries,
// which covers the common case of the server starting before Redis during
// a compose or pod rollout.
func New(cfg *config.RedisConfig, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("redis config is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	opts := &redis.Options{
		Addr:            cfg.Addr(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryDelay,
		MaxRetryBackoff: cfg.MaxRetryDelay,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
			MinVersion:         tls.VersionTLS12,
		}
		log.Info("redis TLS enabled", "skip_verify", cfg.TLSSkipVerify)
	}

	rc := redis.NewClient(opts)

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
		lastErr = rc.Ping(pingCtx).Err()
		cancel()

		if lastErr == nil {
			log.Info("redis connected",
				"addr", cfg.Addr(),
				"pool_size", cfg.PoolSize,
				"tls", cfg.TLSEnabled,
			)
			return &Client{client: rc, logger: log, cfg: cfg}, nil
		}

		if attempt == cfg.MaxRetries {
			break
		}
		backoff := cfg.MinRetryDelay * time.Duration(1<<attempt)
		if backoff > cfg.MaxRetryDelay {
			backoff = cfg.MaxRetryDelay
		}
		log.Warn("redis connection failed, retrying",
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"backoff", backoff,
			"error", lastErr,
		)
		time.Sleep(backoff)
	}

	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

// Ping checks connectivity, for health endpoints.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// PoolStats exposes connection pool statistics for the metrics collector.
func (c *Client) PoolStats() *redis.PoolStats {
	return c.client.PoolStats()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	c.logger.Info("closing redis connection")
	return c.client.Close()
}
