// Package redis connects the go-redis client the dev bridge stores blobs in.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vaultid/internal/platform/config"
)

const dialTimeout = 5 * time.Second

// Connect parses cfg.URL and pings the server once. Each bridge invocation makes a
// handful of commands and exits, so the pool holds a single connection.
func Connect(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis.url is not configured")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = dialTimeout
	opts.PoolSize = 1

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
