package database

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings for the event deduplication
// store. Zero values fall back to go-redis defaults, except ConnectAttempts
// which means a single ping.
type RedisConfig struct {
	Host            string
	Port            int
	Password        string
	DB              int
	PoolSize        int
	DialTimeout     time.Duration
	ConnectAttempts int
}

// Addr returns the host:port address.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c RedisConfig) options() *redis.Options {
	return &redis.Options{
		Addr:        c.Addr(),
		Password:    c.Password,
		DB:          c.DB,
		PoolSize:    c.PoolSize,
		DialTimeout: c.DialTimeout,
	}
}

// NewRedisClient creates a Redis client and pings it, retrying with backoff
// up to ConnectAttempts times. The client is closed when every ping fails.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(cfg.options())

	err := Retry(ctx, "redis ping", cfg.ConnectAttempts, logger, nil, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}
