package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 3 * time.Second

// RedisConfig holds Redis connection configuration. Zero timeouts fall back
// to three seconds; a zero PoolSize uses the go-redis default.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c RedisConfig) options() *redis.Options {
	orDefault := func(d time.Duration) time.Duration {
		if d <= 0 {
			return defaultRedisTimeout
		}
		return d
	}
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  orDefault(c.DialTimeout),
		ReadTimeout:  orDefault(c.ReadTimeout),
		WriteTimeout: orDefault(c.WriteTimeout),
	}
}

// NewRedisClient connects to Redis and fails fast if the server does not
// answer PING.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(cfg.options())

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
