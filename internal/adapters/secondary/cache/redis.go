package cache

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisOptions holds the connection settings for Redis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis. An unreachable server is logged, not
// fatal; commands will fail until it comes up.
func NewRedisClient(ctx context.Context, opts RedisOptions, logger *slog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", "addr", opts.Addr, "error", err)
	} else {
		logger.Info("connected to redis", "addr", opts.Addr)
	}
	return client
}
