package redis

import (
	"context"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/common/config"

	"github.com/go-redis/redis/v8"
)

// Client aliases the go-redis client.
type Client = redis.Client

// NewRedisClient creates a client from cfg. It does not connect eagerly.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks connectivity.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes the client.
func Close(client *redis.Client) error {
	return client.Close()
}
