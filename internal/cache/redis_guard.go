package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type RedisSweepGuard struct {
	client *redis.Client
	prefix string
}

func NewRedisSweepGuard(addr string, password string, db int) *RedisSweepGuard {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisSweepGuard{client: client, prefix: "retailhub:sweep:"}
}

func (g *RedisSweepGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func (g *RedisSweepGuard) Close() error {
	return g.client.Close()
}

// Acquire sets the key only if absent; the TTL releases the claim.
func (g *RedisSweepGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}
