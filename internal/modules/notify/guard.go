package notify

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:generate mockgen -source ./guard.go -destination=./mocks/guard.go -package=mock_notify
type Guard interface {
	// Acquire returns true the first time key is seen within the guard's window.
	Acquire(ctx context.Context, key string) (bool, error)
}

// RedisGuard claims idempotency keys with SET NX.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, "notify:"+key, 1, g.ttl).Result()
}
