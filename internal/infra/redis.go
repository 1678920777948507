// README: Redis client initialization for notification idempotency keys.
package infra

import "github.com/redis/go-redis/v9"

// NewRedis returns nil when no address is configured.
func NewRedis(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}
