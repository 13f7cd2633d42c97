package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/runash/turnauth/ports"
)

// incrWindow starts the expiry only on the first hit so the window stays fixed
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisStore is a Redis implementation of the Limiter interface, shared by all instances
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis limiter
func NewRedisStore(client redis.UniversalClient) ports.Limiter {
	return &RedisStore{
		client: client,
		prefix: "turnauth:ratelimit:",
	}
}

// Allow increments the counter for key in Redis and reports whether it is still within limit
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, ttl time.Duration) (bool, error) {
	key = s.prefix + key

	count, err := incrWindow.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to count issuance: %w", err)
	}

	return count <= int64(limit), nil
}
