package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-redis/redis/v8"
)

// abuseGuard is the windowed counter behind quote rate limiting.
type abuseGuard interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (bool, error)
}

// RedisGuard counts hits per key with a TTL window, the same INCR+EXPIRE
// pattern the idempotency keys use.
type RedisGuard struct {
	rdb *redis.Client
}

func NewRedisGuard(rdb *redis.Client) *RedisGuard {
	return &RedisGuard{rdb: rdb}
}

func (g *RedisGuard) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, error) {
	n, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		g.rdb.Expire(ctx, key, window)
	}
	return n <= int64(max), nil
}

// hashToken hex-encodes sha256 of a raw identifier (IP, user agent). Raw
// values are never persisted or used as keys.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
