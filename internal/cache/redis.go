package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

// InitRedis connects the shared client. The service degrades gracefully
// without redis: rate limiting fails open and blobs fall back to memory.
func InitRedis(addr string) {
	Client = redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis connection failed, continuing without cache", "error", err)
		Client = nil
	} else {
		slog.Info("redis connected")
	}
}

func GetClient() *redis.Client {
	return Client
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if Client == nil {
		return false, nil
	}
	s, err := Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if Client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Client.Set(ctx, key, b, ttl).Err()
}

// Invalidate drops a key, best-effort.
func Invalidate(ctx context.Context, key string) {
	if Client == nil {
		return
	}
	if err := Client.Del(ctx, key).Err(); err != nil {
		slog.Warn("cache invalidation failed", "key", key, "error", err)
	}
}

// CacheAside tries Redis first, on miss it calls fetch (which should populate
// dest), then stores the result with ttl. fetch must write into dest.
func CacheAside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	// Store into cache, best-effort.
	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}
