// Package cache wraps the shared Redis client and the cache-aside helpers built on it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"petbuddies/internal/middleware"

	"github.com/redis/go-redis/v9"
)

var (
	mu     sync.RWMutex
	client *redis.Client
)

type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// InitRedis connects to addr (host:port or redis:// URL) and installs the
// client globally. It returns nil when Redis is unreachable; callers then run
// without cache, revocation list or realtime fan-out.
func InitRedis(addr string) *redis.Client {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			middleware.Logger.Warn("Invalid REDIS_URL, continuing without cache", slog.String("url", addr), slog.String("error", err.Error()))
			SetClient(nil)
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	c := redis.NewClient(opts)
	c.AddHook(metricsHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unavailable, continuing without cache", slog.String("error", err.Error()))
		_ = c.Close()
		SetClient(nil)
		return nil
	}

	middleware.Logger.Info("Redis connected successfully")
	SetClient(c)
	return c
}

// SetClient replaces the global client. Tests use it to install miniredis.
func SetClient(c *redis.Client) {
	mu.Lock()
	defer mu.Unlock()
	client = c
}

// GetClient returns the current Redis client instance, possibly nil.
func GetClient() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	return client
}

// GetJSON loads key into dst. It reports false on a miss or when Redis is unavailable.
func GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	c := GetClient()
	if c == nil {
		return false, nil
	}
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key for ttl. It is a no-op without Redis.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	c := GetClient()
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl).Err()
}

// Aside fills dst from key, or calls load (which must fill dst) and caches the result.
// Cache failures are logged and never fail the call.
func Aside(ctx context.Context, key string, dst any, ttl time.Duration, load func() error) error {
	hit, err := GetJSON(ctx, key, dst)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if hit {
		return nil
	}

	if err := load(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dst, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}
