package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "msglogger:rl:"

// Redis is a fixed-window limiter backed by a shared Redis instance: each key
// gets quota requests per window, counted with INCR on a per-window key that
// expires with the window.
type Redis struct {
	client *redis.Client
	quota  int64
	window time.Duration
	now    func() time.Time
}

// NewRedis connects to redisURL (redis://[:password@]host:port/db) and
// verifies the connection with PING.
func NewRedis(ctx context.Context, redisURL string, quota int, window time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisWithClient(client, quota, window), nil
}

func newRedisWithClient(client *redis.Client, quota int, window time.Duration) *Redis {
	if quota < 1 {
		quota = 1
	}
	if window < time.Second {
		window = time.Second
	}
	return &Redis{client: client, quota: int64(quota), window: window, now: time.Now}
}

// Allow increments key's counter for the current window and reports whether
// it is still within quota.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	bucket := r.now().UnixNano() / int64(r.window)
	windowKey := fmt.Sprintf("%s%s:%d", keyPrefix, key, bucket)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %q: %w", key, err)
	}
	return incr.Val() <= r.quota, nil
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
