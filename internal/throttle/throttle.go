// Package throttle rate-limits export requests per caller.
//
// Two implementations share the Limiter interface:
//   - Local: per-key token buckets held in process memory (golang.org/x/time/rate).
//   - Redis: fixed-window counters in Redis, shared by every replica.
//
// Keys are opaque strings chosen by the caller, e.g. "tg:<admin id>" for the
// bot command or "token:<hash>" for the HTTP API.
package throttle

import (
	"context"
	"math"
	"time"
)

// Limiter decides whether the caller identified by key may proceed now.
// An error means the decision could not be made; callers choose whether to
// fail open or closed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New returns a Redis-backed limiter when redisURL is set and a Local one
// otherwise. The Redis window is one minute with a quota equal to the token
// bucket's sustained rate over that minute, and never below burst.
func New(ctx context.Context, redisURL string, rps float64, burst int) (Limiter, error) {
	if redisURL == "" {
		return NewLocal(rps, burst), nil
	}
	quota := int(math.Ceil(rps * 60))
	if quota < burst {
		quota = burst
	}
	return NewRedis(ctx, redisURL, quota, time.Minute)
}
