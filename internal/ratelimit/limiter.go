package ratelimit

import "context"

// RateLimiter controls outbound delivery throughput per target host.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}
