package ratelimit

import "context"

// RateLimiter throttles terminal writes per payment service provider.
type RateLimiter interface {
	Allow(ctx context.Context, providerID string) (bool, error)
	Wait(ctx context.Context, providerID string) error
}
