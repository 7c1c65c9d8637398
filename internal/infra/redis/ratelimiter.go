package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/terminal-registry/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultWritesPerSec int64 = 200
	writeBudgetPrefix         = "ratelimit:terminal-writes"
	waitStep                  = 5 * time.Millisecond
	waitMax                   = 50 * time.Millisecond
	windowTTLSeconds          = 2
)

// KEYS[1] window key, ARGV[1] budget, ARGV[2] key ttl in seconds.
var takeWriteTokenScript = goredis.NewScript(`
local used = redis.call("INCR", KEYS[1])
if used == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if used > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter enforces a per-second terminal write budget for each
// provider. The budget is shared by every API replica through Redis.
type RedisRateLimiter struct {
	client       *goredis.Client
	writesPerSec int64
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewRedisRateLimiter(client *goredis.Client, writesPerSec int) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(client, int64(writesPerSec), time.Now, sleepWithContext)
}

func newRedisRateLimiter(
	client *goredis.Client,
	writesPerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if writesPerSec <= 0 {
		writesPerSec = defaultWritesPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &RedisRateLimiter{
		client:       client,
		writesPerSec: writesPerSec,
		now:          nowFn,
		sleep:        sleepFn,
	}, nil
}

// Allow takes one write token from the provider's current one-second window.
func (r *RedisRateLimiter) Allow(ctx context.Context, providerID string) (bool, error) {
	if r == nil || r.client == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	provider := strings.TrimSpace(providerID)
	if provider == "" {
		return false, fmt.Errorf("provider id is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := writeWindowKey(provider, r.now())
	granted, err := takeWriteTokenScript.Run(ctx, r.client, []string{key}, r.writesPerSec, windowTTLSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate write budget for provider %q: %w", provider, err)
	}

	return granted == 1, nil
}

// Wait blocks until a write token is granted or ctx ends.
func (r *RedisRateLimiter) Wait(ctx context.Context, providerID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	delay := waitStep
	for {
		granted, err := r.Allow(ctx, providerID)
		if err != nil {
			return err
		}
		if granted {
			return nil
		}

		if err := r.sleep(ctx, delay); err != nil {
			return fmt.Errorf("waiting for write budget: %w", err)
		}
		delay = min(delay+waitStep, waitMax)
	}
}

func writeWindowKey(providerID string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%d", writeBudgetPrefix, providerID, at.UTC().Unix())
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
