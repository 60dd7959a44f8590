package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimit struct {
	Window  time.Duration // e.g., 1 minute, 1 hour
	MaxJobs int           // max jobs per window
}

type QueueConfig struct {
	Name      string
	RateLimit RateLimit
}

// QueueRateLimiter is a sliding window limiter backed by a redis sorted set.
type QueueRateLimiter struct {
	redis  redis.Cmdable
	config QueueConfig
	now    func() time.Time
}

func NewQueueRateLimiter(client redis.Cmdable, config QueueConfig) *QueueRateLimiter {
	return &QueueRateLimiter{
		redis:  client,
		config: config,
		now:    time.Now,
	}
}

func (qrl *QueueRateLimiter) key(identifier string) string {
	return fmt.Sprintf("queue_rate_limit:%s:%s", qrl.config.Name, identifier)
}

// Allow records an attempt for identifier and reports whether it fits the window.
// Rejected attempts are not counted.
func (qrl *QueueRateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	if qrl.config.RateLimit.MaxJobs <= 0 || qrl.config.RateLimit.Window <= 0 {
		return true, nil
	}
	key := qrl.key(identifier)
	now := qrl.now()
	windowStart := now.Add(-qrl.config.RateLimit.Window).UnixMilli()
	member := uuid.New().String()

	pipe := qrl.redis.TxPipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))

	// Count current window
	count := pipe.ZCard(ctx, key)

	// Add new entry
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})

	// Set expiration
	pipe.Expire(ctx, key, qrl.config.RateLimit.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	if count.Val() < int64(qrl.config.RateLimit.MaxJobs) {
		return true, nil
	}
	if err := qrl.redis.ZRem(ctx, key, member).Err(); err != nil {
		return false, fmt.Errorf("redis zrem error: %w", err)
	}
	return false, nil
}
