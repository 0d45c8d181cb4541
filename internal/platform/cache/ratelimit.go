package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateKeyPrefix = "ems:ratelimit:"

// RateCounter keeps API rate-limit windows in Redis so every instance
// behind the load balancer shares them.
type RateCounter struct {
	client *redis.Client
}

// RateCounter shares the role cache's connection.
func (c *RoleCache) RateCounter() *RateCounter {
	return &RateCounter{client: c.client}
}

// Hit increments key and starts its window on the first hit.
func (rc *RateCounter) Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	k := rateKeyPrefix + key
	pipe := rc.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	left := ttl.Val()
	if left < 0 {
		if err := rc.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, err
		}
		left = window
	}
	return int(incr.Val()), left, nil
}
