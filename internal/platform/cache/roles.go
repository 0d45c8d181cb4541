package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ems/internal/domain/auth"
)

const keyPrefix = "ems:role:"

// RoleCache keeps clean role resolutions in Redis keyed by auth id.
// Failures are logged and treated as misses.
type RoleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns nil when url is empty so callers can run without Redis.
func New(url string, ttl time.Duration) (*RoleCache, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RoleCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (c *RoleCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RoleCache) Close() error {
	return c.client.Close()
}

func key(authID string) string {
	return keyPrefix + authID
}

func (c *RoleCache) Get(ctx context.Context, authID string) (auth.Resolution, bool) {
	raw, err := c.client.Get(ctx, key(authID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("role cache get failed", "err", err)
		}
		return auth.Resolution{}, false
	}
	var res auth.Resolution
	if err := json.Unmarshal(raw, &res); err != nil {
		return auth.Resolution{}, false
	}
	return res, true
}

func (c *RoleCache) Set(ctx context.Context, authID string, res auth.Resolution) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(authID), raw, c.ttl).Err(); err != nil {
		slog.Warn("role cache set failed", "err", err)
	}
}

func (c *RoleCache) Invalidate(ctx context.Context, authIDs ...string) {
	keys := make([]string, 0, len(authIDs))
	for _, id := range authIDs {
		if id != "" {
			keys = append(keys, key(id))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("role cache invalidate failed", "err", err)
	}
}
