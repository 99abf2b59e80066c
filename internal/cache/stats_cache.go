package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StatsCache keeps per-user statistics responses in Redis for a short TTL.
// It degrades to a no-op when Redis is unavailable: misses and errors both
// fall through to recomputation, and writes are best effort.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewStatsCache creates a stats cache. A nil client disables caching.
func NewStatsCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *StatsCache {
	return &StatsCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func statsKey(userID uint) string {
	return fmt.Sprintf("stats:user:%d", userID)
}

// Get loads the cached stats for a user into v. It returns false on a miss
// or any Redis failure.
func (c *StatsCache) Get(ctx context.Context, userID uint, v interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	payload, err := c.client.Get(ctx, statsKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("stats cache read failed", zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(payload, v); err != nil {
		c.log.Warn("stats cache payload corrupt", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	return true
}

// Set stores the stats for a user.
func (c *StatsCache) Set(ctx context.Context, userID uint, v interface{}) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsKey(userID), payload, c.ttl).Err(); err != nil {
		c.log.Debug("stats cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached stats for a user. Trade writes call this so
// readers never see statistics older than the TTL after a change.
func (c *StatsCache) Invalidate(ctx context.Context, userID uint) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, statsKey(userID)).Err(); err != nil {
		c.log.Debug("stats cache invalidation failed", zap.Error(err))
	}
}
