/**
 * @description
 * Read-through Redis cache for the total active balance aggregate. The
 * aggregate scans every active account, so admin dashboards hit this cache
 * first and the service invalidates it explicitly after any settlement that
 * changes circulation (deposits, withdrawals, fee collection).
 */

package app

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const totalBalanceKeyPrefix = "ledger:total_balance:"

// BalanceCache caches the per-user total-balance aggregate in Redis. A nil
// client makes every operation a pass-through.
type BalanceCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &BalanceCache{ttl: ttl}
	// A nil *redis.Client stored directly in the interface field would be a
	// non-nil interface value and slip past the guards below.
	if client != nil {
		c.client = client
	}
	return c
}

// GetTotal returns the cached aggregate for a user. The second return value
// reports a cache hit; cache errors are logged and treated as misses.
func (c *BalanceCache) GetTotal(ctx context.Context, userID uuid.UUID) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	raw, err := c.client.Get(ctx, totalBalanceKeyPrefix+userID.String()).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("level=warn component=balance_cache msg=\"cache read failed\" error=%v", err)
		}
		return 0, false
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

// SetTotal stores a user's aggregate with the configured TTL.
func (c *BalanceCache) SetTotal(ctx context.Context, userID uuid.UUID, total int64) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, totalBalanceKeyPrefix+userID.String(), strconv.FormatInt(total, 10), c.ttl).Err(); err != nil {
		log.Printf("level=warn component=balance_cache msg=\"cache write failed\" error=%v", err)
	}
}

// Invalidate drops a user's cached aggregate so the next read recomputes it.
func (c *BalanceCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, totalBalanceKeyPrefix+userID.String()).Err(); err != nil {
		log.Printf("level=warn component=balance_cache msg=\"cache invalidation failed\" error=%v", err)
	}
}
