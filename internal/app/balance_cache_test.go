package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// The bootstrap wiring hands the constructor whatever *redis.Client it ended
// up with, which is a nil pointer when Redis is unreachable. The cache must
// behave as a pass-through in that case instead of dereferencing the nil
// client on the first lookup.
func TestBalanceCacheNilClientIsPassThrough(t *testing.T) {
	cache := NewBalanceCache((*redis.Client)(nil), time.Minute)
	ctx := context.Background()
	userID := uuid.New()

	if total, ok := cache.GetTotal(ctx, userID); ok || total != 0 {
		t.Fatalf("GetTotal with nil client: got (%d, %v), want (0, false)", total, ok)
	}

	cache.SetTotal(ctx, userID, 125000)

	if total, ok := cache.GetTotal(ctx, userID); ok || total != 0 {
		t.Fatalf("GetTotal after SetTotal with nil client: got (%d, %v), want (0, false)", total, ok)
	}

	cache.Invalidate(ctx, userID)
}

func TestBalanceCacheNilReceiver(t *testing.T) {
	var cache *BalanceCache
	ctx := context.Background()
	userID := uuid.New()

	if total, ok := cache.GetTotal(ctx, userID); ok || total != 0 {
		t.Fatalf("GetTotal on nil cache: got (%d, %v), want (0, false)", total, ok)
	}
	cache.SetTotal(ctx, userID, 5000)
	cache.Invalidate(ctx, userID)
}
