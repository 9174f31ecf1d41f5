package app

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// A nil *redis.Client from the bootstrap wiring must disable limiting, not
// panic inside the authenticated middleware chain.
func TestRateLimiterNilClientAllowsEverything(t *testing.T) {
	limiter := NewRedisRequestRateLimiter((*redis.Client)(nil), "ledger:rate_limit", 50, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, retryAfter, err := limiter.Allow(context.Background(), "requests", "user-1")
		if err != nil {
			t.Fatalf("Allow with nil client: unexpected error: %v", err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("Allow with nil client: got (%v, %d), want (true, 0)", allowed, retryAfter)
		}
	}
}

func TestRateLimiterDisabledByNonPositiveLimit(t *testing.T) {
	limiter := NewRedisRequestRateLimiter(nil, "ledger:rate_limit", 0, time.Minute)

	allowed, retryAfter, err := limiter.Allow(context.Background(), "requests", "user-1")
	if err != nil {
		t.Fatalf("Allow with zero limit: unexpected error: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("Allow with zero limit: got (%v, %d), want (true, 0)", allowed, retryAfter)
	}
}

func TestRateLimiterPrefixNormalization(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "ledger:rate_limit"},
		{"  ", "ledger:rate_limit"},
		{"custom:prefix:", "custom:prefix"},
		{"custom", "custom"},
	}
	for _, tc := range cases {
		limiter := NewRedisRequestRateLimiter(nil, tc.in, 10, time.Minute)
		if limiter.prefix != tc.want {
			t.Errorf("prefix %q: got %q, want %q", tc.in, limiter.prefix, tc.want)
		}
	}
}
