/**
 * @description
 * This file contains custom middleware for the HTTP router: bearer-token
 * authentication backed by the token manager, and per-user request
 * throttling backed by Redis.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - internal/auth: Token verification.
 * - internal/app: The Redis rate limiter.
 */

package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/sunupay/ledger-service/internal/app"
	"github.com/sunupay/ledger-service/internal/auth"
)

// claimsContextKey is a custom type for the context key to avoid collisions.
type claimsContextKey string

const authClaimsKey claimsContextKey = "authClaims"

// AuthMiddleware validates the bearer token and stores the decoded claims in
// the request context.
func AuthMiddleware(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthClaims retrieves the verified claims placed by AuthMiddleware.
func GetAuthClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(authClaimsKey).(*auth.Claims)
	return claims, ok
}

// RateLimitMiddleware throttles authenticated requests per user using the
// Redis fixed-window limiter. Limiter backend failures fail open so Redis
// downtime cannot block settlements.
func RateLimitMiddleware(limiter *app.RedisRequestRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetAuthClaims(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter, err := limiter.Allow(r.Context(), "requests", claims.UserID.String())
			if err != nil {
				log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" user_id=%s error=%v", claims.UserID, err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
