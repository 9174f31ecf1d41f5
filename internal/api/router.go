/**
 * @description
 * This file sets up the HTTP router for the ledger-service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, CORS, authentication and per-user throttling, and maps the routes
 * to their corresponding handler functions.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sunupay/ledger-service/internal/app"
	"github.com/sunupay/ledger-service/internal/auth"
)

// NewRouter creates a new Chi router and registers the ledger-service routes.
func NewRouter(
	h *LedgerHandlers,
	tokens *auth.TokenManager,
	limiter *app.RedisRequestRateLimiter,
) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Login endpoints are unauthenticated.
	r.Post("/auth/login", h.LoginHandler)
	r.Post("/auth/verify-secret", h.VerifySecretHandler)

	// Protected routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))
		r.Use(RateLimitMiddleware(limiter))

		r.Post("/transactions/transfer", h.TransferHandler)
		r.Post("/transactions/payment", h.PaymentHandler)
		r.Post("/transactions/verify-code", h.VerifyCodeHandler)
		r.Post("/transactions/deposit", h.DepositHandler)
		r.Post("/transactions/withdrawal", h.WithdrawalHandler)
		r.Post("/transactions/{id}/cancel", h.CancelHandler)
		r.Get("/transactions/history", h.HistoryHandler)
		r.Get("/transactions/{id}", h.GetTransactionHandler)

		r.Get("/accounts/balance", h.BalanceHandler)
		r.Get("/accounts/total-balance", h.TotalBalanceHandler)
	})

	return r
}
