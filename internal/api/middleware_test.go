package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sunupay/ledger-service/internal/auth"
	"github.com/sunupay/ledger-service/internal/domain"
)

func authedHandler(t *testing.T, wantUserID uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetAuthClaims(r.Context())
		if !ok {
			t.Fatal("claims missing from context")
		}
		if claims.UserID != wantUserID {
			t.Fatalf("claims user id = %s, want %s", claims.UserID, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", "ledger-service", time.Minute)
	user := &domain.User{ID: uuid.New(), Phone: "+221771234567", Role: "client"}

	token, err := tokens.Generate(user)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	handler := AuthMiddleware(tokens)(authedHandler(t, user.ID))
	req := httptest.NewRequest(http.MethodGet, "/accounts/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", "ledger-service", time.Minute)
	handler := AuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/accounts/balance", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddlewareRejectsTamperedToken(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", "ledger-service", time.Minute)
	other := auth.NewTokenManager("other-secret", "ledger-service", time.Minute)

	token, err := other.Generate(&domain.User{ID: uuid.New(), Role: "client"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	handler := AuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a foreign token")
	}))
	req := httptest.NewRequest(http.MethodGet, "/accounts/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
