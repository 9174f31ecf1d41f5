package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sunupay/ledger-service/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Phone: "+221771234567",
		Role:  "client",
	}
}

func TestGenerateAndVerify(t *testing.T) {
	manager := NewTokenManager("test-secret", "ledger-service", 30*time.Minute)
	user := testUser()

	token, err := manager.Generate(user)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("claims user id = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Phone != user.Phone {
		t.Fatalf("claims phone = %q, want %q", claims.Phone, user.Phone)
	}
	if claims.Role != "client" {
		t.Fatalf("claims role = %q, want client", claims.Role)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", "ledger-service", 30*time.Minute)
	verifier := NewTokenManager("secret-b", "ledger-service", 30*time.Minute)

	token, err := issuer.Generate(testUser())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	manager := NewTokenManager("test-secret", "ledger-service", -time.Minute)

	token, err := manager.Generate(testUser())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if _, err := manager.Verify(token); err == nil {
		t.Fatal("expired token was accepted")
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	issuer := NewTokenManager("test-secret", "someone-else", 30*time.Minute)
	verifier := NewTokenManager("test-secret", "ledger-service", 30*time.Minute)

	token, err := issuer.Generate(testUser())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("token from another issuer was accepted")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	manager := NewTokenManager("test-secret", "ledger-service", 30*time.Minute)
	if _, err := manager.Verify("not-a-token"); err == nil {
		t.Fatal("garbage token was accepted")
	}
}
