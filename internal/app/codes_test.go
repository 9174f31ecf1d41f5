package app

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTransactionCode(t *testing.T) {
	userID := uuid.New()
	txnID := uuid.New()
	now := time.Now().UTC()

	code, err := newTransactionCode(userID, txnID, now)
	if err != nil {
		t.Fatalf("newTransactionCode returned error: %v", err)
	}
	if len(code.Code) != 4 {
		t.Fatalf("code %q is not 4 digits", code.Code)
	}
	for _, c := range code.Code {
		if c < '0' || c > '9' {
			t.Fatalf("code %q contains non-digit", code.Code)
		}
	}
	if code.TransactionID == nil || *code.TransactionID != txnID {
		t.Fatal("code is not bound to the transaction")
	}
	if got := code.ExpiresAt.Sub(now); got != 5*time.Minute {
		t.Fatalf("transaction code TTL = %v, want 5m", got)
	}
	if code.Consumed {
		t.Fatal("new code must start unconsumed")
	}
}

func TestNewLoginCodeTTL(t *testing.T) {
	now := time.Now().UTC()
	code, err := newLoginCode(uuid.New(), now)
	if err != nil {
		t.Fatalf("newLoginCode returned error: %v", err)
	}
	if code.TransactionID != nil {
		t.Fatal("login code must not be bound to a transaction")
	}
	if got := code.ExpiresAt.Sub(now); got != 10*time.Minute {
		t.Fatalf("login code TTL = %v, want 10m", got)
	}
}

func TestCodeExpiry(t *testing.T) {
	now := time.Now().UTC()
	code, err := newTransactionCode(uuid.New(), uuid.New(), now)
	if err != nil {
		t.Fatalf("newTransactionCode returned error: %v", err)
	}
	if code.Expired(now.Add(4 * time.Minute)) {
		t.Fatal("code expired before its TTL")
	}
	if !code.Expired(now.Add(6 * time.Minute)) {
		t.Fatal("code still valid after its TTL")
	}
}
