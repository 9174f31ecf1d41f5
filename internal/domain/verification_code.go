package domain

import (
	"time"

	"github.com/google/uuid"
)

// Verification code kinds.
const (
	CodeKindSMS = "sms"
	CodeKindApp = "app"
)

// VerificationCode is a short-lived one-time secret. Money-movement codes are
// bound to a pending transaction; login codes leave TransactionID nil. A code
// is usable at most once: consumed flips false to true and never back.
// Expiry is checked lazily at consume time, not by a sweep.
type VerificationCode struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	Code          string     `json:"-"` // 4 digits, never serialized
	Kind          string     `json:"kind"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Consumed      bool       `json:"consumed"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (c *VerificationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
