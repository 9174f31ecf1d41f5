package domain

import "github.com/google/uuid"

// Merchant statuses.
const (
	MerchantActive    = "active"
	MerchantInactive  = "inactive"
	MerchantSuspended = "suspended"
)

// Merchant represents a business that can receive payments, resolved by its
// public merchant code at payment time.
type Merchant struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"account_id"`
	BusinessName   string    `json:"business_name"`
	Code           string    `json:"code"`
	Sector         string    `json:"sector,omitempty"`
	Status         string    `json:"status"`
	CommissionRate float64   `json:"commission_rate"`
}
