/**
 * @description
 * This file defines the core domain models for the ledger-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout
 * the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests and database models keeps the web
 *   layer decoupled from the persistence layer.
 * - Amounts are stored as `int64` whole FCFA. XOF has no circulating
 *   subdivision, so integer francs avoid floating-point inaccuracies without
 *   losing precision.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types.
const (
	TypeTransfer       = "transfer"
	TypePayment        = "payment"
	TypeDeposit        = "deposit"
	TypeWithdrawal     = "withdrawal"
	TypeCreditPurchase = "credit_purchase"
)

// Transaction statuses. pending moves to exactly one of validated, failed or
// cancelled; all three are terminal.
const (
	StatusPending   = "pending"
	StatusValidated = "validated"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Transaction represents one monetary movement recorded in the ledger.
// This struct maps directly to the `transactions` table. A finalized
// transaction is immutable except for its status transition.
type Transaction struct {
	ID                uuid.UUID  `json:"id"`
	SenderAccountID   *uuid.UUID `json:"sender_account_id,omitempty"`
	ReceiverAccountID *uuid.UUID `json:"receiver_account_id,omitempty"`
	MerchantID        *uuid.UUID `json:"merchant_id,omitempty"`
	Type              string     `json:"type"`
	Amount            int64      `json:"amount"` // in FCFA
	Fee               int64      `json:"fee"`    // in FCFA
	Total             int64      `json:"total"`  // amount + fee, enforced at creation
	RecipientPhone    string     `json:"recipient_phone,omitempty"`
	RecipientName     string     `json:"recipient_name,omitempty"`
	Status            string     `json:"status"`
	Reference         string     `json:"reference"`
	Description       string     `json:"description"`
	ExecutedAt        *time.Time `json:"executed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the transaction can no longer change status.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusValidated || t.Status == StatusFailed || t.Status == StatusCancelled
}

// DisplayAmount projects the signed amount of a transaction from the
// perspective of one account: deposits are positive, withdrawals and payments
// negative, transfers negative for the sender and positive for the receiver.
// Pure read-side projection, never persisted.
func DisplayAmount(t *Transaction, accountID uuid.UUID) int64 {
	if t.SenderAccountID != nil && *t.SenderAccountID == accountID {
		return -t.Total
	}
	if t.ReceiverAccountID != nil && *t.ReceiverAccountID == accountID {
		return t.Amount
	}
	return 0
}

// TransferRequest is the DTO for initiating a transfer to another account.
type TransferRequest struct {
	RecipientPhone string `json:"recipient_phone"`
	Amount         int64  `json:"amount"` // in FCFA
	Description    string `json:"description,omitempty"`
}

// PaymentRequest is the DTO for initiating a merchant payment.
type PaymentRequest struct {
	MerchantCode string `json:"merchant_code"`
	Amount       int64  `json:"amount"` // in FCFA
	Description  string `json:"description,omitempty"`
}

// VerifyRequest is the DTO for confirming a pending transaction with a code.
type VerifyRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Code          string    `json:"code"`
}

// CashRequest is the DTO for single-phase deposits and withdrawals.
type CashRequest struct {
	Amount int64 `json:"amount"` // in FCFA
}

// HistoryOptions controls filtering and pagination of transaction history.
type HistoryOptions struct {
	Type      string
	Status    string
	MinAmount int64
	MaxAmount int64
	Period    string // today | week | month | year
	Search    string // matches reference, recipient name or phone
	Limit     int
	Offset    int
}
