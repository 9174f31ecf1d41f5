/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for
 * all data access operations required by the ledger-service. By defining an
 * interface, we decouple the transaction engine from the specific database
 * implementation (PostgreSQL), making the code more modular and easier to test.
 *
 * The settle methods are the heart of the ledger contract: each one executes as
 * a single atomic, isolated unit so that code consumption, the daily-limit
 * check, both balance adjustments and the status write either all persist or
 * none do.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sunupay/ledger-service/internal/domain"
)

// SettleParams identifies the pending transaction to settle and the one-time
// code presented by the caller. CallerUserID must match both the owner of the
// sender account and the owner of the verification code.
type SettleParams struct {
	TransactionID uuid.UUID
	CallerUserID  uuid.UUID
	Code          string
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User and account resolution
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindUserByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	FindAccountByPhone(ctx context.Context, phone string) (*domain.Account, error)
	GetAccountSecretHash(ctx context.Context, userID uuid.UUID) (string, error)
	TotalActiveBalance(ctx context.Context, userID uuid.UUID) (int64, error)

	// Merchant resolution
	FindMerchantByCode(ctx context.Context, code string) (*domain.Merchant, error)

	// Verification codes. Transaction-bound codes are created together with
	// their pending transaction; these methods cover login-time codes and the
	// retention sweep.
	CreateVerificationCode(ctx context.Context, code *domain.VerificationCode) error
	ConsumeLoginCode(ctx context.Context, userID uuid.UUID, code string) error
	DeleteVerificationCodesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Transaction lifecycle
	CreatePendingTransaction(ctx context.Context, txn *domain.Transaction, code *domain.VerificationCode) error
	SettlePendingTransaction(ctx context.Context, p SettleParams) (*domain.Transaction, error)
	CreateSettledTransaction(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error)
	CancelPendingTransaction(ctx context.Context, transactionID, callerUserID uuid.UUID) (*domain.Transaction, error)

	// Transaction reads
	FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)
	ListTransactionsForAccount(ctx context.Context, accountID uuid.UUID, opts domain.HistoryOptions) ([]domain.Transaction, error)
	SumValidatedTotalsToday(ctx context.Context, accountID uuid.UUID) (int64, error)
}
