/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface for everything except the atomic settle operations, which live in
 * postgres_settle.go. It contains the SQL queries for users, accounts,
 * merchants, verification codes and transaction reads.
 *
 * Logical schema:
 *   users(id, first_name, last_name, phone UNIQUE, role, status)
 *   accounts(id, user_id UNIQUE, number UNIQUE, balance, daily_ceiling,
 *            secret_hash, status, opened_at)
 *   merchants(id, account_id, business_name, code UNIQUE, sector, status,
 *             commission_rate)
 *   transactions(id, sender_account_id NULL, receiver_account_id NULL,
 *                merchant_id NULL, type, amount, fee, total, recipient_phone,
 *                recipient_name, status, reference UNIQUE, description,
 *                executed_at NULL, created_at, updated_at)
 *   verification_codes(id, user_id, transaction_id NULL, code, kind,
 *                      expires_at, consumed, created_at)
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sunupay/ledger-service/internal/domain"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrAccountNotFound       = errors.New("account not found")
	ErrRecipientNotFound     = errors.New("recipient not found")
	ErrMerchantNotFound      = errors.New("merchant not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrDailyLimitExceeded    = errors.New("daily limit exceeded")
	ErrInvalidOrExpiredCode  = errors.New("invalid or expired verification code")
	ErrTransactionNotPending = errors.New("transaction is not pending")
	ErrAccountNotActive      = errors.New("account is not active")
	ErrDuplicateReference    = errors.New("duplicate transaction reference")
	ErrNotOwner              = errors.New("caller does not own this transaction")
	ErrSecretNotSet          = errors.New("account secret code not set")

	// ErrSerializationFailure is the retryable lock/serialization conflict. It
	// is not a business rejection: callers should retry the operation and the
	// pending transaction, if any, stays pending.
	ErrSerializationFailure = errors.New("serialization conflict, retry")
)

// pgUniqueViolation is the SQLSTATE for unique-constraint violations.
const pgUniqueViolation = "23505"

// pgSerializationCodes are the SQLSTATEs mapped to ErrSerializationFailure.
var pgSerializationCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

// PostgresRepository is a concrete implementation of the Repository interface
// for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// mapPgError translates driver-level failures into the repository's sentinel
// errors where a stable meaning exists.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUniqueViolation {
			return ErrDuplicateReference
		}
		if pgSerializationCodes[pgErr.Code] {
			return ErrSerializationFailure
		}
	}
	return err
}

// FindUserByID retrieves a user by their ID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, first_name, last_name, phone, role, status FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&user.ID, &user.FirstName, &user.LastName, &user.Phone, &user.Role, &user.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByPhone retrieves a user by their phone number.
func (r *PostgresRepository) FindUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, first_name, last_name, phone, role, status FROM users WHERE phone = $1`
	err := r.db.QueryRow(ctx, query, phone).Scan(&user.ID, &user.FirstName, &user.LastName, &user.Phone, &user.Role, &user.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindAccountByUserID retrieves a user's account. Closed accounts stay
// visible: closure is a status flag, never a deletion.
func (r *PostgresRepository) FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, user_id, number, balance, daily_ceiling, status, opened_at FROM accounts WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&account.ID, &account.UserID, &account.Number, &account.Balance,
		&account.DailyCeiling, &account.Status, &account.OpenedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindAccountByPhone resolves a recipient account through the owning user's
// phone number.
func (r *PostgresRepository) FindAccountByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	var account domain.Account
	query := `
		SELECT a.id, a.user_id, a.number, a.balance, a.daily_ceiling, a.status, a.opened_at
		FROM accounts a
		JOIN users u ON u.id = a.user_id
		WHERE u.phone = $1
	`
	err := r.db.QueryRow(ctx, query, phone).Scan(
		&account.ID, &account.UserID, &account.Number, &account.Balance,
		&account.DailyCeiling, &account.Status, &account.OpenedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountSecretHash returns the bcrypt hash of the account secret code for
// login verification.
func (r *PostgresRepository) GetAccountSecretHash(ctx context.Context, userID uuid.UUID) (string, error) {
	var hash *string
	query := `SELECT secret_hash FROM accounts WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&hash)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrAccountNotFound
		}
		return "", err
	}
	if hash == nil || *hash == "" {
		return "", ErrSecretNotSet
	}
	return *hash, nil
}

// TotalActiveBalance sums the balances of a user's active accounts. This is
// the authoritative source behind the cached aggregate.
func (r *PostgresRepository) TotalActiveBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(balance), 0) FROM accounts WHERE user_id = $1 AND status = 'active'`
	if err := r.db.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// FindMerchantByCode retrieves a merchant by its public code.
func (r *PostgresRepository) FindMerchantByCode(ctx context.Context, code string) (*domain.Merchant, error) {
	var merchant domain.Merchant
	query := `
		SELECT id, account_id, business_name, code, COALESCE(sector, ''), status, commission_rate
		FROM merchants
		WHERE code = $1
	`
	err := r.db.QueryRow(ctx, query, code).Scan(
		&merchant.ID, &merchant.AccountID, &merchant.BusinessName,
		&merchant.Code, &merchant.Sector, &merchant.Status, &merchant.CommissionRate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}
	return &merchant, nil
}

// CreateVerificationCode persists a standalone (login-time) code.
func (r *PostgresRepository) CreateVerificationCode(ctx context.Context, code *domain.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (id, user_id, transaction_id, code, kind, expires_at, consumed)
		VALUES ($1, $2, $3, $4, $5, $6, false)
	`
	_, err := r.db.Exec(ctx, query, code.ID, code.UserID, code.TransactionID, code.Code, code.Kind, code.ExpiresAt)
	return err
}

// ConsumeLoginCode atomically consumes an unconsumed, unexpired login code for
// the user. The single UPDATE is the whole critical section: two concurrent
// submissions of the same code cannot both succeed.
func (r *PostgresRepository) ConsumeLoginCode(ctx context.Context, userID uuid.UUID, code string) error {
	query := `
		UPDATE verification_codes
		SET consumed = true
		WHERE user_id = $1
		  AND transaction_id IS NULL
		  AND code = $2
		  AND consumed = false
		  AND expires_at > NOW()
	`
	result, err := r.db.Exec(ctx, query, userID, code)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidOrExpiredCode
	}
	return nil
}

// DeleteVerificationCodesBefore purges codes created before the cutoff. This
// is retention housekeeping only; expiry correctness never depends on it.
func (r *PostgresRepository) DeleteVerificationCodesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const transactionColumns = `
	id, sender_account_id, receiver_account_id, merchant_id, type, amount, fee,
	total, COALESCE(recipient_phone, ''), COALESCE(recipient_name, ''), status,
	reference, COALESCE(description, ''), executed_at, created_at, updated_at
`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := row.Scan(
		&txn.ID, &txn.SenderAccountID, &txn.ReceiverAccountID, &txn.MerchantID,
		&txn.Type, &txn.Amount, &txn.Fee, &txn.Total, &txn.RecipientPhone,
		&txn.RecipientName, &txn.Status, &txn.Reference, &txn.Description,
		&txn.ExecutedAt, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindTransactionByID retrieves a single transaction.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	txn, err := scanTransaction(r.db.QueryRow(ctx, query, transactionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

// ListTransactionsForAccount retrieves the transactions in which an account is
// sender or receiver, newest first, with the history filters applied.
func (r *PostgresRepository) ListTransactionsForAccount(ctx context.Context, accountID uuid.UUID, opts domain.HistoryOptions) ([]domain.Transaction, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	conditions := []string{"(sender_account_id = $1 OR receiver_account_id = $1)"}
	args := []interface{}{accountID}

	appendArg := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if opts.Type != "" {
		appendArg("type = $%d", opts.Type)
	}
	if opts.Status != "" {
		appendArg("status = $%d", opts.Status)
	}
	if opts.MinAmount > 0 {
		appendArg("amount >= $%d", opts.MinAmount)
	}
	if opts.MaxAmount > 0 {
		appendArg("amount <= $%d", opts.MaxAmount)
	}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(reference ILIKE $%d OR recipient_name ILIKE $%d OR recipient_phone ILIKE $%d)", n, n, n))
	}
	switch opts.Period {
	case "today":
		conditions = append(conditions, "created_at >= date_trunc('day', NOW())")
	case "week":
		conditions = append(conditions, "created_at >= date_trunc('week', NOW())")
	case "month":
		conditions = append(conditions, "created_at >= date_trunc('month', NOW())")
	case "year":
		conditions = append(conditions, "created_at >= date_trunc('year', NOW())")
	}

	args = append(args, limit, offset)
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY created_at DESC
		LIMIT $` + fmt.Sprint(len(args)-1) + ` OFFSET $` + fmt.Sprint(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

// SumValidatedTotalsToday returns the sum of totals of today's validated
// outgoing transactions for an account. The settle operations recompute the
// same sum under lock; this read-only variant backs the advisory pre-check.
// Day boundaries follow the database clock, which deployments keep in UTC.
func (r *PostgresRepository) SumValidatedTotalsToday(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var sum int64
	query := `
		SELECT COALESCE(SUM(total), 0)
		FROM transactions
		WHERE sender_account_id = $1
		  AND status = 'validated'
		  AND created_at >= date_trunc('day', NOW())
	`
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}
