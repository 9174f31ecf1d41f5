/**
 * @description
 * This file contains the atomic write operations of the ledger: creating a
 * pending transaction together with its verification code, settling a pending
 * transaction (verify-time), creating a directly-settled transaction
 * (single-phase flows) and cancelling a pending transaction.
 *
 * Concurrency contract:
 * - Every balance mutation happens under a `SELECT ... FOR UPDATE` row lock on
 *   the account, so two concurrent debits serialize and the second sees the
 *   first's committed balance before evaluating sufficiency.
 * - When a transfer touches two accounts, both rows are locked in ascending
 *   account-ID order so opposite-direction transfers cannot deadlock.
 * - The daily-limit sum is computed inside the same database transaction as
 *   the debit, under the sender lock, closing the race where two concurrent
 *   movements both pass the ceiling check before either commits.
 * - Business rejections at settle time (insufficient funds, ceiling breach,
 *   account no longer active) persist the `failed` status and the consumed
 *   code but no balance change; invalid codes roll everything back and the
 *   transaction stays pending.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sunupay/ledger-service/internal/domain"
)

const insertTransactionQuery = `
	INSERT INTO transactions (
		id, sender_account_id, receiver_account_id, merchant_id, type, amount,
		fee, total, recipient_phone, recipient_name, status, reference,
		description, executed_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	RETURNING created_at, updated_at
`

// lockedAccount is the slice of an account row read under FOR UPDATE.
type lockedAccount struct {
	ID           uuid.UUID
	Balance      int64
	DailyCeiling int64
	Status       string
}

// lockAccounts acquires FOR UPDATE locks on the given account rows in
// ascending ID order and returns them keyed by ID.
func lockAccounts(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*lockedAccount, error) {
	ordered := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].String() < ordered[i].String() {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	locked := make(map[uuid.UUID]*lockedAccount, len(ordered))
	for _, id := range ordered {
		var acc lockedAccount
		err := tx.QueryRow(ctx,
			`SELECT id, balance, daily_ceiling, status FROM accounts WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&acc.ID, &acc.Balance, &acc.DailyCeiling, &acc.Status)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, ErrAccountNotFound
			}
			return nil, mapPgError(err)
		}
		locked[id] = &acc
	}
	return locked, nil
}

// sumValidatedTodayLocked computes today's validated outgoing total for the
// sender inside the settle transaction.
func sumValidatedTodayLocked(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	var sum int64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM transactions
		WHERE sender_account_id = $1
		  AND status = 'validated'
		  AND created_at >= date_trunc('day', NOW())
	`, accountID).Scan(&sum)
	if err != nil {
		return 0, mapPgError(err)
	}
	return sum, nil
}

// CreatePendingTransaction inserts a pending transaction and its verification
// code in one database transaction. Balances are untouched at this point.
// A reference collision surfaces as ErrDuplicateReference so the engine can
// regenerate and retry.
func (r *PostgresRepository) CreatePendingTransaction(ctx context.Context, txn *domain.Transaction, code *domain.VerificationCode) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, insertTransactionQuery,
		txn.ID, txn.SenderAccountID, txn.ReceiverAccountID, txn.MerchantID,
		txn.Type, txn.Amount, txn.Fee, txn.Total, txn.RecipientPhone,
		txn.RecipientName, txn.Status, txn.Reference, txn.Description, nil,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO verification_codes (id, user_id, transaction_id, code, kind, expires_at, consumed)
		VALUES ($1, $2, $3, $4, $5, $6, false)
	`, code.ID, code.UserID, code.TransactionID, code.Code, code.Kind, code.ExpiresAt)
	if err != nil {
		return mapPgError(err)
	}

	return tx.Commit(ctx)
}

// SettlePendingTransaction executes the verify-time atomic unit: consume the
// code, lock the accounts, re-check the ceiling and sufficiency under lock,
// move the money and flip the status to validated. On a terminal business
// rejection the transaction is marked failed (and the code stays consumed)
// within the same unit, with no balance mutation.
func (r *PostgresRepository) SettlePendingTransaction(ctx context.Context, p SettleParams) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the transaction row first so concurrent verifies of the same
	// transaction serialize here.
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	txn, err := scanTransaction(tx.QueryRow(ctx, query, p.TransactionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, mapPgError(err)
	}
	if txn.Status != domain.StatusPending {
		return nil, ErrTransactionNotPending
	}
	if txn.SenderAccountID == nil {
		return nil, ErrTransactionNotPending
	}

	// The caller must own the sender account before anything is consumed.
	var ownerID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM accounts WHERE id = $1`,
		*txn.SenderAccountID,
	).Scan(&ownerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, mapPgError(err)
	}
	if ownerID != p.CallerUserID {
		return nil, ErrNotOwner
	}

	// Consume the code. Zero rows means wrong value, expired, already
	// consumed, or a code owned by someone else; the rollback leaves the
	// transaction pending so the caller may retry with the right code.
	result, err := tx.Exec(ctx, `
		UPDATE verification_codes
		SET consumed = true
		WHERE transaction_id = $1
		  AND user_id = $2
		  AND code = $3
		  AND consumed = false
		  AND expires_at > NOW()
	`, p.TransactionID, p.CallerUserID, p.Code)
	if err != nil {
		return nil, mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrInvalidOrExpiredCode
	}

	accountIDs := []uuid.UUID{*txn.SenderAccountID}
	if txn.ReceiverAccountID != nil {
		accountIDs = append(accountIDs, *txn.ReceiverAccountID)
	}
	locked, err := lockAccounts(ctx, tx, accountIDs...)
	if err != nil {
		return nil, err
	}
	sender := locked[*txn.SenderAccountID]

	fail := func(reason error) (*domain.Transaction, error) {
		if _, err := tx.Exec(ctx,
			`UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`,
			domain.StatusFailed, txn.ID,
		); err != nil {
			return nil, mapPgError(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, mapPgError(err)
		}
		txn.Status = domain.StatusFailed
		return txn, reason
	}

	if sender.Status != domain.AccountActive {
		return fail(ErrAccountNotActive)
	}
	spentToday, err := sumValidatedTodayLocked(ctx, tx, sender.ID)
	if err != nil {
		return nil, err
	}
	if spentToday+txn.Total > sender.DailyCeiling {
		return fail(ErrDailyLimitExceeded)
	}
	if sender.Balance < txn.Total {
		return fail(ErrInsufficientFunds)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1 WHERE id = $2`,
		txn.Total, sender.ID,
	); err != nil {
		return nil, mapPgError(err)
	}
	if txn.ReceiverAccountID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = balance + $1 WHERE id = $2`,
			txn.Amount, *txn.ReceiverAccountID,
		); err != nil {
			return nil, mapPgError(err)
		}
	}

	var executedAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE transactions
		SET status = $1, executed_at = NOW(), updated_at = NOW()
		WHERE id = $2
		RETURNING executed_at
	`, domain.StatusValidated, txn.ID).Scan(&executedAt)
	if err != nil {
		return nil, mapPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapPgError(err)
	}

	txn.Status = domain.StatusValidated
	txn.ExecutedAt = &executedAt
	return txn, nil
}

// CreateSettledTransaction executes a single-phase movement: validation,
// balance mutation and row insertion happen in one database transaction with
// no pending step. The transaction passed in carries the computed fields; its
// status is set here. On a business rejection a `failed` row is persisted and
// the matching sentinel error returned, with no balance mutation.
func (r *PostgresRepository) CreateSettledTransaction(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var accountIDs []uuid.UUID
	if txn.SenderAccountID != nil {
		accountIDs = append(accountIDs, *txn.SenderAccountID)
	}
	if txn.ReceiverAccountID != nil {
		accountIDs = append(accountIDs, *txn.ReceiverAccountID)
	}
	locked, err := lockAccounts(ctx, tx, accountIDs...)
	if err != nil {
		return nil, err
	}

	insert := func(status string, executed bool) error {
		var executedArg interface{}
		if executed {
			executedArg = time.Now().UTC()
		}
		txn.Status = status
		err := tx.QueryRow(ctx, insertTransactionQuery,
			txn.ID, txn.SenderAccountID, txn.ReceiverAccountID, txn.MerchantID,
			txn.Type, txn.Amount, txn.Fee, txn.Total, txn.RecipientPhone,
			txn.RecipientName, txn.Status, txn.Reference, txn.Description, executedArg,
		).Scan(&txn.CreatedAt, &txn.UpdatedAt)
		if err != nil {
			return mapPgError(err)
		}
		if executed {
			ts := executedArg.(time.Time)
			txn.ExecutedAt = &ts
		}
		return nil
	}

	fail := func(reason error) (*domain.Transaction, error) {
		if err := insert(domain.StatusFailed, false); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, mapPgError(err)
		}
		return txn, reason
	}

	if txn.SenderAccountID != nil {
		sender := locked[*txn.SenderAccountID]
		if sender.Status != domain.AccountActive {
			return fail(ErrAccountNotActive)
		}
		spentToday, err := sumValidatedTodayLocked(ctx, tx, sender.ID)
		if err != nil {
			return nil, err
		}
		if spentToday+txn.Total > sender.DailyCeiling {
			return fail(ErrDailyLimitExceeded)
		}
		if sender.Balance < txn.Total {
			return fail(ErrInsufficientFunds)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = balance - $1 WHERE id = $2`,
			txn.Total, sender.ID,
		); err != nil {
			return nil, mapPgError(err)
		}
	}

	if txn.ReceiverAccountID != nil {
		receiver := locked[*txn.ReceiverAccountID]
		if receiver.Status != domain.AccountActive {
			return fail(ErrAccountNotActive)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = balance + $1 WHERE id = $2`,
			txn.Amount, receiver.ID,
		); err != nil {
			return nil, mapPgError(err)
		}
	}

	if err := insert(domain.StatusValidated, true); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapPgError(err)
	}
	return txn, nil
}

// CancelPendingTransaction moves a still-pending transaction to the cancelled
// terminal on behalf of its owner. The status predicate in the UPDATE makes
// the operation a no-op once the transaction left pending.
func (r *PostgresRepository) CancelPendingTransaction(ctx context.Context, transactionID, callerUserID uuid.UUID) (*domain.Transaction, error) {
	query := `
		UPDATE transactions t
		SET status = $1, updated_at = NOW()
		FROM accounts a
		WHERE t.id = $2
		  AND t.status = $3
		  AND a.id = t.sender_account_id
		  AND a.user_id = $4
		RETURNING ` + qualifiedTransactionColumns("t") + `
	`
	txn, err := scanTransaction(r.db.QueryRow(ctx, query,
		domain.StatusCancelled, transactionID, domain.StatusPending, callerUserID))
	if err != nil {
		if err == pgx.ErrNoRows {
			// Distinguish missing, not-yours and already-terminal.
			existing, findErr := r.FindTransactionByID(ctx, transactionID)
			if findErr != nil {
				return nil, findErr
			}
			if existing.Status != domain.StatusPending {
				return nil, ErrTransactionNotPending
			}
			return nil, ErrNotOwner
		}
		return nil, mapPgError(err)
	}
	return txn, nil
}

// qualifiedTransactionColumns prefixes the shared column list for queries
// that join transactions against other tables.
func qualifiedTransactionColumns(alias string) string {
	return alias + `.id, ` + alias + `.sender_account_id, ` + alias + `.receiver_account_id, ` +
		alias + `.merchant_id, ` + alias + `.type, ` + alias + `.amount, ` + alias + `.fee, ` +
		alias + `.total, COALESCE(` + alias + `.recipient_phone, ''), COALESCE(` + alias + `.recipient_name, ''), ` +
		alias + `.status, ` + alias + `.reference, COALESCE(` + alias + `.description, ''), ` +
		alias + `.executed_at, ` + alias + `.created_at, ` + alias + `.updated_at`
}
