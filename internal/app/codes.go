/**
 * @description
 * Verification code issuance. Codes are 4 random digits drawn from
 * crypto/rand; transaction codes live 5 minutes, login codes 10.
 */

package app

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/sunupay/ledger-service/internal/domain"
)

const (
	transactionCodeTTL = 5 * time.Minute
	loginCodeTTL       = 10 * time.Minute
)

// newCodeValue returns a zero-padded 4-digit code.
func newCodeValue() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generating verification code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// newTransactionCode builds an unconsumed code bound to a pending
// transaction.
func newTransactionCode(userID, transactionID uuid.UUID, now time.Time) (*domain.VerificationCode, error) {
	value, err := newCodeValue()
	if err != nil {
		return nil, err
	}
	txnID := transactionID
	return &domain.VerificationCode{
		ID:            uuid.New(),
		UserID:        userID,
		TransactionID: &txnID,
		Code:          value,
		Kind:          domain.CodeKindSMS,
		ExpiresAt:     now.Add(transactionCodeTTL),
		CreatedAt:     now,
	}, nil
}

// newLoginCode builds an unconsumed login code with the longer lifetime.
func newLoginCode(userID uuid.UUID, now time.Time) (*domain.VerificationCode, error) {
	value, err := newCodeValue()
	if err != nil {
		return nil, err
	}
	return &domain.VerificationCode{
		ID:        uuid.New(),
		UserID:    userID,
		Code:      value,
		Kind:      domain.CodeKindSMS,
		ExpiresAt: now.Add(loginCodeTTL),
		CreatedAt: now,
	}, nil
}
