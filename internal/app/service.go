/**
 * @description
 * This file contains the core business logic for the ledger service. The
 * Service struct orchestrates money movements: two-phase transfers and
 * merchant payments (initiate, then confirm with a one-time code), and
 * single-phase deposits and withdrawals. It also serves the read side
 * (balances, history) and the login flow.
 *
 * All balance mutations are delegated to the store's atomic settle methods;
 * this layer validates input, computes fees and references, enforces
 * capability checks, and emits events and SMS notifications best-effort.
 *
 * @dependencies
 * - internal/store: For database operations (via the Repository interface).
 * - internal/domain: For the core data models.
 * - internal/auth: For JWT issuance at login.
 * - pkg/rabbitmq: For publishing lifecycle events.
 * - pkg/smsclient: For verification code and receipt delivery.
 * - golang.org/x/crypto/bcrypt: For secret-code verification.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sunupay/ledger-service/internal/auth"
	"github.com/sunupay/ledger-service/internal/domain"
	"github.com/sunupay/ledger-service/internal/store"
	"github.com/sunupay/ledger-service/pkg/rabbitmq"
	"github.com/sunupay/ledger-service/pkg/smsclient"
)

// Engine-level validation errors. Store sentinels (insufficient funds,
// daily limit, invalid code) pass through untouched.
var (
	ErrInvalidAmount  = errors.New("amount must be a positive whole number")
	ErrSelfTransfer   = errors.New("sender and recipient are the same account")
	ErrUnauthorized   = errors.New("caller is not allowed to perform this operation")
	ErrInvalidSecret  = errors.New("invalid phone or secret code")
	ErrMerchantClosed = errors.New("merchant is not accepting payments")
)

// Service provides the business logic for the ledger.
type Service struct {
	repo       store.Repository
	producer   rabbitmq.Publisher
	sms        smsclient.Sender
	tokens     *auth.TokenManager
	cache      *BalanceCache
	authorizer Authorizer
	fees       FeeSchedule
}

// NewService creates a new instance of the ledger service.
func NewService(
	repo store.Repository,
	producer rabbitmq.Publisher,
	sms smsclient.Sender,
	tokens *auth.TokenManager,
	cache *BalanceCache,
	authorizer Authorizer,
	fees FeeSchedule,
) *Service {
	return &Service{
		repo:       repo,
		producer:   producer,
		sms:        sms,
		tokens:     tokens,
		cache:      cache,
		authorizer: authorizer,
		fees:       fees,
	}
}

// --- Login flow ---

// Login checks the phone is registered and sends a short-lived login code by
// SMS. It returns the masked phone the code was sent to.
func (s *Service) Login(ctx context.Context, phone string) (string, error) {
	user, err := s.repo.FindUserByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return "", err
	}

	code, err := newLoginCode(user.ID, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if err := s.repo.CreateVerificationCode(ctx, code); err != nil {
		return "", fmt.Errorf("storing login code: %w", err)
	}

	s.sendSMS(user.Phone, fmt.Sprintf("Your login code is %s. It expires in 10 minutes.", code.Code))

	return maskPhone(user.Phone), nil
}

// VerifySecret finishes the login: it consumes the SMS code, bcrypt-compares
// the account secret and issues a signed token. Secret mismatches and bad
// codes are collapsed into ErrInvalidSecret so the response does not reveal
// which factor failed.
func (s *Service) VerifySecret(ctx context.Context, phone, secret, code string) (string, *domain.User, error) {
	user, err := s.repo.FindUserByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", nil, ErrInvalidSecret
		}
		return "", nil, err
	}

	if err := s.repo.ConsumeLoginCode(ctx, user.ID, strings.TrimSpace(code)); err != nil {
		if errors.Is(err, store.ErrInvalidOrExpiredCode) {
			return "", nil, ErrInvalidSecret
		}
		return "", nil, err
	}

	hash, err := s.repo.GetAccountSecretHash(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrSecretNotSet) {
			return "", nil, ErrInvalidSecret
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		log.Printf("level=warn component=ledger_service msg=\"secret verification failed\" user_id=%s", user.ID)
		return "", nil, ErrInvalidSecret
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return "", nil, fmt.Errorf("issuing token: %w", err)
	}

	log.Printf("level=info component=ledger_service msg=\"user logged in\" user_id=%s role=%s", user.ID, user.Role)
	return token, user, nil
}

// --- Two-phase movements ---

// InitiateTransfer records a pending transfer to another account and sends
// the confirmation code. No balances change until the code is verified.
func (s *Service) InitiateTransfer(ctx context.Context, callerUserID uuid.UUID, role string, req domain.TransferRequest) (*domain.Transaction, error) {
	if !s.authorizer.Allowed(role, CapabilityMove) {
		return nil, ErrUnauthorized
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	sender, err := s.repo.FindAccountByUserID(ctx, callerUserID)
	if err != nil {
		return nil, err
	}
	if sender.Status != domain.AccountActive {
		return nil, store.ErrAccountNotActive
	}
	receiver, err := s.repo.FindAccountByPhone(ctx, strings.TrimSpace(req.RecipientPhone))
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, store.ErrRecipientNotFound
		}
		return nil, err
	}
	if sender.ID == receiver.ID {
		return nil, ErrSelfTransfer
	}

	recipient, err := s.repo.FindUserByID(ctx, receiver.UserID)
	if err != nil {
		return nil, err
	}

	fee := s.fees.TransferFee(req.Amount)
	txn := &domain.Transaction{
		ID:                uuid.New(),
		SenderAccountID:   &sender.ID,
		ReceiverAccountID: &receiver.ID,
		Type:              domain.TypeTransfer,
		Amount:            req.Amount,
		Fee:               fee,
		Total:             req.Amount + fee,
		RecipientPhone:    recipient.Phone,
		RecipientName:     recipient.FullName(),
		Status:            domain.StatusPending,
		Description:       req.Description,
	}
	if txn.Description == "" {
		txn.Description = DescriptionFor(domain.TypeTransfer, req.Amount, recipient.FullName())
	}

	// Non-blocking precheck. The settle step repeats it under lock; failing
	// early here saves the caller a wasted code.
	if err := s.checkDailyLimit(ctx, sender, txn.Total); err != nil {
		return nil, err
	}

	if err := s.createPendingWithCode(ctx, callerUserID, txn); err != nil {
		return nil, err
	}

	s.publishEvent(domain.EventInitiated, txn)
	log.Printf("level=info component=ledger_service msg=\"transfer initiated\" transaction_id=%s reference=%s amount=%d fee=%d", txn.ID, txn.Reference, txn.Amount, txn.Fee)
	return txn, nil
}

// InitiatePayment records a pending merchant payment and sends the
// confirmation code.
func (s *Service) InitiatePayment(ctx context.Context, callerUserID uuid.UUID, role string, req domain.PaymentRequest) (*domain.Transaction, error) {
	if !s.authorizer.Allowed(role, CapabilityMove) {
		return nil, ErrUnauthorized
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	sender, err := s.repo.FindAccountByUserID(ctx, callerUserID)
	if err != nil {
		return nil, err
	}
	if sender.Status != domain.AccountActive {
		return nil, store.ErrAccountNotActive
	}
	merchant, err := s.repo.FindMerchantByCode(ctx, strings.TrimSpace(req.MerchantCode))
	if err != nil {
		return nil, err
	}
	if merchant.Status != domain.MerchantActive {
		return nil, ErrMerchantClosed
	}
	if sender.ID == merchant.AccountID {
		return nil, ErrSelfTransfer
	}

	fee := s.fees.PaymentFee(req.Amount)
	merchantAccountID := merchant.AccountID
	merchantID := merchant.ID
	txn := &domain.Transaction{
		ID:                uuid.New(),
		SenderAccountID:   &sender.ID,
		ReceiverAccountID: &merchantAccountID,
		MerchantID:        &merchantID,
		Type:              domain.TypePayment,
		Amount:            req.Amount,
		Fee:               fee,
		Total:             req.Amount + fee,
		RecipientName:     merchant.BusinessName,
		Status:            domain.StatusPending,
		Description:       req.Description,
	}
	if txn.Description == "" {
		txn.Description = DescriptionFor(domain.TypePayment, req.Amount, merchant.BusinessName)
	}

	if err := s.checkDailyLimit(ctx, sender, txn.Total); err != nil {
		return nil, err
	}

	if err := s.createPendingWithCode(ctx, callerUserID, txn); err != nil {
		return nil, err
	}

	s.publishEvent(domain.EventInitiated, txn)
	log.Printf("level=info component=ledger_service msg=\"payment initiated\" transaction_id=%s reference=%s merchant=%s amount=%d fee=%d", txn.ID, txn.Reference, merchant.Code, txn.Amount, txn.Fee)
	return txn, nil
}

// Verify settles a pending transaction with the one-time code. On a business
// rejection the transaction is already marked failed by the store; on an
// invalid code it stays pending and may be retried.
func (s *Service) Verify(ctx context.Context, callerUserID uuid.UUID, req domain.VerifyRequest) (*domain.Transaction, error) {
	txn, err := s.repo.SettlePendingTransaction(ctx, store.SettleParams{
		TransactionID: req.TransactionID,
		CallerUserID:  callerUserID,
		Code:          strings.TrimSpace(req.Code),
	})
	if err != nil {
		if txn != nil && txn.Status == domain.StatusFailed {
			s.publishEvent(domain.EventFailed, txn)
			log.Printf("level=warn component=ledger_service msg=\"settlement rejected\" transaction_id=%s reason=%v", req.TransactionID, err)
			return txn, err
		}
		return nil, err
	}

	s.invalidateTotals(callerUserID)
	s.publishEvent(domain.EventValidated, txn)
	s.sendSMS(txn.RecipientPhone, fmt.Sprintf("You received %s FCFA. Ref %s.", FormatAmount(txn.Amount), txn.Reference))
	log.Printf("level=info component=ledger_service msg=\"transaction validated\" transaction_id=%s reference=%s total=%d", txn.ID, txn.Reference, txn.Total)
	return txn, nil
}

// CancelPending cancels a still-pending transaction on behalf of its owner.
func (s *Service) CancelPending(ctx context.Context, callerUserID, transactionID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.repo.CancelPendingTransaction(ctx, transactionID, callerUserID)
	if err != nil {
		return nil, err
	}
	s.publishEvent(domain.EventCancelled, txn)
	log.Printf("level=info component=ledger_service msg=\"transaction cancelled\" transaction_id=%s reference=%s", txn.ID, txn.Reference)
	return txn, nil
}

// --- Single-phase movements ---

// ProcessDeposit credits the caller's account immediately. Agent-side cash
// handling is outside the ledger; the movement itself settles in one step.
func (s *Service) ProcessDeposit(ctx context.Context, callerUserID uuid.UUID, role string, req domain.CashRequest) (*domain.Transaction, error) {
	if !s.authorizer.Allowed(role, CapabilityCash) {
		return nil, ErrUnauthorized
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	account, err := s.repo.FindAccountByUserID(ctx, callerUserID)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:                uuid.New(),
		ReceiverAccountID: &account.ID,
		Type:              domain.TypeDeposit,
		Amount:            req.Amount,
		Fee:               0,
		Total:             req.Amount,
		Description:       DescriptionFor(domain.TypeDeposit, req.Amount, ""),
	}
	return s.settleDirect(ctx, callerUserID, txn)
}

// ProcessWithdrawal debits the caller's account immediately. A business
// rejection still persists a failed transaction row for the statement.
func (s *Service) ProcessWithdrawal(ctx context.Context, callerUserID uuid.UUID, role string, req domain.CashRequest) (*domain.Transaction, error) {
	if !s.authorizer.Allowed(role, CapabilityCash) {
		return nil, ErrUnauthorized
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	account, err := s.repo.FindAccountByUserID(ctx, callerUserID)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:              uuid.New(),
		SenderAccountID: &account.ID,
		Type:            domain.TypeWithdrawal,
		Amount:          req.Amount,
		Fee:             0,
		Total:           req.Amount,
		Description:     DescriptionFor(domain.TypeWithdrawal, req.Amount, ""),
	}
	return s.settleDirect(ctx, callerUserID, txn)
}

// ProcessTransfer settles a transfer in one step with no confirmation code,
// for surfaces that carry their own authentication factor. The store still
// owns the limit and sufficiency checks under lock.
func (s *Service) ProcessTransfer(ctx context.Context, callerUserID uuid.UUID, role string, req domain.TransferRequest) (*domain.Transaction, error) {
	if !s.authorizer.Allowed(role, CapabilityMove) {
		return nil, ErrUnauthorized
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	sender, err := s.repo.FindAccountByUserID(ctx, callerUserID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.repo.FindAccountByPhone(ctx, strings.TrimSpace(req.RecipientPhone))
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, store.ErrRecipientNotFound
		}
		return nil, err
	}
	if sender.ID == receiver.ID {
		return nil, ErrSelfTransfer
	}
	recipient, err := s.repo.FindUserByID(ctx, receiver.UserID)
	if err != nil {
		return nil, err
	}

	fee := s.fees.TransferFee(req.Amount)
	txn := &domain.Transaction{
		ID:                uuid.New(),
		SenderAccountID:   &sender.ID,
		ReceiverAccountID: &receiver.ID,
		Type:              domain.TypeTransfer,
		Amount:            req.Amount,
		Fee:               fee,
		Total:             req.Amount + fee,
		RecipientPhone:    recipient.Phone,
		RecipientName:     recipient.FullName(),
		Description:       DescriptionFor(domain.TypeTransfer, req.Amount, recipient.FullName()),
	}
	return s.settleDirect(ctx, callerUserID, txn)
}

// ProcessPayment settles a merchant payment in one step with no confirmation
// code.
func (s *Service) ProcessPayment(ctx context.Context, callerUserID uuid.UUID, role string, req domain.PaymentRequest) (*domain.Transaction, error) {
	if !s.authorizer.Allowed(role, CapabilityMove) {
		return nil, ErrUnauthorized
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	sender, err := s.repo.FindAccountByUserID(ctx, callerUserID)
	if err != nil {
		return nil, err
	}
	merchant, err := s.repo.FindMerchantByCode(ctx, strings.TrimSpace(req.MerchantCode))
	if err != nil {
		return nil, err
	}
	if merchant.Status != domain.MerchantActive {
		return nil, ErrMerchantClosed
	}
	if sender.ID == merchant.AccountID {
		return nil, ErrSelfTransfer
	}

	fee := s.fees.PaymentFee(req.Amount)
	merchantAccountID := merchant.AccountID
	merchantID := merchant.ID
	txn := &domain.Transaction{
		ID:                uuid.New(),
		SenderAccountID:   &sender.ID,
		ReceiverAccountID: &merchantAccountID,
		MerchantID:        &merchantID,
		Type:              domain.TypePayment,
		Amount:            req.Amount,
		Fee:               fee,
		Total:             req.Amount + fee,
		RecipientName:     merchant.BusinessName,
		Description:       DescriptionFor(domain.TypePayment, req.Amount, merchant.BusinessName),
	}
	return s.settleDirect(ctx, callerUserID, txn)
}

// --- Read side ---

// Balance returns the caller's account balance summary.
func (s *Service) Balance(ctx context.Context, callerUserID uuid.UUID) (*domain.BalanceSummary, error) {
	account, err := s.repo.FindAccountByUserID(ctx, callerUserID)
	if err != nil {
		return nil, err
	}
	return &domain.BalanceSummary{
		Balance:          account.Balance,
		FormattedBalance: FormatBalance(account.Balance),
		AccountNumber:    account.Number,
		DailyCeiling:     account.DailyCeiling,
		Status:           account.Status,
		Currency:         "FCFA",
	}, nil
}

// TotalBalance returns the caller's aggregate across active accounts,
// serving from the Redis cache when warm.
func (s *Service) TotalBalance(ctx context.Context, callerUserID uuid.UUID) (int64, error) {
	if total, ok := s.cache.GetTotal(ctx, callerUserID); ok {
		return total, nil
	}
	total, err := s.repo.TotalActiveBalance(ctx, callerUserID)
	if err != nil {
		return 0, err
	}
	s.cache.SetTotal(ctx, callerUserID, total)
	return total, nil
}

// HistoryEntry is one statement row: the transaction plus its signed amount
// from the caller's perspective.
type HistoryEntry struct {
	domain.Transaction
	DisplayAmount int64 `json:"display_amount"`
}

// History lists the caller's transactions with filters and pagination.
func (s *Service) History(ctx context.Context, callerUserID uuid.UUID, opts domain.HistoryOptions) ([]HistoryEntry, error) {
	account, err := s.repo.FindAccountByUserID(ctx, callerUserID)
	if err != nil {
		return nil, err
	}
	txns, err := s.repo.ListTransactionsForAccount(ctx, account.ID, opts)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(txns))
	for i := range txns {
		entries = append(entries, HistoryEntry{
			Transaction:   txns[i],
			DisplayAmount: domain.DisplayAmount(&txns[i], account.ID),
		})
	}
	return entries, nil
}

// GetTransaction returns one transaction if the caller owns either side.
func (s *Service) GetTransaction(ctx context.Context, callerUserID, transactionID uuid.UUID) (*HistoryEntry, error) {
	account, err := s.repo.FindAccountByUserID(ctx, callerUserID)
	if err != nil {
		return nil, err
	}
	txn, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	involved := (txn.SenderAccountID != nil && *txn.SenderAccountID == account.ID) ||
		(txn.ReceiverAccountID != nil && *txn.ReceiverAccountID == account.ID)
	if !involved {
		return nil, store.ErrTransactionNotFound
	}
	return &HistoryEntry{
		Transaction:   *txn,
		DisplayAmount: domain.DisplayAmount(txn, account.ID),
	}, nil
}

// --- Internals ---

// checkDailyLimit is the initiate-time ceiling precheck. The authoritative
// check runs again inside the settle transaction.
func (s *Service) checkDailyLimit(ctx context.Context, sender *domain.Account, total int64) error {
	spentToday, err := s.repo.SumValidatedTotalsToday(ctx, sender.ID)
	if err != nil {
		return err
	}
	if spentToday+total > sender.DailyCeiling {
		return store.ErrDailyLimitExceeded
	}
	return nil
}

// createPendingWithCode generates the reference and the one-time code,
// persists both atomically, and sends the code by SMS. A reference collision
// gets one retry with a fresh reference.
func (s *Service) createPendingWithCode(ctx context.Context, callerUserID uuid.UUID, txn *domain.Transaction) error {
	now := time.Now().UTC()
	code, err := newTransactionCode(callerUserID, txn.ID, now)
	if err != nil {
		return err
	}

	txn.Reference = NewReference(now)
	err = s.repo.CreatePendingTransaction(ctx, txn, code)
	if errors.Is(err, store.ErrDuplicateReference) {
		txn.Reference = NewReference(time.Now().UTC())
		err = s.repo.CreatePendingTransaction(ctx, txn, code)
	}
	if err != nil {
		return err
	}

	caller, lookupErr := s.repo.FindUserByID(ctx, callerUserID)
	if lookupErr == nil {
		s.sendSMS(caller.Phone, fmt.Sprintf("Confirmation code %s for %s FCFA. Expires in 5 minutes.", code.Code, FormatAmount(txn.Total)))
	}
	return nil
}

// settleDirect runs a single-phase settlement and handles the failed-row
// case: the store persists the rejection, the caller still gets the sentinel.
func (s *Service) settleDirect(ctx context.Context, callerUserID uuid.UUID, txn *domain.Transaction) (*domain.Transaction, error) {
	txn.Reference = NewReference(time.Now().UTC())
	settled, err := s.repo.CreateSettledTransaction(ctx, txn)
	if errors.Is(err, store.ErrDuplicateReference) {
		txn.Reference = NewReference(time.Now().UTC())
		settled, err = s.repo.CreateSettledTransaction(ctx, txn)
	}
	if err != nil {
		if settled != nil && settled.Status == domain.StatusFailed {
			s.publishEvent(domain.EventFailed, settled)
			log.Printf("level=warn component=ledger_service msg=\"settlement rejected\" transaction_id=%s type=%s reason=%v", settled.ID, settled.Type, err)
			return settled, err
		}
		return nil, err
	}

	s.invalidateTotals(callerUserID)
	s.publishEvent(domain.EventValidated, settled)
	log.Printf("level=info component=ledger_service msg=\"transaction settled\" transaction_id=%s type=%s reference=%s total=%d", settled.ID, settled.Type, settled.Reference, settled.Total)
	return settled, nil
}

// invalidateTotals drops the caller's cached aggregate after any mutation.
func (s *Service) invalidateTotals(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.cache.Invalidate(ctx, userID)
}

// publishEvent emits a lifecycle event, detached from the request so a slow
// broker never delays a settlement response.
func (s *Service) publishEvent(eventType string, txn *domain.Transaction) {
	event := domain.TransactionEvent{
		TransactionID: txn.ID,
		Reference:     txn.Reference,
		Type:          txn.Type,
		Status:        txn.Status,
		Amount:        txn.Amount,
		Fee:           txn.Fee,
		Timestamp:     time.Now().UTC(),
	}
	routingKey := "transaction." + eventType
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.producer.Publish(ctx, rabbitmq.LedgerEventsExchange, routingKey, event); err != nil {
			log.Printf("level=warn component=ledger_service msg=\"event publish failed\" routing_key=%s transaction_id=%s error=%v", routingKey, txn.ID, err)
		}
	}()
}

// sendSMS delivers a message best-effort on a detached goroutine.
func (s *Service) sendSMS(phone, message string) {
	if s.sms == nil || phone == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.sms.Send(ctx, phone, message); err != nil {
			log.Printf("level=warn component=ledger_service msg=\"sms delivery failed\" error=%v", err)
		}
	}()
}

// maskPhone hides all but the last two digits for login responses.
func maskPhone(phone string) string {
	if len(phone) <= 2 {
		return phone
	}
	return strings.Repeat("*", len(phone)-2) + phone[len(phone)-2:]
}
