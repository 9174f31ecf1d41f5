package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sunupay/ledger-service/internal/domain"
	"github.com/sunupay/ledger-service/internal/store"
	"github.com/sunupay/ledger-service/pkg/rabbitmq"
)

type engineRepoStub struct {
	store.Repository

	senderUserID   uuid.UUID
	senderAccount  *domain.Account
	recipientUser  *domain.User
	recipientAcct  *domain.Account
	merchant       *domain.Merchant
	spentToday     int64
	createdPending *domain.Transaction
	createdCode    *domain.VerificationCode

	pendingCreateErrs []error
	pendingCreates    int

	settleResult *domain.Transaction
	settleErr    error

	directResult *domain.Transaction
	directErr    error
	directCalls  int
}

func (s *engineRepoStub) FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	if s.senderAccount == nil || userID != s.senderUserID {
		return nil, store.ErrAccountNotFound
	}
	return s.senderAccount, nil
}

func (s *engineRepoStub) FindAccountByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	if s.recipientAcct == nil {
		return nil, store.ErrAccountNotFound
	}
	return s.recipientAcct, nil
}

func (s *engineRepoStub) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if s.recipientUser != nil && userID == s.recipientUser.ID {
		return s.recipientUser, nil
	}
	return &domain.User{ID: userID, FirstName: "Test", LastName: "Caller", Phone: "+221770000000"}, nil
}

func (s *engineRepoStub) FindMerchantByCode(ctx context.Context, code string) (*domain.Merchant, error) {
	if s.merchant == nil {
		return nil, store.ErrMerchantNotFound
	}
	return s.merchant, nil
}

func (s *engineRepoStub) SumValidatedTotalsToday(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return s.spentToday, nil
}

func (s *engineRepoStub) CreatePendingTransaction(ctx context.Context, txn *domain.Transaction, code *domain.VerificationCode) error {
	s.pendingCreates++
	if len(s.pendingCreateErrs) > 0 {
		err := s.pendingCreateErrs[0]
		s.pendingCreateErrs = s.pendingCreateErrs[1:]
		if err != nil {
			return err
		}
	}
	s.createdPending = txn
	s.createdCode = code
	txn.CreatedAt = time.Now()
	txn.UpdatedAt = txn.CreatedAt
	return nil
}

func (s *engineRepoStub) SettlePendingTransaction(ctx context.Context, p store.SettleParams) (*domain.Transaction, error) {
	return s.settleResult, s.settleErr
}

func (s *engineRepoStub) CreateSettledTransaction(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	s.directCalls++
	if s.directErr != nil {
		return s.directResult, s.directErr
	}
	if s.directResult != nil {
		return s.directResult, nil
	}
	txn.Status = domain.StatusValidated
	now := time.Now()
	txn.ExecutedAt = &now
	return txn, nil
}

func newTestService(repo store.Repository) *Service {
	return NewService(
		repo,
		&rabbitmq.EventProducerFallback{},
		nil,
		nil,
		nil,
		NewRoleAuthorizer(),
		DefaultFeeSchedule(),
	)
}

func newTransferStub() *engineRepoStub {
	senderUserID := uuid.New()
	recipientUserID := uuid.New()
	return &engineRepoStub{
		senderUserID: senderUserID,
		senderAccount: &domain.Account{
			ID:           uuid.New(),
			UserID:       senderUserID,
			Balance:      1000000,
			DailyCeiling: 500000,
			Status:       domain.AccountActive,
		},
		recipientUser: &domain.User{
			ID:        recipientUserID,
			FirstName: "Awa",
			LastName:  "Diop",
			Phone:     "+221771234567",
		},
		recipientAcct: &domain.Account{
			ID:     uuid.New(),
			UserID: recipientUserID,
			Status: domain.AccountActive,
		},
	}
}

func TestInitiateTransferComputesFeeAndStaysPending(t *testing.T) {
	repo := newTransferStub()
	svc := newTestService(repo)

	tx, err := svc.InitiateTransfer(context.Background(), repo.senderUserID, "client", domain.TransferRequest{
		RecipientPhone: "+221771234567",
		Amount:         25000,
	})
	if err != nil {
		t.Fatalf("InitiateTransfer returned error: %v", err)
	}

	if tx.Status != domain.StatusPending {
		t.Fatalf("status = %q, want pending", tx.Status)
	}
	if tx.Fee != 250 {
		t.Fatalf("fee = %d, want 250", tx.Fee)
	}
	if tx.Total != 25250 {
		t.Fatalf("total = %d, want 25250", tx.Total)
	}
	if tx.Reference == "" {
		t.Fatal("reference was not generated")
	}
	if tx.RecipientName != "Awa Diop" {
		t.Fatalf("recipient name = %q, want Awa Diop", tx.RecipientName)
	}
	if repo.createdCode == nil {
		t.Fatal("no verification code was created")
	}
	if repo.createdCode.TransactionID == nil || *repo.createdCode.TransactionID != tx.ID {
		t.Fatal("verification code is not bound to the transaction")
	}
	if len(repo.createdCode.Code) != 4 {
		t.Fatalf("code %q is not 4 digits", repo.createdCode.Code)
	}
}

func TestInitiateTransferRejectsSelfTransfer(t *testing.T) {
	repo := newTransferStub()
	repo.recipientAcct = repo.senderAccount
	svc := newTestService(repo)

	_, err := svc.InitiateTransfer(context.Background(), repo.senderUserID, "client", domain.TransferRequest{
		RecipientPhone: "+221770000000",
		Amount:         5000,
	})
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("err = %v, want ErrSelfTransfer", err)
	}
	if repo.pendingCreates != 0 {
		t.Fatal("a pending transaction was created for a self transfer")
	}
}

func TestInitiateTransferRejectsInactiveSenderAccount(t *testing.T) {
	for _, status := range []string{domain.AccountBlocked, domain.AccountClosed} {
		repo := newTransferStub()
		repo.senderAccount.Status = status
		svc := newTestService(repo)

		_, err := svc.InitiateTransfer(context.Background(), repo.senderUserID, "client", domain.TransferRequest{
			RecipientPhone: "+221771234567",
			Amount:         5000,
		})
		if !errors.Is(err, store.ErrAccountNotActive) {
			t.Fatalf("status %q: err = %v, want ErrAccountNotActive", status, err)
		}
		if repo.pendingCreates != 0 {
			t.Fatalf("status %q: a pending transaction was created for an inactive account", status)
		}
	}
}

func TestInitiatePaymentRejectsInactiveSenderAccount(t *testing.T) {
	repo := newTransferStub()
	repo.senderAccount.Status = domain.AccountBlocked
	repo.merchant = &domain.Merchant{
		ID:           uuid.New(),
		AccountID:    uuid.New(),
		BusinessName: "Chez Fatou",
		Code:         "MCH001",
		Status:       domain.MerchantActive,
	}
	svc := newTestService(repo)

	_, err := svc.InitiatePayment(context.Background(), repo.senderUserID, "client", domain.PaymentRequest{
		MerchantCode: "MCH001",
		Amount:       10000,
	})
	if !errors.Is(err, store.ErrAccountNotActive) {
		t.Fatalf("err = %v, want ErrAccountNotActive", err)
	}
	if repo.pendingCreates != 0 {
		t.Fatal("a pending transaction was created for an inactive account")
	}
}

func TestInitiateTransferRejectsNonPositiveAmount(t *testing.T) {
	repo := newTransferStub()
	svc := newTestService(repo)

	for _, amount := range []int64{0, -100} {
		_, err := svc.InitiateTransfer(context.Background(), repo.senderUserID, "client", domain.TransferRequest{
			RecipientPhone: "+221771234567",
			Amount:         amount,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestInitiateTransferRejectsUnknownRole(t *testing.T) {
	repo := newTransferStub()
	svc := newTestService(repo)

	_, err := svc.InitiateTransfer(context.Background(), repo.senderUserID, "merchant-viewer", domain.TransferRequest{
		RecipientPhone: "+221771234567",
		Amount:         5000,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestInitiateTransferDailyLimitPrecheck(t *testing.T) {
	repo := newTransferStub()
	repo.spentToday = 480000
	svc := newTestService(repo)

	// 20000 + 200 fee pushes past the 500000 ceiling.
	_, err := svc.InitiateTransfer(context.Background(), repo.senderUserID, "client", domain.TransferRequest{
		RecipientPhone: "+221771234567",
		Amount:         20000,
	})
	if !errors.Is(err, store.ErrDailyLimitExceeded) {
		t.Fatalf("err = %v, want ErrDailyLimitExceeded", err)
	}
	if repo.pendingCreates != 0 {
		t.Fatal("a pending transaction was created despite the ceiling")
	}

	// 19000 + 190 fee lands exactly under it.
	if _, err := svc.InitiateTransfer(context.Background(), repo.senderUserID, "client", domain.TransferRequest{
		RecipientPhone: "+221771234567",
		Amount:         19000,
	}); err != nil {
		t.Fatalf("transfer within ceiling returned error: %v", err)
	}
}

func TestInitiateTransferRetriesDuplicateReference(t *testing.T) {
	repo := newTransferStub()
	repo.pendingCreateErrs = []error{store.ErrDuplicateReference}
	svc := newTestService(repo)

	tx, err := svc.InitiateTransfer(context.Background(), repo.senderUserID, "client", domain.TransferRequest{
		RecipientPhone: "+221771234567",
		Amount:         5000,
	})
	if err != nil {
		t.Fatalf("InitiateTransfer returned error after retry: %v", err)
	}
	if repo.pendingCreates != 2 {
		t.Fatalf("pending creates = %d, want 2", repo.pendingCreates)
	}
	if tx.Reference == "" {
		t.Fatal("reference missing after retry")
	}
}

func TestInitiatePaymentRejectsInactiveMerchant(t *testing.T) {
	repo := newTransferStub()
	repo.merchant = &domain.Merchant{
		ID:           uuid.New(),
		AccountID:    uuid.New(),
		BusinessName: "Chez Fatou",
		Code:         "MCH001",
		Status:       domain.MerchantSuspended,
	}
	svc := newTestService(repo)

	_, err := svc.InitiatePayment(context.Background(), repo.senderUserID, "client", domain.PaymentRequest{
		MerchantCode: "MCH001",
		Amount:       10000,
	})
	if !errors.Is(err, ErrMerchantClosed) {
		t.Fatalf("err = %v, want ErrMerchantClosed", err)
	}
}

func TestVerifyReturnsFailedTransactionWithSentinel(t *testing.T) {
	repo := newTransferStub()
	failed := &domain.Transaction{
		ID:     uuid.New(),
		Type:   domain.TypeTransfer,
		Status: domain.StatusFailed,
		Amount: 25000,
		Fee:    250,
		Total:  25250,
	}
	repo.settleResult = failed
	repo.settleErr = store.ErrInsufficientFunds
	svc := newTestService(repo)

	tx, err := svc.Verify(context.Background(), repo.senderUserID, domain.VerifyRequest{
		TransactionID: failed.ID,
		Code:          "1234",
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if tx == nil || tx.Status != domain.StatusFailed {
		t.Fatal("failed transaction was not returned alongside the sentinel")
	}
}

func TestVerifyPropagatesNotPending(t *testing.T) {
	repo := newTransferStub()
	repo.settleErr = store.ErrTransactionNotPending
	svc := newTestService(repo)

	tx, err := svc.Verify(context.Background(), repo.senderUserID, domain.VerifyRequest{
		TransactionID: uuid.New(),
		Code:          "1234",
	})
	if !errors.Is(err, store.ErrTransactionNotPending) {
		t.Fatalf("err = %v, want ErrTransactionNotPending", err)
	}
	if tx != nil {
		t.Fatal("no transaction should be returned when settlement never ran")
	}
}

func TestProcessWithdrawalReturnsFailedRow(t *testing.T) {
	repo := newTransferStub()
	failed := &domain.Transaction{
		ID:     uuid.New(),
		Type:   domain.TypeWithdrawal,
		Status: domain.StatusFailed,
		Amount: 800000,
		Total:  800000,
	}
	repo.directResult = failed
	repo.directErr = store.ErrInsufficientFunds
	svc := newTestService(repo)

	tx, err := svc.ProcessWithdrawal(context.Background(), repo.senderUserID, "agent", domain.CashRequest{Amount: 800000})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if tx == nil || tx.Status != domain.StatusFailed {
		t.Fatal("failed transaction row was not surfaced")
	}
}

func TestProcessDepositSettlesImmediately(t *testing.T) {
	repo := newTransferStub()
	svc := newTestService(repo)

	tx, err := svc.ProcessDeposit(context.Background(), repo.senderUserID, "agent", domain.CashRequest{Amount: 50000})
	if err != nil {
		t.Fatalf("ProcessDeposit returned error: %v", err)
	}
	if tx.Status != domain.StatusValidated {
		t.Fatalf("status = %q, want validated", tx.Status)
	}
	if tx.Fee != 0 || tx.Total != 50000 {
		t.Fatalf("deposit carried a fee: fee=%d total=%d", tx.Fee, tx.Total)
	}
	if tx.ExecutedAt == nil {
		t.Fatal("executed_at was not set on a settled deposit")
	}
	if repo.directCalls != 1 {
		t.Fatalf("direct settlements = %d, want 1", repo.directCalls)
	}
}

func TestProcessTransferSettlesInOneStep(t *testing.T) {
	repo := newTransferStub()
	svc := newTestService(repo)

	tx, err := svc.ProcessTransfer(context.Background(), repo.senderUserID, "client", domain.TransferRequest{
		RecipientPhone: "+221771234567",
		Amount:         25000,
	})
	if err != nil {
		t.Fatalf("ProcessTransfer returned error: %v", err)
	}
	if tx.Status != domain.StatusValidated {
		t.Fatalf("status = %q, want validated", tx.Status)
	}
	if tx.Fee != 250 || tx.Total != 25250 {
		t.Fatalf("fee/total = %d/%d, want 250/25250", tx.Fee, tx.Total)
	}
	if repo.pendingCreates != 0 {
		t.Fatal("single-phase transfer must not create a pending row")
	}
	if repo.directCalls != 1 {
		t.Fatalf("direct settlements = %d, want 1", repo.directCalls)
	}
}

func TestProcessDepositRejectsClientRole(t *testing.T) {
	repo := newTransferStub()
	svc := newTestService(repo)

	_, err := svc.ProcessDeposit(context.Background(), repo.senderUserID, "client", domain.CashRequest{Amount: 50000})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}
