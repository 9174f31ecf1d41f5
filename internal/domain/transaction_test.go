package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestDisplayAmount(t *testing.T) {
	sender := uuid.New()
	receiver := uuid.New()
	stranger := uuid.New()

	transfer := &Transaction{
		SenderAccountID:   &sender,
		ReceiverAccountID: &receiver,
		Type:              TypeTransfer,
		Amount:            25000,
		Fee:               250,
		Total:             25250,
	}

	if got := DisplayAmount(transfer, sender); got != -25250 {
		t.Fatalf("sender view = %d, want -25250", got)
	}
	if got := DisplayAmount(transfer, receiver); got != 25000 {
		t.Fatalf("receiver view = %d, want 25000", got)
	}
	if got := DisplayAmount(transfer, stranger); got != 0 {
		t.Fatalf("stranger view = %d, want 0", got)
	}
}

func TestDisplayAmountCashMovements(t *testing.T) {
	account := uuid.New()

	deposit := &Transaction{
		ReceiverAccountID: &account,
		Type:              TypeDeposit,
		Amount:            50000,
		Total:             50000,
	}
	if got := DisplayAmount(deposit, account); got != 50000 {
		t.Fatalf("deposit view = %d, want 50000", got)
	}

	withdrawal := &Transaction{
		SenderAccountID: &account,
		Type:            TypeWithdrawal,
		Amount:          15000,
		Total:           15000,
	}
	if got := DisplayAmount(withdrawal, account); got != -15000 {
		t.Fatalf("withdrawal view = %d, want -15000", got)
	}
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{StatusPending, false},
		{StatusValidated, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}
	for _, tc := range cases {
		tx := &Transaction{Status: tc.status}
		if got := tx.IsTerminal(); got != tc.want {
			t.Fatalf("IsTerminal(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
