package app

import "testing"

func TestTransferFee(t *testing.T) {
	fees := DefaultFeeSchedule()

	cases := []struct {
		name   string
		amount int64
		want   int64
	}{
		{"floor applies to tiny amounts", 1, 100},
		{"floor applies below threshold", 5000, 100},
		{"exactly at floor boundary", 10000, 100},
		{"one percent in the middle", 25000, 250},
		{"one percent below cap", 400000, 4000},
		{"exactly at cap boundary", 500000, 5000},
		{"cap applies above threshold", 2000000, 5000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fees.TransferFee(tc.amount)
			if got != tc.want {
				t.Fatalf("TransferFee(%d) = %d, want %d", tc.amount, got, tc.want)
			}
		})
	}
}

func TestPaymentFee(t *testing.T) {
	fees := DefaultFeeSchedule()

	cases := []struct {
		name   string
		amount int64
		want   int64
	}{
		{"minimum applies to tiny amounts", 100, 50},
		{"minimum applies below threshold", 9999, 50},
		{"exactly at minimum boundary", 10000, 50},
		{"half percent in the middle", 25000, 125},
		{"half percent for large amounts", 1000000, 5000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := fees.PaymentFee(tc.amount)
			if got != tc.want {
				t.Fatalf("PaymentFee(%d) = %d, want %d", tc.amount, got, tc.want)
			}
		})
	}
}

func TestFeeForCashMovements(t *testing.T) {
	fees := DefaultFeeSchedule()
	if fee := fees.FeeFor("deposit", 50000); fee != 0 {
		t.Fatalf("deposit fee = %d, want 0", fee)
	}
	if fee := fees.FeeFor("withdrawal", 50000); fee != 0 {
		t.Fatalf("withdrawal fee = %d, want 0", fee)
	}
}

func TestFeeScheduleZeroValuesFallBackToDefaults(t *testing.T) {
	var fees FeeSchedule
	if got := fees.TransferFee(25000); got != 250 {
		t.Fatalf("zero-value schedule TransferFee(25000) = %d, want 250", got)
	}
	if got := fees.PaymentFee(100); got != 50 {
		t.Fatalf("zero-value schedule PaymentFee(100) = %d, want 50", got)
	}
}
