/**
 * @description
 * Fee schedule for money movements. Fees are expressed in whole FCFA and
 * computed from the principal amount only; sender pays amount plus fee,
 * receiver is credited the principal.
 */

package app

import "github.com/sunupay/ledger-service/internal/domain"

// FeeSchedule holds the tunable parameters of the fee formulas. Zero values
// are replaced by the historical defaults so a partially configured schedule
// still behaves.
type FeeSchedule struct {
	TransferRate   int64 // divisor applied to the amount, 100 => 1%
	TransferFloor  int64
	TransferCap    int64
	PaymentPerMil  int64 // per-thousand rate, 5 => 0.5%
	PaymentMinimum int64
}

// DefaultFeeSchedule returns the production schedule: transfers at 1%
// clamped to [100, 5000] FCFA, merchant payments at 0.5% with a 50 FCFA
// minimum.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		TransferRate:   100,
		TransferFloor:  100,
		TransferCap:    5000,
		PaymentPerMil:  5,
		PaymentMinimum: 50,
	}
}

func (s FeeSchedule) withDefaults() FeeSchedule {
	d := DefaultFeeSchedule()
	if s.TransferRate <= 0 {
		s.TransferRate = d.TransferRate
	}
	if s.TransferFloor <= 0 {
		s.TransferFloor = d.TransferFloor
	}
	if s.TransferCap <= 0 {
		s.TransferCap = d.TransferCap
	}
	if s.PaymentPerMil <= 0 {
		s.PaymentPerMil = d.PaymentPerMil
	}
	if s.PaymentMinimum <= 0 {
		s.PaymentMinimum = d.PaymentMinimum
	}
	return s
}

// TransferFee computes the fee for a peer-to-peer transfer of the given
// amount: amount/rate, clamped to the floor and the cap.
func (s FeeSchedule) TransferFee(amount int64) int64 {
	s = s.withDefaults()
	fee := amount / s.TransferRate
	if fee < s.TransferFloor {
		fee = s.TransferFloor
	}
	if fee > s.TransferCap {
		fee = s.TransferCap
	}
	return fee
}

// PaymentFee computes the fee for a merchant payment of the given amount:
// amount * perMil / 1000, never below the minimum.
func (s FeeSchedule) PaymentFee(amount int64) int64 {
	s = s.withDefaults()
	fee := amount * s.PaymentPerMil / 1000
	if fee < s.PaymentMinimum {
		fee = s.PaymentMinimum
	}
	return fee
}

// FeeFor dispatches on transaction type. Deposits and withdrawals carry no
// fee.
func (s FeeSchedule) FeeFor(txnType string, amount int64) int64 {
	switch txnType {
	case domain.TypeTransfer:
		return s.TransferFee(amount)
	case domain.TypePayment:
		return s.PaymentFee(amount)
	default:
		return 0
	}
}
