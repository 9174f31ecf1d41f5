/**
 * @description
 * Reference and description generation for transactions, plus the French
 * amount formatting used on receipts and balance responses.
 */

package app

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sunupay/ledger-service/internal/domain"
)

// NewReference builds a transaction reference of the form
// TXN<YYYYMMDDHHMMSS><3-digit-random>. Uniqueness is enforced by the store;
// callers retry with a fresh reference on a collision.
func NewReference(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	var suffix int64
	if err == nil {
		suffix = n.Int64()
	}
	return fmt.Sprintf("TXN%s%03d", now.Format("20060102150405"), suffix)
}

// DescriptionFor renders the human-readable line stored with a transaction.
func DescriptionFor(txnType string, amount int64, counterpartyName string) string {
	formatted := FormatAmount(amount)
	switch txnType {
	case domain.TypeTransfer:
		return fmt.Sprintf("Transfer of %s FCFA to %s", formatted, counterpartyName)
	case domain.TypePayment:
		return fmt.Sprintf("Payment of %s FCFA to %s", formatted, counterpartyName)
	case domain.TypeDeposit:
		return fmt.Sprintf("Deposit of %s FCFA", formatted)
	case domain.TypeWithdrawal:
		return fmt.Sprintf("Withdrawal of %s FCFA", formatted)
	case domain.TypeCreditPurchase:
		return fmt.Sprintf("Credit purchase of %s FCFA for %s", formatted, counterpartyName)
	default:
		return fmt.Sprintf("Movement of %s FCFA", formatted)
	}
}

// FormatAmount renders a whole-FCFA amount with French digit grouping:
// non-breaking thin groups rendered as plain spaces, e.g. 1250000 -> "1 250 000".
func FormatAmount(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	out := strings.Join(groups, " ")
	if negative {
		out = "-" + out
	}
	return out
}

// FormatBalance renders a balance the way statements print it:
// "12 500,00 FCFA".
func FormatBalance(amount int64) string {
	return FormatAmount(amount) + ",00 FCFA"
}
