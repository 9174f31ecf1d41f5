package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account statuses. Transitions only move toward closed; a closed account is
// never reopened.
const (
	AccountActive  = "active"
	AccountBlocked = "blocked"
	AccountClosed  = "closed"
)

// Account represents one user's monetary store. The balance is only ever
// mutated through the engine's atomic settle operations and never goes
// negative as the result of a completed transaction.
type Account struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Number       string    `json:"number"`
	Balance      int64     `json:"balance"`       // in FCFA
	DailyCeiling int64     `json:"daily_ceiling"` // in FCFA
	Status       string    `json:"status"`
	OpenedAt     time.Time `json:"opened_at"`
}

// User represents the slice of a user that the ledger-service needs: identity
// for recipient snapshots and the role driving capability checks.
type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"` // client | agent | admin
	Status    string    `json:"status"`
}

// FullName returns the display name used in recipient snapshots.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

// BalanceSummary is the read model returned by the balance endpoint.
type BalanceSummary struct {
	Balance          int64  `json:"balance"`
	FormattedBalance string `json:"formatted_balance"`
	AccountNumber    string `json:"account_number"`
	DailyCeiling     int64  `json:"daily_ceiling"`
	Status           string `json:"status"`
	Currency         string `json:"currency"`
}
