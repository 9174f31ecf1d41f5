/**
 * @description
 * Event payloads published to RabbitMQ after transaction state transitions.
 * Consumers (notification delivery, analytics) receive these on the
 * `ledger.events` topic exchange; publishing is fire-and-forget and a
 * delivery failure never rolls back the transaction.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds carried in the routing key suffix.
const (
	EventInitiated = "initiated"
	EventValidated = "validated"
	EventFailed    = "failed"
	EventCancelled = "cancelled"
)

// TransactionEvent is the message payload for transaction lifecycle events.
type TransactionEvent struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Reference     string    `json:"reference"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	Fee           int64     `json:"fee"`
	Timestamp     time.Time `json:"timestamp"`
}
