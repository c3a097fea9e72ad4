// Package events defines the post-commit notifications the ledger emits.
// Events are informational fan-out for downstream consumers; the transaction
// rows and account balances remain the source of truth.
package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/models"
)

// Topic is the single stream all ledger events are published to.
const Topic = "ledger-events"

const (
	TransactionCreated = "transaction.created"
	TransactionUpdated = "transaction.updated"
	TransactionDeleted = "transaction.deleted"
	TransferCreated    = "transfer.created"
)

// LedgerEvent describes one committed balance-affecting operation.
type LedgerEvent struct {
	EventID            string                 `json:"event_id"`
	Kind               string                 `json:"kind"`
	TransactionID      int64                  `json:"transaction_id"`
	OwnerID            int64                  `json:"owner_id"`
	AccountID          int64                  `json:"account_id"`
	RecipientAccountID *int64                 `json:"recipient_account_id,omitempty"`
	Amount             decimal.Decimal        `json:"amount"`
	Currency           models.Currency        `json:"currency"`
	Type               models.TransactionType `json:"type"`
	OccurredAt         time.Time              `json:"occurred_at"`
}

// Publisher delivers events to a stream.
type Publisher interface {
	Publish(topic string, event any) error
}

// Noop discards events; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(topic string, event any) error { return nil }

var _ Publisher = Noop{}
