package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies how the money is held.
type AccountType string

const (
	AccountBank AccountType = "bank"
	AccountCash AccountType = "cash"
	AccountCard AccountType = "card"
)

// Account holds one balance in one currency for one owner.
// Balance is the only field the ledger engine mutates; everything else is
// managed by the account collaborator and treated as immutable here.
type Account struct {
	ID        int64           `json:"id"`
	OwnerID   int64           `json:"owner_id"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Currency  Currency        `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	GroupID   *int64          `json:"group_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Category is a read-only reference record; the ledger only checks existence.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}
