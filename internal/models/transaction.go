package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType discriminates the single row shape shared by single-entry
// transactions and two-sided transfers.
type TransactionType string

const (
	Income   TransactionType = "INCOME"
	Expense  TransactionType = "EXPENSE"
	Transfer TransactionType = "TRANSFER"
)

// Transaction is one ledger row. For transfers the row is keyed by both
// accounts: AccountID is the debited source, RecipientAccountID the credited
// destination, and Amount is denominated in the source currency.
type Transaction struct {
	ID                 int64           `json:"id"`
	OwnerID            int64           `json:"owner_id"`
	AccountID          int64           `json:"account_id"`
	RecipientAccountID *int64          `json:"account_recipient_id,omitempty"`
	CategoryID         int64           `json:"category_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           Currency        `json:"currency"`
	Type               TransactionType `json:"type"`
	Description        string          `json:"description,omitempty"`
	Date               time.Time       `json:"date"`
	GroupID            *int64          `json:"group_id,omitempty"`
	IdempotencyKey     string          `json:"-"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SignedEffect is the delta this row applies to its primary account:
// +amount for income, -amount for expense and for the source leg of a
// transfer. The destination leg of a transfer is derived separately because
// it may be converted into another currency.
func (t Transaction) SignedEffect() decimal.Decimal {
	if t.Type == Income {
		return t.Amount
	}
	return t.Amount.Neg()
}

// IsTransfer reports whether the row is a two-sided transfer.
func (t Transaction) IsTransfer() bool {
	return t.Type == Transfer
}
