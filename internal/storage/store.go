// Package storage defines the persistence contracts consumed by the ledger
// engine. All balance-affecting writes happen through a Tx handed out by
// Store.Atomically, which commits fully or leaves no trace.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/models"
)

// Tx is the unit-of-work view the engine operates on inside an atomic scope.
// Lookups return (nil, nil) when the record does not exist; mapping absence
// to a business error is the engine's job.
type Tx interface {
	FindAccount(ctx context.Context, id int64) (*models.Account, error)
	AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error

	FindCategory(ctx context.Context, id int64) (*models.Category, error)

	FindTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	FindTransferByKey(ctx context.Context, ownerID int64, key string) (*models.Transaction, error)
}

// Store provides atomic scopes plus the read paths that do not need one.
type Store interface {
	// Atomically runs fn within a single all-or-nothing scope. If fn
	// returns an error every write made through its Tx is rolled back and
	// the same error is returned.
	Atomically(ctx context.Context, fn func(tx Tx) error) error

	FindAccount(ctx context.Context, id int64) (*models.Account, error)
	FindTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	ListTransactionsByOwner(ctx context.Context, ownerID int64) ([]models.Transaction, error)
}
