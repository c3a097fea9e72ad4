// Package ledger is the only authorized path for balance-affecting state
// change. Every operation runs as one atomic scope spanning the transaction
// row and the balance adjustment: either both commit or neither does.
package ledger

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/apperr"
	"github.com/finbook/ledger/internal/events"
	"github.com/finbook/ledger/internal/models"
	"github.com/finbook/ledger/internal/rates"
	"github.com/finbook/ledger/internal/storage"
)

// Engine validates and applies single-entry transactions and two-sided
// transfers against the store. It keeps one mutex per account so that two
// operations touching the same account never interleave their
// read-modify-write balance sequence.
type Engine struct {
	store     storage.Store
	rates     rates.Source
	publisher events.Publisher
	log       *slog.Logger

	muMap map[int64]*sync.Mutex
	mapMu sync.Mutex // protects muMap itself
}

func NewEngine(store storage.Store, rateSource rates.Source, publisher events.Publisher, log *slog.Logger) *Engine {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:     store,
		rates:     rateSource,
		publisher: publisher,
		log:       log,
		muMap:     make(map[int64]*sync.Mutex),
	}
}

func (e *Engine) accountLock(accountID int64) *sync.Mutex {
	e.mapMu.Lock()
	defer e.mapMu.Unlock()

	if _, exists := e.muMap[accountID]; !exists {
		e.muMap[accountID] = &sync.Mutex{}
	}
	return e.muMap[accountID]
}

// lockAccounts acquires the per-account mutexes in ascending id order, so
// two concurrent transfers referencing the same pair in opposite directions
// cannot deadlock. The returned func releases them in reverse order.
func (e *Engine) lockAccounts(ids ...int64) func() {
	sorted := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	locks := make([]*sync.Mutex, len(sorted))
	for i, id := range sorted {
		locks[i] = e.accountLock(id)
		locks[i].Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

// CreateTransactionInput carries a validated income or expense command.
type CreateTransactionInput struct {
	AccountID   int64
	CategoryID  int64
	Type        models.TransactionType
	Amount      decimal.Decimal
	Currency    models.Currency
	Date        time.Time
	Description string
}

// CreateTransaction inserts a single-entry transaction row and applies its
// signed effect to the account balance in one atomic scope.
func (e *Engine) CreateTransaction(ctx context.Context, actorID int64, in CreateTransactionInput) (*models.Transaction, error) {
	if actorID <= 0 {
		return nil, apperr.New(apperr.Validation, "invalid actor id")
	}
	if in.Type != models.Income && in.Type != models.Expense {
		return nil, apperr.Newf(apperr.Validation, "unsupported transaction type %q, transfers use the transfer operation", in.Type)
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.New(apperr.Validation, "amount must be greater than 0")
	}
	if in.Currency != "" && !in.Currency.Supported() {
		return nil, apperr.Newf(apperr.Validation, "unsupported currency %q", in.Currency)
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	unlock := e.lockAccounts(in.AccountID)
	defer unlock()

	var created *models.Transaction
	err := e.store.Atomically(ctx, func(tx storage.Tx) error {
		account, err := tx.FindAccount(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return apperr.New(apperr.NotFound, "account not found")
		}
		if account.OwnerID != actorID {
			return apperr.New(apperr.Unauthorized, "account does not belong to the user")
		}
		if in.Currency != "" && in.Currency != account.Currency {
			return apperr.Newf(apperr.Validation,
				"transaction currency %q does not match account currency %q", in.Currency, account.Currency)
		}

		category, err := tx.FindCategory(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return apperr.New(apperr.NotFound, "category not found")
		}

		row := &models.Transaction{
			OwnerID:     actorID,
			AccountID:   account.ID,
			CategoryID:  category.ID,
			Amount:      in.Amount,
			Currency:    account.Currency,
			Type:        in.Type,
			Description: in.Description,
			Date:        in.Date,
		}
		if err := tx.InsertTransaction(ctx, row); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, account.ID, row.SignedEffect()); err != nil {
			return err
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, e.classify(err, "create transaction")
	}

	e.publish(events.TransactionCreated, created)
	return created, nil
}

// UpdateTransactionInput carries the replacement field values. The type is
// deliberately absent: re-typing income to expense is not supported.
type UpdateTransactionInput struct {
	Amount      decimal.Decimal
	CategoryID  int64
	Date        *time.Time
	Description *string
}

// UpdateTransaction reverses the existing signed effect, persists the new
// field values and applies the new effect, all within one atomic scope. The
// net result equals delete-then-recreate with the same identifier.
func (e *Engine) UpdateTransaction(ctx context.Context, actorID, transactionID int64, in UpdateTransactionInput) (*models.Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, apperr.New(apperr.Validation, "amount must be greater than 0")
	}

	existing, err := e.ownedTransaction(ctx, actorID, transactionID)
	if err != nil {
		return nil, err
	}

	unlock := e.lockAccounts(existing.AccountID)
	defer unlock()

	var updated *models.Transaction
	err = e.store.Atomically(ctx, func(tx storage.Tx) error {
		row, err := e.ownedTransactionTx(ctx, tx, actorID, transactionID)
		if err != nil {
			return err
		}

		category, err := tx.FindCategory(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return apperr.New(apperr.NotFound, "category not found")
		}

		// Compensate the old effect before the new values take over.
		if err := tx.AdjustBalance(ctx, row.AccountID, row.SignedEffect().Neg()); err != nil {
			return err
		}

		row.Amount = in.Amount
		row.CategoryID = category.ID
		if in.Date != nil {
			row.Date = *in.Date
		}
		if in.Description != nil {
			row.Description = *in.Description
		}
		if err := tx.UpdateTransaction(ctx, row); err != nil {
			return err
		}

		if err := tx.AdjustBalance(ctx, row.AccountID, row.SignedEffect()); err != nil {
			return err
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, e.classify(err, "update transaction")
	}

	e.publish(events.TransactionUpdated, updated)
	return updated, nil
}

// DeleteTransaction reverses the transaction's signed effect and removes the
// row in one atomic scope.
func (e *Engine) DeleteTransaction(ctx context.Context, actorID, transactionID int64) error {
	existing, err := e.ownedTransaction(ctx, actorID, transactionID)
	if err != nil {
		return err
	}

	unlock := e.lockAccounts(existing.AccountID)
	defer unlock()

	var deleted *models.Transaction
	err = e.store.Atomically(ctx, func(tx storage.Tx) error {
		row, err := e.ownedTransactionTx(ctx, tx, actorID, transactionID)
		if err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, row.AccountID, row.SignedEffect().Neg()); err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, row.ID); err != nil {
			return err
		}
		deleted = row
		return nil
	})
	if err != nil {
		return e.classify(err, "delete transaction")
	}

	e.publish(events.TransactionDeleted, deleted)
	return nil
}

// CreateTransferInput carries a validated transfer command. Amount is
// denominated in the source account's currency. IdempotencyKey is optional;
// when set, a replay returns the recorded transfer without reapplying it.
type CreateTransferInput struct {
	SourceAccountID int64
	DestAccountID   int64
	CategoryID      int64
	Amount          decimal.Decimal
	Date            time.Time
	Description     string
	GroupID         *int64
	IdempotencyKey  string
}

// TransferResult is the outcome of CreateTransfer. CreditAmount is the
// destination-side delta, converted when the currencies differ; it is zero
// for an idempotent replay, where only the recorded row is returned.
type TransferResult struct {
	Transaction  *models.Transaction `json:"transaction"`
	CreditAmount decimal.Decimal     `json:"credit_amount"`
	Replayed     bool                `json:"replayed,omitempty"`
}

// CreateTransfer moves money between two accounts of the same owner. The
// rate snapshot is obtained before the atomic scope so the commit-critical
// section never waits on the network; conversion itself is pure.
func (e *Engine) CreateTransfer(ctx context.Context, actorID int64, in CreateTransferInput) (*TransferResult, error) {
	if actorID <= 0 {
		return nil, apperr.New(apperr.Validation, "invalid actor id")
	}
	if in.SourceAccountID <= 0 || in.DestAccountID <= 0 {
		return nil, apperr.New(apperr.Validation, "both source and destination accounts are required")
	}
	if in.SourceAccountID == in.DestAccountID {
		return nil, apperr.New(apperr.Validation, "cannot transfer to the same account")
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.New(apperr.Validation, "amount must be greater than 0")
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	snapshot, err := e.rates.GetRates(ctx)
	if err != nil {
		return nil, e.classify(err, "get exchange rates")
	}

	unlock := e.lockAccounts(in.SourceAccountID, in.DestAccountID)
	defer unlock()

	var result *TransferResult
	err = e.store.Atomically(ctx, func(tx storage.Tx) error {
		if in.IdempotencyKey != "" {
			prior, err := tx.FindTransferByKey(ctx, actorID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if prior != nil {
				result = &TransferResult{Transaction: prior, Replayed: true}
				return nil
			}
		}

		// Rows are locked in ascending account-id order; the validation
		// below still follows the protocol order (source checks first).
		accounts := make(map[int64]*models.Account, 2)
		for _, id := range sortedPair(in.SourceAccountID, in.DestAccountID) {
			account, err := tx.FindAccount(ctx, id)
			if err != nil {
				return err
			}
			accounts[id] = account
		}
		source := accounts[in.SourceAccountID]
		dest := accounts[in.DestAccountID]

		if source == nil {
			return apperr.New(apperr.NotFound, "source account not found")
		}
		if source.OwnerID != actorID {
			return apperr.New(apperr.Unauthorized, "source account does not belong to the user")
		}
		if source.Balance.LessThan(in.Amount) {
			return apperr.New(apperr.Validation, "insufficient funds on the source account")
		}
		if dest == nil {
			return apperr.New(apperr.NotFound, "destination account not found")
		}
		if dest.OwnerID != actorID {
			return apperr.New(apperr.Unauthorized, "destination account does not belong to the user")
		}

		category, err := tx.FindCategory(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return apperr.New(apperr.NotFound, "category not found")
		}

		creditAmount, err := snapshot.Convert(in.Amount, source.Currency, dest.Currency)
		if err != nil {
			return err
		}

		recipientID := dest.ID
		row := &models.Transaction{
			OwnerID:            actorID,
			AccountID:          source.ID,
			RecipientAccountID: &recipientID,
			CategoryID:         category.ID,
			Amount:             in.Amount,
			Currency:           source.Currency,
			Type:               models.Transfer,
			Description:        in.Description,
			Date:               in.Date,
			GroupID:            in.GroupID,
			IdempotencyKey:     in.IdempotencyKey,
		}
		if err := tx.InsertTransaction(ctx, row); err != nil {
			return err
		}

		deltas := map[int64]decimal.Decimal{
			source.ID: in.Amount.Neg(),
			dest.ID:   creditAmount,
		}
		for _, id := range sortedPair(source.ID, dest.ID) {
			if err := tx.AdjustBalance(ctx, id, deltas[id]); err != nil {
				return err
			}
		}

		result = &TransferResult{Transaction: row, CreditAmount: creditAmount}
		return nil
	})
	if err != nil {
		return nil, e.classify(err, "create transfer")
	}

	if !result.Replayed {
		e.publish(events.TransferCreated, result.Transaction)
	}
	return result, nil
}

// ListTransactions returns the actor's ledger rows, newest first.
func (e *Engine) ListTransactions(ctx context.Context, actorID int64) ([]models.Transaction, error) {
	rows, err := e.store.ListTransactionsByOwner(ctx, actorID)
	if err != nil {
		return nil, e.classify(err, "list transactions")
	}
	return rows, nil
}

// GetAccount returns one of the actor's accounts with its current balance.
func (e *Engine) GetAccount(ctx context.Context, actorID, accountID int64) (*models.Account, error) {
	account, err := e.store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, e.classify(err, "find account")
	}
	if account == nil {
		return nil, apperr.New(apperr.NotFound, "account not found")
	}
	if account.OwnerID != actorID {
		return nil, apperr.New(apperr.Unauthorized, "account does not belong to the user")
	}
	return account, nil
}

// ownedTransaction loads a mutable row and enforces ownership. Transfers are
// immutable once created, so they are rejected here for update and delete.
func (e *Engine) ownedTransaction(ctx context.Context, actorID, transactionID int64) (*models.Transaction, error) {
	row, err := e.store.FindTransaction(ctx, transactionID)
	if err != nil {
		return nil, e.classify(err, "find transaction")
	}
	return checkOwnedMutable(row, actorID)
}

func (e *Engine) ownedTransactionTx(ctx context.Context, tx storage.Tx, actorID, transactionID int64) (*models.Transaction, error) {
	row, err := tx.FindTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return checkOwnedMutable(row, actorID)
}

func checkOwnedMutable(row *models.Transaction, actorID int64) (*models.Transaction, error) {
	if row == nil {
		return nil, apperr.New(apperr.NotFound, "transaction not found")
	}
	if row.OwnerID != actorID {
		return nil, apperr.New(apperr.Unauthorized, "transaction does not belong to the user")
	}
	if row.IsTransfer() {
		return nil, apperr.New(apperr.Validation, "transfers cannot be modified")
	}
	return row, nil
}

func sortedPair(a, b int64) [2]int64 {
	if a < b {
		return [2]int64{a, b}
	}
	return [2]int64{b, a}
}

// classify passes business errors through unchanged and wraps anything
// unexpected as a database failure, logged with context.
func (e *Engine) classify(err error, op string) error {
	if apperr.KindOf(err) != apperr.Unknown {
		return err
	}
	e.log.Error(op+" failed", "error", err)
	return apperr.Wrap(apperr.Database, op, err)
}

func (e *Engine) publish(kind string, t *models.Transaction) {
	ev := events.LedgerEvent{
		EventID:            uuid.NewString(),
		Kind:               kind,
		TransactionID:      t.ID,
		OwnerID:            t.OwnerID,
		AccountID:          t.AccountID,
		RecipientAccountID: t.RecipientAccountID,
		Amount:             t.Amount,
		Currency:           t.Currency,
		Type:               t.Type,
		OccurredAt:         time.Now().UTC(),
	}
	if err := e.publisher.Publish(events.Topic, ev); err != nil {
		e.log.Warn("publish ledger event", "kind", kind, "error", err)
	}
}
