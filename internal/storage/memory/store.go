// Package memory is an in-memory implementation of storage.Store, used by
// tests and by the server when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/models"
	"github.com/finbook/ledger/internal/storage"
)

// Store keeps all records in maps guarded by a single mutex. Atomically takes
// a snapshot of the mutable state up front and restores it when the scope
// fails, so partial writes are never observable.
type Store struct {
	mu           sync.Mutex
	accounts     map[int64]models.Account
	categories   map[int64]models.Category
	transactions map[int64]models.Transaction
	nextTxID     int64
}

func NewStore() *Store {
	return &Store{
		accounts:     make(map[int64]models.Account),
		categories:   make(map[int64]models.Category),
		transactions: make(map[int64]models.Transaction),
		nextTxID:     1,
	}
}

// SeedAccount installs an account record. Accounts are created by an external
// collaborator; tests and server bootstrap provide them through here.
func (s *Store) SeedAccount(a models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

// SeedCategory installs a category record.
func (s *Store) SeedCategory(c models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

func (s *Store) Atomically(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make(map[int64]models.Account, len(s.accounts))
	for id, a := range s.accounts {
		accounts[id] = a
	}
	transactions := make(map[int64]models.Transaction, len(s.transactions))
	for id, t := range s.transactions {
		transactions[id] = t
	}
	nextTxID := s.nextTxID

	if err := fn(&memTx{store: s}); err != nil {
		s.accounts = accounts
		s.transactions = transactions
		s.nextTxID = nextTxID
		return err
	}
	return nil
}

func (s *Store) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (s *Store) FindTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.transactions[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *Store) ListTransactionsByOwner(ctx context.Context, ownerID int64) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Transaction
	for _, t := range s.transactions {
		if t.OwnerID == ownerID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID > result[j].ID
		}
		return result[i].Date.After(result[j].Date)
	})
	return result, nil
}

// memTx operates on the store maps directly; the store mutex is held for the
// whole scope and rollback is handled by Atomically's snapshot.
type memTx struct {
	store *Store
}

func (m *memTx) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	if a, ok := m.store.accounts[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (m *memTx) AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	a, ok := m.store.accounts[accountID]
	if !ok {
		return fmt.Errorf("adjust balance: account %d not found", accountID)
	}
	a.Balance = a.Balance.Add(delta)
	m.store.accounts[accountID] = a
	return nil
}

func (m *memTx) FindCategory(ctx context.Context, id int64) (*models.Category, error) {
	if c, ok := m.store.categories[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memTx) FindTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	if t, ok := m.store.transactions[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *memTx) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	now := time.Now().UTC()
	tx.ID = m.store.nextTxID
	m.store.nextTxID++
	tx.CreatedAt = now
	tx.UpdatedAt = now
	m.store.transactions[tx.ID] = *tx
	return nil
}

func (m *memTx) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	if _, ok := m.store.transactions[tx.ID]; !ok {
		return fmt.Errorf("update: transaction %d not found", tx.ID)
	}
	tx.UpdatedAt = time.Now().UTC()
	m.store.transactions[tx.ID] = *tx
	return nil
}

func (m *memTx) DeleteTransaction(ctx context.Context, id int64) error {
	if _, ok := m.store.transactions[id]; !ok {
		return fmt.Errorf("delete: transaction %d not found", id)
	}
	delete(m.store.transactions, id)
	return nil
}

func (m *memTx) FindTransferByKey(ctx context.Context, ownerID int64, key string) (*models.Transaction, error) {
	for _, t := range m.store.transactions {
		if t.OwnerID == ownerID && t.Type == models.Transfer && t.IdempotencyKey == key {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

var _ storage.Store = (*Store)(nil)
var _ storage.Tx = (*memTx)(nil)
