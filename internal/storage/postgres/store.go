// Package postgres implements storage.Store on database/sql with the pq
// driver. Atomic scopes map to SQL transactions; account rows are locked
// with SELECT ... FOR UPDATE so concurrent balance adjustments serialize.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/models"
	"github.com/finbook/ledger/internal/storage"
)

type Store struct {
	db *sql.DB
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the ledger tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id         BIGSERIAL PRIMARY KEY,
		owner_id   BIGINT NOT NULL,
		name       TEXT NOT NULL,
		type       TEXT NOT NULL,
		currency   TEXT NOT NULL,
		balance    NUMERIC(18, 2) NOT NULL DEFAULT 0,
		group_id   BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS categories (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id                   BIGSERIAL PRIMARY KEY,
		owner_id             BIGINT NOT NULL,
		account_id           BIGINT NOT NULL REFERENCES accounts(id),
		account_recipient_id BIGINT REFERENCES accounts(id),
		category_id          BIGINT NOT NULL,
		amount               NUMERIC(18, 2) NOT NULL,
		currency             TEXT NOT NULL,
		type                 TEXT NOT NULL,
		description          TEXT NOT NULL DEFAULT '',
		date                 TIMESTAMPTZ NOT NULL,
		group_id             BIGINT,
		idempotency_key      TEXT,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS transactions_owner_idem_key
		ON transactions (owner_id, idempotency_key)
		WHERE idempotency_key IS NOT NULL;

	CREATE INDEX IF NOT EXISTS transactions_owner_date
		ON transactions (owner_id, date DESC);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Atomically(ctx context.Context, fn func(tx storage.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback() // no-op once committed

	if err := fn(&pgTx{tx: dbTx}); err != nil {
		return err
	}
	return dbTx.Commit()
}

const accountColumns = `id, owner_id, name, type, currency, balance, group_id, created_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Type, &a.Currency, &a.Balance, &a.GroupID, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

const transactionColumns = `id, owner_id, account_id, account_recipient_id, category_id,
	amount, currency, type, description, date, group_id, COALESCE(idempotency_key, ''), created_at, updated_at`

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var result []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.AccountID, &t.RecipientAccountID,
			&t.CategoryID, &t.Amount, &t.Currency, &t.Type, &t.Description,
			&t.Date, &t.GroupID, &t.IdempotencyKey, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) FindTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id).
		Scan(&t.ID, &t.OwnerID, &t.AccountID, &t.RecipientAccountID,
			&t.CategoryID, &t.Amount, &t.Currency, &t.Type, &t.Description,
			&t.Date, &t.GroupID, &t.IdempotencyKey, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTransactionsByOwner(ctx context.Context, ownerID int64) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE owner_id = $1 ORDER BY date DESC, id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

type pgTx struct {
	tx *sql.Tx
}

func (p *pgTx) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := p.tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

func (p *pgTx) AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	res, err := p.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2`, delta, accountID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("adjust balance: account %d not found", accountID)
	}
	return nil
}

func (p *pgTx) FindCategory(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	err := p.tx.QueryRowContext(ctx,
		`SELECT id, name, type FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Type)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *pgTx) findTransaction(ctx context.Context, query string, args ...any) (*models.Transaction, error) {
	var t models.Transaction
	err := p.tx.QueryRowContext(ctx, query, args...).
		Scan(&t.ID, &t.OwnerID, &t.AccountID, &t.RecipientAccountID,
			&t.CategoryID, &t.Amount, &t.Currency, &t.Type, &t.Description,
			&t.Date, &t.GroupID, &t.IdempotencyKey, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *pgTx) FindTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	return p.findTransaction(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
}

func (p *pgTx) FindTransferByKey(ctx context.Context, ownerID int64, key string) (*models.Transaction, error) {
	return p.findTransaction(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE owner_id = $1 AND idempotency_key = $2 AND type = $3`,
		ownerID, key, models.Transfer)
}

func (p *pgTx) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	return p.tx.QueryRowContext(ctx,
		`INSERT INTO transactions
			(owner_id, account_id, account_recipient_id, category_id, amount,
			 currency, type, description, date, group_id, idempotency_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
		 RETURNING id, created_at, updated_at`,
		t.OwnerID, t.AccountID, t.RecipientAccountID, t.CategoryID, t.Amount,
		t.Currency, t.Type, t.Description, t.Date, t.GroupID, t.IdempotencyKey).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (p *pgTx) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	return p.tx.QueryRowContext(ctx,
		`UPDATE transactions
		 SET amount = $1, category_id = $2, date = $3, description = $4, updated_at = now()
		 WHERE id = $5
		 RETURNING updated_at`,
		t.Amount, t.CategoryID, t.Date, t.Description, t.ID).
		Scan(&t.UpdatedAt)
}

func (p *pgTx) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := p.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("delete: transaction %d not found", id)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
var _ storage.Tx = (*pgTx)(nil)
