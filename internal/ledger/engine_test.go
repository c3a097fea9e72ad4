package ledger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/apperr"
	"github.com/finbook/ledger/internal/events"
	"github.com/finbook/ledger/internal/models"
	"github.com/finbook/ledger/internal/rates"
	"github.com/finbook/ledger/internal/storage/memory"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type staticRates struct {
	snap rates.Snapshot
}

func (s staticRates) GetRates(ctx context.Context) (rates.Snapshot, error) {
	return s.snap, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.LedgerEvent
}

func (r *recordingPublisher) Publish(topic string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.(events.LedgerEvent))
	return nil
}

func (r *recordingPublisher) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []string
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func testSnapshot() rates.Snapshot {
	return rates.Snapshot{
		Rates: map[models.Currency]decimal.Decimal{
			models.UAH: dec("1"),
			models.USD: dec("1"),
			models.EUR: dec("0.9"),
		},
		FetchedAt: time.Now(),
	}
}

func setupEngine(t *testing.T) (*Engine, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.NewStore()
	store.SeedCategory(models.Category{ID: 1, Name: "Groceries", Type: "expense"})
	pub := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(store, staticRates{snap: testSnapshot()}, pub, logger)
	return engine, store, pub
}

func seedAccount(store *memory.Store, id, owner int64, currency models.Currency, balance string) {
	store.SeedAccount(models.Account{
		ID:       id,
		OwnerID:  owner,
		Name:     "Test",
		Type:     models.AccountBank,
		Currency: currency,
		Balance:  dec(balance),
	})
}

func accountBalance(t *testing.T, store *memory.Store, id int64) decimal.Decimal {
	t.Helper()
	account, err := store.FindAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("FindAccount(%d) failed: %v", id, err)
	}
	if account == nil {
		t.Fatalf("account %d not found", id)
	}
	return account.Balance
}

func wantBalance(t *testing.T, store *memory.Store, id int64, want string) {
	t.Helper()
	if got := accountBalance(t, store, id); !got.Equal(dec(want)) {
		t.Errorf("account %d balance = %s, want %s", id, got, want)
	}
}

func TestCreateExpense(t *testing.T) {
	engine, store, pub := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "1000")

	created, err := engine.CreateTransaction(context.Background(), 1, CreateTransactionInput{
		AccountID:  10,
		CategoryID: 1,
		Type:       models.Expense,
		Amount:     dec("200"),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() failed: %v", err)
	}

	wantBalance(t, store, 10, "800")
	if created.ID == 0 {
		t.Errorf("created transaction has no id")
	}
	if created.Currency != models.UAH {
		t.Errorf("transaction currency = %s, want UAH", created.Currency)
	}
	if got := pub.kinds(); len(got) != 1 || got[0] != events.TransactionCreated {
		t.Errorf("published events = %v, want [%s]", got, events.TransactionCreated)
	}
}

func TestCreateIncome(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "100")

	_, err := engine.CreateTransaction(context.Background(), 1, CreateTransactionInput{
		AccountID:  10,
		CategoryID: 1,
		Type:       models.Income,
		Amount:     dec("49.99"),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() failed: %v", err)
	}
	wantBalance(t, store, 10, "149.99")
}

func TestCreateTransactionFailures(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "1000")

	testCases := []struct {
		name  string
		actor int64
		in    CreateTransactionInput
		want  apperr.Kind
	}{
		{
			name:  "non-positive amount",
			actor: 1,
			in:    CreateTransactionInput{AccountID: 10, CategoryID: 1, Type: models.Expense, Amount: dec("0")},
			want:  apperr.Validation,
		},
		{
			name:  "transfer type on transaction path",
			actor: 1,
			in:    CreateTransactionInput{AccountID: 10, CategoryID: 1, Type: models.Transfer, Amount: dec("5")},
			want:  apperr.Validation,
		},
		{
			name:  "unknown account",
			actor: 1,
			in:    CreateTransactionInput{AccountID: 99, CategoryID: 1, Type: models.Expense, Amount: dec("5")},
			want:  apperr.NotFound,
		},
		{
			name:  "unknown category",
			actor: 1,
			in:    CreateTransactionInput{AccountID: 10, CategoryID: 99, Type: models.Expense, Amount: dec("5")},
			want:  apperr.NotFound,
		},
		{
			name:  "not the owner",
			actor: 2,
			in:    CreateTransactionInput{AccountID: 10, CategoryID: 1, Type: models.Expense, Amount: dec("5")},
			want:  apperr.Unauthorized,
		},
		{
			name:  "currency mismatch",
			actor: 1,
			in:    CreateTransactionInput{AccountID: 10, CategoryID: 1, Type: models.Expense, Amount: dec("5"), Currency: models.USD},
			want:  apperr.Validation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.CreateTransaction(context.Background(), tc.actor, tc.in)
			if got := apperr.KindOf(err); got != tc.want {
				t.Errorf("error kind = %v (%v), want %v", got, err, tc.want)
			}
			wantBalance(t, store, 10, "1000")
		})
	}
}

func TestTransferSameCurrency(t *testing.T) {
	engine, store, pub := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "800")
	seedAccount(store, 11, 1, models.UAH, "0")

	result, err := engine.CreateTransfer(context.Background(), 1, CreateTransferInput{
		SourceAccountID: 10,
		DestAccountID:   11,
		CategoryID:      1,
		Amount:          dec("300"),
	})
	if err != nil {
		t.Fatalf("CreateTransfer() failed: %v", err)
	}

	wantBalance(t, store, 10, "500")
	wantBalance(t, store, 11, "300")
	if !result.CreditAmount.Equal(dec("300")) {
		t.Errorf("credit amount = %s, want 300", result.CreditAmount)
	}
	if result.Transaction.Type != models.Transfer {
		t.Errorf("row type = %s, want TRANSFER", result.Transaction.Type)
	}
	if result.Transaction.RecipientAccountID == nil || *result.Transaction.RecipientAccountID != 11 {
		t.Errorf("recipient account = %v, want 11", result.Transaction.RecipientAccountID)
	}
	if got := pub.kinds(); len(got) != 1 || got[0] != events.TransferCreated {
		t.Errorf("published events = %v, want [%s]", got, events.TransferCreated)
	}
}

func TestTransferCrossCurrency(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.USD, "100")
	seedAccount(store, 11, 1, models.EUR, "0")

	result, err := engine.CreateTransfer(context.Background(), 1, CreateTransferInput{
		SourceAccountID: 10,
		DestAccountID:   11,
		CategoryID:      1,
		Amount:          dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateTransfer() failed: %v", err)
	}

	// 100 USD at rates {USD:1, EUR:0.9} converts to 100/0.9, rounded to
	// two fractional digits.
	wantBalance(t, store, 10, "0")
	wantBalance(t, store, 11, "111.11")
	if !result.CreditAmount.Equal(dec("111.11")) {
		t.Errorf("credit amount = %s, want 111.11", result.CreditAmount)
	}
	if result.Transaction.Currency != models.USD {
		t.Errorf("transfer currency = %s, want source currency USD", result.Transaction.Currency)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "100")
	seedAccount(store, 11, 1, models.UAH, "0")

	_, err := engine.CreateTransfer(context.Background(), 1, CreateTransferInput{
		SourceAccountID: 10,
		DestAccountID:   11,
		CategoryID:      1,
		Amount:          dec("100.01"),
	})
	if got := apperr.KindOf(err); got != apperr.Validation {
		t.Fatalf("error kind = %v (%v), want Validation", got, err)
	}

	wantBalance(t, store, 10, "100")
	wantBalance(t, store, 11, "0")
	rows, _ := store.ListTransactionsByOwner(context.Background(), 1)
	if len(rows) != 0 {
		t.Errorf("transaction table has %d rows after aborted transfer, want 0", len(rows))
	}
}

func TestTransferFailures(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "1000")
	seedAccount(store, 11, 1, models.UAH, "0")
	seedAccount(store, 12, 2, models.UAH, "0")

	testCases := []struct {
		name  string
		actor int64
		in    CreateTransferInput
		want  apperr.Kind
	}{
		{
			name:  "same account",
			actor: 1,
			in:    CreateTransferInput{SourceAccountID: 10, DestAccountID: 10, CategoryID: 1, Amount: dec("10")},
			want:  apperr.Validation,
		},
		{
			name:  "missing destination id",
			actor: 1,
			in:    CreateTransferInput{SourceAccountID: 10, CategoryID: 1, Amount: dec("10")},
			want:  apperr.Validation,
		},
		{
			name:  "non-positive amount",
			actor: 1,
			in:    CreateTransferInput{SourceAccountID: 10, DestAccountID: 11, CategoryID: 1, Amount: dec("-1")},
			want:  apperr.Validation,
		},
		{
			name:  "unknown source",
			actor: 1,
			in:    CreateTransferInput{SourceAccountID: 99, DestAccountID: 11, CategoryID: 1, Amount: dec("10")},
			want:  apperr.NotFound,
		},
		{
			name:  "unknown destination",
			actor: 1,
			in:    CreateTransferInput{SourceAccountID: 10, DestAccountID: 99, CategoryID: 1, Amount: dec("10")},
			want:  apperr.NotFound,
		},
		{
			name:  "source owned by someone else",
			actor: 1,
			in:    CreateTransferInput{SourceAccountID: 12, DestAccountID: 11, CategoryID: 1, Amount: dec("10")},
			want:  apperr.Unauthorized,
		},
		{
			name:  "destination owned by someone else",
			actor: 1,
			in:    CreateTransferInput{SourceAccountID: 10, DestAccountID: 12, CategoryID: 1, Amount: dec("10")},
			want:  apperr.Unauthorized,
		},
		{
			name:  "unknown category",
			actor: 1,
			in:    CreateTransferInput{SourceAccountID: 10, DestAccountID: 11, CategoryID: 99, Amount: dec("10")},
			want:  apperr.NotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.CreateTransfer(context.Background(), tc.actor, tc.in)
			if got := apperr.KindOf(err); got != tc.want {
				t.Errorf("error kind = %v (%v), want %v", got, err, tc.want)
			}
			wantBalance(t, store, 10, "1000")
			wantBalance(t, store, 11, "0")
		})
	}
}

func TestTransferUnsupportedCurrencyAborts(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "1000")
	// Destination currency is absent from the rate table.
	seedAccount(store, 11, 1, models.Currency("GBP"), "0")

	_, err := engine.CreateTransfer(context.Background(), 1, CreateTransferInput{
		SourceAccountID: 10,
		DestAccountID:   11,
		CategoryID:      1,
		Amount:          dec("10"),
	})
	if got := apperr.KindOf(err); got != apperr.Validation {
		t.Fatalf("error kind = %v (%v), want Validation", got, err)
	}
	wantBalance(t, store, 10, "1000")
	wantBalance(t, store, 11, "0")
}

func TestTransferIdempotentReplay(t *testing.T) {
	engine, store, pub := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "500")
	seedAccount(store, 11, 1, models.UAH, "0")

	in := CreateTransferInput{
		SourceAccountID: 10,
		DestAccountID:   11,
		CategoryID:      1,
		Amount:          dec("100"),
		IdempotencyKey:  "retry-abc",
	}

	first, err := engine.CreateTransfer(context.Background(), 1, in)
	if err != nil {
		t.Fatalf("first CreateTransfer() failed: %v", err)
	}
	second, err := engine.CreateTransfer(context.Background(), 1, in)
	if err != nil {
		t.Fatalf("replayed CreateTransfer() failed: %v", err)
	}

	if second.Transaction.ID != first.Transaction.ID {
		t.Errorf("replay returned row %d, want %d", second.Transaction.ID, first.Transaction.ID)
	}
	if !second.Replayed {
		t.Errorf("replay not flagged")
	}
	wantBalance(t, store, 10, "400")
	wantBalance(t, store, 11, "100")
	if got := pub.kinds(); len(got) != 1 {
		t.Errorf("published %d events, want 1 (no event on replay)", len(got))
	}
}

func TestUpdateTransactionNetEffect(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "1000")

	created, err := engine.CreateTransaction(context.Background(), 1, CreateTransactionInput{
		AccountID:  10,
		CategoryID: 1,
		Type:       models.Expense,
		Amount:     dec("50"),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() failed: %v", err)
	}
	wantBalance(t, store, 10, "950")

	updated, err := engine.UpdateTransaction(context.Background(), 1, created.ID, UpdateTransactionInput{
		Amount:     dec("80"),
		CategoryID: 1,
	})
	if err != nil {
		t.Fatalf("UpdateTransaction() failed: %v", err)
	}

	// Reversing -50 and applying -80 is a net -30 from the prior state.
	wantBalance(t, store, 10, "920")
	if !updated.Amount.Equal(dec("80")) {
		t.Errorf("amount after update = %s, want 80", updated.Amount)
	}
}

func TestUpdateTransactionIdentityIsNoop(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "1000")

	created, err := engine.CreateTransaction(context.Background(), 1, CreateTransactionInput{
		AccountID:   10,
		CategoryID:  1,
		Type:        models.Income,
		Amount:      dec("123.45"),
		Description: "salary",
	})
	if err != nil {
		t.Fatalf("CreateTransaction() failed: %v", err)
	}

	_, err = engine.UpdateTransaction(context.Background(), 1, created.ID, UpdateTransactionInput{
		Amount:     created.Amount,
		CategoryID: created.CategoryID,
	})
	if err != nil {
		t.Fatalf("UpdateTransaction() failed: %v", err)
	}
	wantBalance(t, store, 10, "1123.45")
}

func TestUpdateTransactionFailures(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "1000")

	created, err := engine.CreateTransaction(context.Background(), 1, CreateTransactionInput{
		AccountID:  10,
		CategoryID: 1,
		Type:       models.Expense,
		Amount:     dec("50"),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() failed: %v", err)
	}

	testCases := []struct {
		name  string
		actor int64
		id    int64
		in    UpdateTransactionInput
		want  apperr.Kind
	}{
		{"unknown transaction", 1, 999, UpdateTransactionInput{Amount: dec("10"), CategoryID: 1}, apperr.NotFound},
		{"not the owner", 2, created.ID, UpdateTransactionInput{Amount: dec("10"), CategoryID: 1}, apperr.Unauthorized},
		{"non-positive amount", 1, created.ID, UpdateTransactionInput{Amount: dec("0"), CategoryID: 1}, apperr.Validation},
		{"unknown category", 1, created.ID, UpdateTransactionInput{Amount: dec("10"), CategoryID: 99}, apperr.NotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.UpdateTransaction(context.Background(), tc.actor, tc.id, tc.in)
			if got := apperr.KindOf(err); got != tc.want {
				t.Errorf("error kind = %v (%v), want %v", got, err, tc.want)
			}
			wantBalance(t, store, 10, "950")
		})
	}
}

func TestDeleteTransactionRoundTrip(t *testing.T) {
	engine, store, pub := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "777.77")

	created, err := engine.CreateTransaction(context.Background(), 1, CreateTransactionInput{
		AccountID:  10,
		CategoryID: 1,
		Type:       models.Expense,
		Amount:     dec("123.45"),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() failed: %v", err)
	}

	if err := engine.DeleteTransaction(context.Background(), 1, created.ID); err != nil {
		t.Fatalf("DeleteTransaction() failed: %v", err)
	}

	wantBalance(t, store, 10, "777.77")
	rows, _ := store.ListTransactionsByOwner(context.Background(), 1)
	if len(rows) != 0 {
		t.Errorf("transaction table has %d rows after delete, want 0", len(rows))
	}
	want := []string{events.TransactionCreated, events.TransactionDeleted}
	got := pub.kinds()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("published events = %v, want %v", got, want)
	}
}

func TestDeleteTransactionFailures(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "1000")

	if err := engine.DeleteTransaction(context.Background(), 1, 999); apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("delete unknown: kind = %v, want NotFound", apperr.KindOf(err))
	}

	created, err := engine.CreateTransaction(context.Background(), 1, CreateTransactionInput{
		AccountID:  10,
		CategoryID: 1,
		Type:       models.Income,
		Amount:     dec("10"),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() failed: %v", err)
	}
	if err := engine.DeleteTransaction(context.Background(), 2, created.ID); apperr.KindOf(err) != apperr.Unauthorized {
		t.Errorf("delete as stranger: kind = %v, want Unauthorized", apperr.KindOf(err))
	}
	wantBalance(t, store, 10, "1010")
}

func TestTransfersAreImmutable(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "500")
	seedAccount(store, 11, 1, models.UAH, "0")

	result, err := engine.CreateTransfer(context.Background(), 1, CreateTransferInput{
		SourceAccountID: 10,
		DestAccountID:   11,
		CategoryID:      1,
		Amount:          dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateTransfer() failed: %v", err)
	}
	id := result.Transaction.ID

	_, err = engine.UpdateTransaction(context.Background(), 1, id, UpdateTransactionInput{Amount: dec("1"), CategoryID: 1})
	if got := apperr.KindOf(err); got != apperr.Validation {
		t.Errorf("update transfer: kind = %v, want Validation", got)
	}
	if err := engine.DeleteTransaction(context.Background(), 1, id); apperr.KindOf(err) != apperr.Validation {
		t.Errorf("delete transfer: kind = %v, want Validation", apperr.KindOf(err))
	}
	wantBalance(t, store, 10, "400")
	wantBalance(t, store, 11, "100")
}

// Balances must equal the sum of signed effects regardless of interleaving,
// and opposite-direction transfers on the same pair must not deadlock.
func TestConcurrentTransfersConserveTotal(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "1000")
	seedAccount(store, 11, 1, models.UAH, "1000")

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := engine.CreateTransfer(context.Background(), 1, CreateTransferInput{
				SourceAccountID: 10, DestAccountID: 11, CategoryID: 1, Amount: dec("10"),
			}); err != nil {
				t.Errorf("A->B transfer failed: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := engine.CreateTransfer(context.Background(), 1, CreateTransferInput{
				SourceAccountID: 11, DestAccountID: 10, CategoryID: 1, Amount: dec("10"),
			}); err != nil {
				t.Errorf("B->A transfer failed: %v", err)
			}
		}
	}()
	wg.Wait()

	wantBalance(t, store, 10, "1000")
	wantBalance(t, store, 11, "1000")
}

func TestConcurrentTransactionsOnOneAccount(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "0")

	const workers = 25
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := engine.CreateTransaction(context.Background(), 1, CreateTransactionInput{
				AccountID: 10, CategoryID: 1, Type: models.Income, Amount: dec("1"),
			}); err != nil {
				t.Errorf("CreateTransaction() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	wantBalance(t, store, 10, "25")
}

func TestListTransactions(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "1000")
	seedAccount(store, 12, 2, models.UAH, "1000")

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []CreateTransactionInput{
		{AccountID: 10, CategoryID: 1, Type: models.Expense, Amount: dec("10"), Date: older},
		{AccountID: 10, CategoryID: 1, Type: models.Income, Amount: dec("20"), Date: newer},
	} {
		if _, err := engine.CreateTransaction(context.Background(), 1, in); err != nil {
			t.Fatalf("CreateTransaction() failed: %v", err)
		}
	}
	if _, err := engine.CreateTransaction(context.Background(), 2, CreateTransactionInput{
		AccountID: 12, CategoryID: 1, Type: models.Expense, Amount: dec("5"),
	}); err != nil {
		t.Fatalf("CreateTransaction() failed: %v", err)
	}

	rows, err := engine.ListTransactions(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListTransactions() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if !rows[0].Date.After(rows[1].Date) {
		t.Errorf("rows are not newest-first: %v then %v", rows[0].Date, rows[1].Date)
	}
}

func TestGetAccount(t *testing.T) {
	engine, store, _ := setupEngine(t)
	seedAccount(store, 10, 1, models.UAH, "42")

	account, err := engine.GetAccount(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if !account.Balance.Equal(dec("42")) {
		t.Errorf("balance = %s, want 42", account.Balance)
	}

	if _, err := engine.GetAccount(context.Background(), 2, 10); apperr.KindOf(err) != apperr.Unauthorized {
		t.Errorf("stranger access: kind = %v, want Unauthorized", apperr.KindOf(err))
	}
	if _, err := engine.GetAccount(context.Background(), 1, 99); apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("unknown account: kind = %v, want NotFound", apperr.KindOf(err))
	}
}
