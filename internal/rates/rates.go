// Package rates supplies currency conversion rates, balancing freshness
// against availability: a TTL-bound cache in front of the bank API, falling
// back to the stale snapshot and then to a static table when the fetch fails.
package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/apperr"
	"github.com/finbook/ledger/internal/models"
)

// conversionScale is the fixed-point scale applied to converted amounts; all
// supported currencies carry two fractional digits.
const conversionScale = 2

// Snapshot is a timestamped rate table. Rates express each currency's price
// in a common base unit (UAH), so converting X to Y is amount*rate[X]/rate[Y].
type Snapshot struct {
	Rates     map[models.Currency]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                           `json:"fetched_at"`
}

// Convert converts amount from one currency to another using this snapshot.
// Identity conversion never consults the table.
func (s Snapshot) Convert(amount decimal.Decimal, from, to models.Currency) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromRate, ok := s.Rates[from]
	if !ok || fromRate.IsZero() {
		return decimal.Zero, apperr.Newf(apperr.Validation, "unsupported currency %q", from)
	}
	toRate, ok := s.Rates[to]
	if !ok || toRate.IsZero() {
		return decimal.Zero, apperr.Newf(apperr.Validation, "unsupported currency %q", to)
	}
	return amount.Mul(fromRate).Div(toRate).Round(conversionScale), nil
}

// DefaultSnapshot is the static fallback table used when no fetch has ever
// succeeded. The values mirror long-running bank averages and are only meant
// to keep transfers usable during an outage.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Rates: map[models.Currency]decimal.Decimal{
			models.UAH: decimal.NewFromInt(1),
			models.USD: decimal.NewFromInt(43),
			models.EUR: decimal.NewFromInt(50),
		},
	}
}

// Source is what the ledger engine depends on.
type Source interface {
	GetRates(ctx context.Context) (Snapshot, error)
}
