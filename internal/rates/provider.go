package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/models"
)

// DefaultAPIURL is the monobank public currency endpoint.
const DefaultAPIURL = "https://api.monobank.ua/bank/currency"

// DefaultTTL bounds how long a fetched snapshot is considered fresh.
const DefaultTTL = 2 * time.Hour

const fetchTimeout = 10 * time.Second

// ISO-4217 numeric codes used by the bank API.
const (
	numericUSD = 840
	numericEUR = 978
	numericUAH = 980
)

// rateQuote is one currency-pair entry from the bank API.
type rateQuote struct {
	CurrencyCodeA int     `json:"currencyCodeA"`
	CurrencyCodeB int     `json:"currencyCodeB"`
	RateBuy       float64 `json:"rateBuy"`
	RateSell      float64 `json:"rateSell"`
	RateCross     float64 `json:"rateCross"`
}

// SnapshotCache persists the last good snapshot across restarts. Implemented
// by the redis cache; may be nil.
type SnapshotCache interface {
	Load(ctx context.Context) (Snapshot, bool)
	Store(ctx context.Context, snap Snapshot)
}

// Provider fetches, caches and serves rate snapshots. It is safe for
// concurrent use; a refresh on an expired cache is single-flight, so callers
// racing on a miss share one fetch.
type Provider struct {
	url    string
	ttl    time.Duration
	client *http.Client
	cache  SnapshotCache
	log    *slog.Logger

	mu   sync.Mutex
	snap Snapshot
	has  bool
}

// Option configures a Provider.
type Option func(*Provider)

func WithURL(url string) Option          { return func(p *Provider) { p.url = url } }
func WithTTL(ttl time.Duration) Option   { return func(p *Provider) { p.ttl = ttl } }
func WithCache(c SnapshotCache) Option   { return func(p *Provider) { p.cache = c } }
func WithClient(c *http.Client) Option   { return func(p *Provider) { p.client = c } }
func WithLogger(log *slog.Logger) Option { return func(p *Provider) { p.log = log } }

func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		url:    DefaultAPIURL,
		ttl:    DefaultTTL,
		client: &http.Client{Timeout: fetchTimeout},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetRates returns a usable snapshot. Fresh cache wins; otherwise a live
// fetch replaces it. A failed fetch falls back to the stale snapshot without
// touching its timestamp, and to the static default table when there is no
// snapshot at all. GetRates never fails: the fallback chain always produces
// a table, which keeps the transfer path independent of the bank API.
func (p *Provider) GetRates(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fresh() {
		return p.snap, nil
	}

	// Cold start: a snapshot persisted by a previous process may still be
	// within TTL.
	if !p.has && p.cache != nil {
		if snap, ok := p.cache.Load(ctx); ok {
			p.snap = snap
			p.has = true
			if p.fresh() {
				return p.snap, nil
			}
		}
	}

	snap, err := p.fetch(ctx)
	if err != nil {
		if p.has {
			p.log.Warn("rate fetch failed, serving stale snapshot",
				"error", err, "fetched_at", p.snap.FetchedAt)
			return p.snap, nil
		}
		p.log.Warn("rate fetch failed with no cached snapshot, serving defaults", "error", err)
		return DefaultSnapshot(), nil
	}

	p.snap = snap
	p.has = true
	if p.cache != nil {
		p.cache.Store(ctx, snap)
	}
	return p.snap, nil
}

// fresh reports whether the held snapshot is within TTL. Callers hold p.mu.
func (p *Provider) fresh() bool {
	return p.has && time.Since(p.snap.FetchedAt) < p.ttl
}

// fetch pulls the pair quotes and folds the relevant ones over the default
// table, so a partial API answer still yields a complete rate set.
func (p *Provider) fetch(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Snapshot{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("rate API returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Snapshot{}, err
	}
	var quotes []rateQuote
	if err := json.Unmarshal(body, &quotes); err != nil {
		return Snapshot{}, fmt.Errorf("decode rate API response: %w", err)
	}

	snap := DefaultSnapshot()
	for _, q := range quotes {
		if q.CurrencyCodeB != numericUAH {
			continue
		}
		rate := q.RateCross
		if rate == 0 {
			rate = q.RateSell
		}
		if rate == 0 {
			continue
		}
		switch q.CurrencyCodeA {
		case numericUSD:
			snap.Rates[models.USD] = decimal.NewFromFloat(rate)
		case numericEUR:
			snap.Rates[models.EUR] = decimal.NewFromFloat(rate)
		}
	}
	snap.FetchedAt = time.Now().UTC()
	return snap, nil
}

var _ Source = (*Provider)(nil)
