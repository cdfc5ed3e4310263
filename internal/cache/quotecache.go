// Package cache implements a compact, msgpack-encoded cache for batched
// market-data quotes. It sits in front of quotes.Source so the Aggregator's
// single per-request batch call can be served from memory
// within a short TTL instead of re-querying market-data for every symbol.
package cache

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
)

func decimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// entry is the msgpack-serializable cached quote, value + fetch time.
type entry struct {
	Price     string `msgpack:"price"`
	Currency  string `msgpack:"currency"`
	FetchedAt int64  `msgpack:"fetched_at"`
}

// QuoteCache is a TTL-bounded in-memory cache of the latest quote per
// symbol. Entries are msgpack-encoded before storage so the same encoding
// can be reused verbatim if the cache is later backed by a disk or network
// store.
type QuoteCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	entries  map[string][]byte // symbol -> msgpack-encoded entry
	fetchedAt map[string]time.Time
	now      func() time.Time
}

func New(ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		ttl:       ttl,
		entries:   map[string][]byte{},
		fetchedAt: map[string]time.Time{},
		now:       time.Now,
	}
}

// Put stores quotes for a batch of symbols, stamped with the current time.
func (c *QuoteCache) Put(quotes fx.Quotes) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for symbol, q := range quotes {
		e := entry{Price: q.Price.String(), Currency: string(q.Currency), FetchedAt: now.Unix()}
		encoded, err := msgpack.Marshal(e)
		if err != nil {
			return err
		}
		c.entries[symbol] = encoded
		c.fetchedAt[symbol] = now
	}
	return nil
}

// Get returns the cached quote for symbol if present and not expired.
func (c *QuoteCache) Get(symbol string) (fx.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	encoded, ok := c.entries[symbol]
	if !ok {
		return fx.Quote{}, false
	}
	if c.now().Sub(c.fetchedAt[symbol]) > c.ttl {
		return fx.Quote{}, false
	}

	var e entry
	if err := msgpack.Unmarshal(encoded, &e); err != nil {
		return fx.Quote{}, false
	}
	price, err := decimalFromString(e.Price)
	if err != nil {
		return fx.Quote{}, false
	}
	return fx.Quote{Price: price, Currency: domain.Currency(e.Currency)}, true
}

// Missing returns the subset of symbols not present (or expired) in the
// cache, so the caller fetches only what it needs.
func (c *QuoteCache) Missing(symbols []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	for _, s := range symbols {
		if _, ok := c.entries[s]; !ok {
			missing = append(missing, s)
			continue
		}
		if c.now().Sub(c.fetchedAt[s]) > c.ttl {
			missing = append(missing, s)
		}
	}
	return missing
}

// FetchedAt returns when symbol was last cached, used for the Aggregator's
// stale_quotes health check.
func (c *QuoteCache) FetchedAt(symbol string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.fetchedAt[symbol]
	return t, ok
}
