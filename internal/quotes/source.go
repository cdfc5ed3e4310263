// Package quotes models the market-data service as a narrow capability
// interface. The wallet service calls it exactly once per
// request to batch-fetch the latest quotes needed to build a tree
//; it never polls symbol-by-symbol.
package quotes

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/walletcore/internal/wallet/fx"
)

// Source is the collaborator contract the wallet service depends on.
type Source interface {
	// GetLatestQuotesForSymbols returns at most one entry per symbol;
	// symbols with no available quote are simply absent from the result.
	GetLatestQuotesForSymbols(ctx context.Context, symbols []string) (fx.Quotes, error)
	// SyncDailyCandles triggers (or no-ops, depending on the market-data
	// service's own scheduling) a daily candle sync for symbol. Used by
	// the scheduler's quote-refresh job, never called from within a
	// snapshot transaction: external I/O happens before the database
	// transaction opens.
	SyncDailyCandles(ctx context.Context, symbol string) error
}

// HTTPClient is a thin reference client for a market-data service
// reachable over HTTP. Real deployments wire this with the service's base
// URL and auth; this repo ships it so the server is runnable standalone
// against a stub.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, Client: http.DefaultClient, Timeout: 5 * time.Second}
}

// GetLatestQuotesForSymbols is unimplemented: wiring a live market-data
// service is outside this repo's scope. Tests and local dev supply a
// fake Source instead.
func (c *HTTPClient) GetLatestQuotesForSymbols(ctx context.Context, symbols []string) (fx.Quotes, error) {
	return fx.Quotes{}, errNotImplemented
}

func (c *HTTPClient) SyncDailyCandles(ctx context.Context, symbol string) error {
	return errNotImplemented
}

var errNotImplemented = &notImplementedError{}

type notImplementedError struct{}

func (e *notImplementedError) Error() string {
	return "quotes.HTTPClient: no market-data service configured; supply a Source implementation"
}
