// Package fx implements the FX/Quote Resolver: pure functions
// for currency conversion and quote lookup. Neither function performs I/O;
// rate tables and quote batches are always supplied by the caller.
package fx

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
)

// Rates is a flat table {CCY -> rate} keyed against one pivot currency.
// The pivot itself need not be present; it is implied by whichever
// currencies the caller populated.
type Rates map[domain.Currency]decimal.Decimal

// Quote is a single (price, currency) market-data observation.
type Quote struct {
	Price    decimal.Decimal
	Currency domain.Currency
}

// Quotes maps symbol -> Quote, at most one entry per symbol.
type Quotes map[string]Quote

// Convert converts amount from `from` to `to` using rates keyed against a
// common pivot. Returns (value, true) on success. If from and to are the
// same currency, the amount passes through unchanged regardless of whether
// rates contains it (identity). If either currency is absent from
// rates, returns (zero, false); callers MUST treat this as "no value",
// never as zero.
func Convert(amount decimal.Decimal, from, to domain.Currency, rates Rates) (decimal.Decimal, bool) {
	if from == to {
		return amount, true
	}

	fromRate, ok := rates[from]
	if !ok {
		return decimal.Decimal{}, false
	}
	toRate, ok := rates[to]
	if !ok {
		return decimal.Decimal{}, false
	}
	if fromRate.IsZero() {
		return decimal.Decimal{}, false
	}

	// rates are CCY-per-pivot: amount_in_pivot = amount / fromRate
	// result = amount_in_pivot * toRate
	pivotAmount := amount.Div(fromRate)
	result := pivotAmount.Mul(toRate)
	return domain.RoundCost(result), true
}

// QuoteFor looks up symbol in a batch-loaded quotes map. Returns
// (price, currency, true) if present, else (zero, "", false). Missing
// entries are silently omitted; the caller is responsible for
// counting them as missing_quotes.
func QuoteFor(symbol string, quotes Quotes) (decimal.Decimal, domain.Currency, bool) {
	q, ok := quotes[symbol]
	if !ok {
		return decimal.Decimal{}, "", false
	}
	return q.Price, q.Currency, true
}
