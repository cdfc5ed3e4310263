package valuate

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
)

// MetalHolding is the minimal shape needed to value one metal position.
type MetalHolding struct {
	Name         string
	Metal        domain.MetalType
	QuoteSymbol  string
	Grams        decimal.Decimal
	CostBasis    decimal.Decimal
	CostCurrency domain.Currency
}

// MetalItem is one valued line in MetalResult.Items. Items is always
// aligned 1:1 with the input holdings (one item per holding, same order),
// so callers may key off Metal rather than positional index.
type MetalItem struct {
	Metal       domain.MetalType
	Name        string
	QuoteSymbol string
	Quantity    decimal.Decimal // grams
	Value       decimal.Decimal // in target
	Currency    domain.Currency
}

// MetalResult is the output of valuing a wallet's metal holdings.
type MetalResult struct {
	Total  decimal.Decimal
	Items  []MetalItem
	Health Health
}

var troyOunceGrams = decimal.NewFromFloat(domain.TroyOunceGrams)

// Metal values each holding via its spot quote (grams/31.1034768 * price)
// when a quote is available, else falls back to cost_basis in
// cost_currency and increments missing_quotes.
func Metal(holdings []MetalHolding, target domain.Currency, rates fx.Rates, quotes fx.Quotes) MetalResult {
	total := domain.Zero
	var items []MetalItem
	var h Health

	for _, m := range holdings {
		var valueSource decimal.Decimal
		var sourceCCY domain.Currency

		if price, quoteCCY, ok := fx.QuoteFor(m.QuoteSymbol, quotes); ok {
			ounces := m.Grams.Div(troyOunceGrams)
			valueSource = ounces.Mul(price)
			sourceCCY = quoteCCY
		} else {
			valueSource = m.CostBasis
			sourceCCY = m.CostCurrency
			if m.QuoteSymbol != "" {
				h.MissingQuotes++
			}
		}

		valueInTarget, ok := fx.Convert(valueSource, sourceCCY, target, rates)
		if !ok {
			h.NeedsReview = true
			valueInTarget = domain.Zero
		} else {
			total = total.Add(valueInTarget)
		}

		items = append(items, MetalItem{
			Metal:       m.Metal,
			Name:        m.Name,
			QuoteSymbol: m.QuoteSymbol,
			Quantity:    m.Grams,
			Value:       domain.RoundCash(valueInTarget),
			Currency:    target,
		})
	}

	return MetalResult{Total: domain.RoundCash(total), Items: items, Health: h}
}
