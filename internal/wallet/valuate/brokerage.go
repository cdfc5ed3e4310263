package valuate

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
)

// HoldingPosition is the minimal shape needed to value a brokerage position:
// a holding joined with its instrument's quote symbol and reporting
// currency.
type HoldingPosition struct {
	InstrumentID uuid.UUID
	Symbol       string
	MIC          string
	QuoteSymbol  string
	Quantity     decimal.Decimal
	AvgCost      decimal.Decimal
	ReportCCY    domain.Currency
}

// Position is one valued line in BrokerageResult.Positions (feeds the
// tree payload's positions array).
type Position struct {
	Symbol          string
	MIC             string
	Value           decimal.Decimal // in ReportCCY
	ValueDefaultCCY decimal.Decimal // in target
	PnLPct          decimal.Decimal
	Currency        domain.Currency
}

// BrokerageResult is the output of valuing one brokerage account.
type BrokerageResult struct {
	CashBroker decimal.Decimal
	Stocks     decimal.Decimal
	Positions  []Position
	Health     Health
}

// Brokerage splits a brokerage account's value into cash_broker (linked
// deposit accounts) and stocks (Σ qty*price for holdings with an available
// quote). missing_quotes counts holdings without one; pnl_pct guards
// against a zero cost basis.
func Brokerage(linkedCash []CashAccount, holdings []HoldingPosition, target domain.Currency, rates fx.Rates, quotes fx.Quotes) BrokerageResult {
	cashResult := Cash(linkedCash, target, rates)

	stocksTotal := domain.Zero
	var positions []Position
	var h Health
	h.Merge(cashResult.Health)

	for _, pos := range holdings {
		price, quoteCCY, ok := fx.QuoteFor(pos.QuoteSymbol, quotes)
		if !ok {
			h.MissingQuotes++
			continue
		}

		value := pos.Quantity.Mul(price)
		valueInTarget, ok := fx.Convert(value, quoteCCY, target, rates)
		if !ok {
			h.NeedsReview = true
			continue
		}

		cost := pos.Quantity.Mul(pos.AvgCost)
		var pnlPct decimal.Decimal
		if cost.IsZero() {
			pnlPct = domain.Zero
		} else {
			pnlPct = value.Sub(cost).Div(cost)
		}

		positions = append(positions, Position{
			Symbol:          pos.Symbol,
			MIC:             pos.MIC,
			Value:           domain.RoundCash(value),
			ValueDefaultCCY: domain.RoundCash(valueInTarget),
			PnLPct:          pnlPct,
			Currency:        quoteCCY,
		})
		stocksTotal = stocksTotal.Add(valueInTarget)
	}

	// largest positions first
	for i := 1; i < len(positions); i++ {
		for j := i; j > 0 && positions[j].ValueDefaultCCY.GreaterThan(positions[j-1].ValueDefaultCCY); j-- {
			positions[j], positions[j-1] = positions[j-1], positions[j]
		}
	}

	return BrokerageResult{
		CashBroker: cashResult.Total,
		Stocks:     domain.RoundCash(stocksTotal),
		Positions:  positions,
		Health:     h,
	}
}
