// Package valuate implements the per-asset-class Valuators.
// Each function is pure given its inputs (rows, rates, quotes, price
// catalog) and returns a value plus a Health report; no I/O happens here.
package valuate

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
)

// Health carries the non-fatal degradation flags a valuator can raise.
// A field is true the moment at least one underlying item triggered it.
type Health struct {
	NeedsReview       bool
	MissingQuotes     int
	MissingPrice      int
	ProjectionMismatch bool
}

// Merge folds other into h, OR-ing booleans and summing counters.
func (h *Health) Merge(other Health) {
	h.NeedsReview = h.NeedsReview || other.NeedsReview
	h.MissingQuotes += other.MissingQuotes
	h.MissingPrice += other.MissingPrice
	h.ProjectionMismatch = h.ProjectionMismatch || other.ProjectionMismatch
}

// CashAccount is the minimal shape the Cash valuator needs from a
// DepositAccount + its balance.
type CashAccount struct {
	AccountID uuid.UUID
	Name      string
	Currency  domain.Currency
	Available decimal.Decimal
}

// CashResult is the output of valuing a set of deposit accounts.
type CashResult struct {
	Total  decimal.Decimal
	Health Health
}

// Cash sums `available` balances converted into target, skipping (and
// flagging needs_review for) any account whose currency lacks a rate.
func Cash(accounts []CashAccount, target domain.Currency, rates fx.Rates) CashResult {
	total := domain.Zero
	var h Health
	for _, a := range accounts {
		converted, ok := fx.Convert(a.Available, a.Currency, target, rates)
		if !ok {
			h.NeedsReview = true
			continue
		}
		total = total.Add(converted)
	}
	return CashResult{Total: domain.RoundCash(total), Health: h}
}
