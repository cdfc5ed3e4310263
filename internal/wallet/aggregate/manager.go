// Package aggregate implements the Wallet Manager tree aggregator: it
// composes a per-wallet breakdown across asset classes for a live view
// plus N months of frozen snapshots. Quotes arrive in the input as one
// batch fetched by the caller; this package performs no quote calls.
package aggregate

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
	"github.com/aristath/walletcore/internal/wallet/valuate"
)

// WalletData bundles everything bulk-loaded for one wallet before
// composing its tree. All of it is loaded before composition starts
// (see store.Loader for the queries it runs).
type WalletData struct {
	ID      uuid.UUID
	Name    string
	BaseCCY domain.Currency

	DepositAccounts   []DepositAccountView
	BrokerageAccounts []BrokerageAccountView
	Metals            []valuate.MetalHolding
	RealEstate        []valuate.RealEstateAsset

	// MonthlySnapshots[monthKey] holds the frozen per-entity rows already
	// summed into totals by currency; the Manager converts them through
	// that month's FX.
	MonthlySnapshots map[string]MonthlySnapshotTotals
}

type DepositAccountView struct {
	AccountID      uuid.UUID
	Name           string
	Currency       domain.Currency
	Available      decimal.Decimal
	TxPerMonth     int
	MonthSnapshots map[string]SnapshotAmount
}

type BrokerageAccountView struct {
	AccountID      uuid.UUID
	Name           string
	Currency       domain.Currency
	LinkedCash     []valuate.CashAccount
	Holdings       []valuate.HoldingPosition
	EventsPerMonth int
	MonthSnapshots map[string]BrokerageSnapshotAmount
}

type SnapshotAmount struct {
	Currency  domain.Currency
	Available decimal.Decimal
}

type BrokerageSnapshotAmount struct {
	Currency domain.Currency
	// Cash/Stocks are in Currency (the account's own); CashBase and
	// StocksBase were frozen in the wallet base currency with the same
	// quotes and FX, so month totals read them without re-converting.
	Cash       decimal.Decimal
	Stocks     decimal.Decimal
	CashBase   decimal.Decimal
	StocksBase decimal.Decimal
}

// MonthlySnapshotTotals is the frozen source-currency total for a metal or
// real-estate bucket in a given month, already summed across rows.
type MonthlySnapshotTotals struct {
	MetalValue      decimal.Decimal
	MetalCurrency   domain.Currency
	RealEstateValue decimal.Decimal
	RealEstateCCY   domain.Currency
}

// Input bundles the per-call parameters the Manager needs to compose trees
// for a user's wallets.
type Input struct {
	Wallets   []WalletData
	MonthKeys []string // last N months, oldest first
	// FXByMonth[monthKey] is the frozen rate table for that month; a month
	// with no entry is omitted entirely from output.
	FXByMonth map[string]fx.Rates
	// LiveRates is the caller-supplied current FX used for the live view.
	LiveRates fx.Rates
	// Quotes is the single batch of latest quotes for every symbol needed
	// across all wallets, fetched once by the caller.
	Quotes      fx.Quotes
	PriceLookup valuate.PriceCatalogLookup
}

// WalletTree is the per-wallet output shape.
type WalletTree struct {
	ID      uuid.UUID
	Name    string
	BaseCCY domain.Currency
	Health  valuate.Health

	DepositAccounts   []DepositAccountOut
	BrokerageAccounts []BrokerageAccountOut
	Metals            valuate.MetalResult
	RealEstate         valuate.RealEstateResult

	// Snapshots[monthKey] is the frozen per-wallet total, present only for
	// months whose FX row existed; a missing rate omits, never imputes.
	Snapshots map[string]WalletMonthTotal
	// MoM[monthKey] is the fractional month-over-month change of the
	// wallet total, (cur - prev) / prev, keyed by the later month.
	// Present only when both months exist and prev is non-zero.
	MoM       map[string]decimal.Decimal
	FXByMonth map[string]fx.Rates
}

type DepositAccountOut struct {
	AccountID  uuid.UUID
	Name       string
	Currency   domain.Currency
	Available  decimal.Decimal
	TxPerMonth int
	Health     valuate.Health
	Snapshots  map[string]SnapshotAmount
}

type BrokerageAccountOut struct {
	AccountID      uuid.UUID
	Name           string
	Currency       domain.Currency
	CashAccounts   []valuate.CashAccount
	SumCashAccounts decimal.Decimal
	Positions      []valuate.Position
	PositionsCount int
	PositionsValue decimal.Decimal
	EventsPerMonth int
	Health         valuate.Health
	Snapshots      map[string]BrokerageSnapshotAmount
}

// WalletMonthTotal is one wallet's frozen month row, base-currency totals
// (total == sum of the five fields).
type WalletMonthTotal struct {
	CashDeposit decimal.Decimal
	CashBroker  decimal.Decimal
	Stocks      decimal.Decimal
	Metals      decimal.Decimal
	RealEstate  decimal.Decimal
}

// Total sums the five buckets.
func (w WalletMonthTotal) Total() decimal.Decimal {
	return w.CashDeposit.Add(w.CashBroker).Add(w.Stocks).Add(w.Metals).Add(w.RealEstate)
}

// Manager composes wallet trees. It performs no I/O itself; Input must
// already carry every bulk-loaded row and the single batched quotes map.
type Manager struct{}

func New() *Manager { return &Manager{} }

// BuildTrees composes one WalletTree per wallet in in.Wallets.
func (m *Manager) BuildTrees(_ context.Context, in Input) []WalletTree {
	trees := make([]WalletTree, 0, len(in.Wallets))
	for _, w := range in.Wallets {
		trees = append(trees, m.buildOne(w, in))
	}
	return trees
}

func (m *Manager) buildOne(w WalletData, in Input) WalletTree {
	target := w.BaseCCY
	if target == "" {
		target = domain.PLN
	}

	tree := WalletTree{
		ID:        w.ID,
		Name:      w.Name,
		BaseCCY:   target,
		Snapshots: map[string]WalletMonthTotal{},
		MoM:       map[string]decimal.Decimal{},
		FXByMonth: map[string]fx.Rates{},
	}

	// --- live sections ---
	for _, d := range w.DepositAccounts {
		cashResult := valuate.Cash([]valuate.CashAccount{{AccountID: d.AccountID, Name: d.Name, Currency: d.Currency, Available: d.Available}}, target, in.LiveRates)
		tree.Health.Merge(cashResult.Health)
		tree.DepositAccounts = append(tree.DepositAccounts, DepositAccountOut{
			AccountID:  d.AccountID,
			Name:       d.Name,
			Currency:   d.Currency,
			Available:  d.Available,
			TxPerMonth: d.TxPerMonth,
			Health:     cashResult.Health,
			Snapshots:  d.MonthSnapshots,
		})
	}

	for _, b := range w.BrokerageAccounts {
		brokResult := valuate.Brokerage(b.LinkedCash, b.Holdings, target, in.LiveRates, in.Quotes)
		tree.Health.Merge(brokResult.Health)

		sumCash := domain.Zero
		for _, c := range b.LinkedCash {
			sumCash = sumCash.Add(c.Available)
		}

		positionsValue := domain.Zero
		for _, p := range brokResult.Positions {
			positionsValue = positionsValue.Add(p.ValueDefaultCCY)
		}

		tree.BrokerageAccounts = append(tree.BrokerageAccounts, BrokerageAccountOut{
			AccountID:       b.AccountID,
			Name:            b.Name,
			Currency:        b.Currency,
			CashAccounts:    b.LinkedCash,
			SumCashAccounts: domain.RoundCash(sumCash),
			Positions:       toPositions(brokResult.Positions),
			PositionsCount:  len(brokResult.Positions),
			PositionsValue:  domain.RoundCash(positionsValue),
			EventsPerMonth:  b.EventsPerMonth,
			Health:          brokResult.Health,
			Snapshots:       b.MonthSnapshots,
		})
	}

	metalResult := valuate.Metal(w.Metals, target, in.LiveRates, in.Quotes)
	tree.Metals = metalResult
	tree.Health.Merge(metalResult.Health)

	reResult := valuate.RealEstate(w.RealEstate, target, in.LiveRates, in.PriceLookup)
	tree.RealEstate = reResult
	tree.Health.Merge(reResult.Health)

	// --- frozen monthly sections ---
	for _, monthKey := range in.MonthKeys {
		monthRates, ok := in.FXByMonth[monthKey]
		if !ok {
			// month whose FX row is missing is omitted entirely, never imputed
			continue
		}
		tree.FXByMonth[monthKey] = monthRates

		total := WalletMonthTotal{CashDeposit: domain.Zero, CashBroker: domain.Zero, Stocks: domain.Zero, Metals: domain.Zero, RealEstate: domain.Zero}

		for _, d := range w.DepositAccounts {
			if snap, ok := d.MonthSnapshots[monthKey]; ok {
				if converted, ok := fx.Convert(snap.Available, snap.Currency, target, monthRates); ok {
					total.CashDeposit = total.CashDeposit.Add(converted)
				}
			}
		}

		for _, b := range w.BrokerageAccounts {
			if snap, ok := b.MonthSnapshots[monthKey]; ok {
				// already frozen in base currency at snapshot time
				total.CashBroker = total.CashBroker.Add(snap.CashBase)
				total.Stocks = total.Stocks.Add(snap.StocksBase)
			}
		}

		if mst, ok := w.MonthlySnapshots[monthKey]; ok {
			if !mst.MetalValue.IsZero() {
				if v, ok := fx.Convert(mst.MetalValue, mst.MetalCurrency, target, monthRates); ok {
					total.Metals = total.Metals.Add(v)
				}
			}
			if !mst.RealEstateValue.IsZero() {
				if v, ok := fx.Convert(mst.RealEstateValue, mst.RealEstateCCY, target, monthRates); ok {
					total.RealEstate = total.RealEstate.Add(v)
				}
			}
		}

		total.CashDeposit = domain.RoundCash(total.CashDeposit)
		total.CashBroker = domain.RoundCash(total.CashBroker)
		total.Stocks = domain.RoundCash(total.Stocks)
		total.Metals = domain.RoundCash(total.Metals)
		total.RealEstate = domain.RoundCash(total.RealEstate)

		tree.Snapshots[monthKey] = total
	}

	// month-over-month deltas between consecutive present months,
	// oldest-first; a gap (omitted month) breaks the pair, it is never
	// bridged with an imputed value
	var prevKey string
	for _, monthKey := range in.MonthKeys {
		cur, ok := tree.Snapshots[monthKey]
		if !ok {
			prevKey = ""
			continue
		}
		if prevKey != "" {
			prevTotal := tree.Snapshots[prevKey].Total()
			if !prevTotal.IsZero() {
				tree.MoM[monthKey] = domain.RoundCost(cur.Total().Sub(prevTotal).Div(prevTotal))
			}
		}
		prevKey = monthKey
	}

	return tree
}

func toPositions(ps []valuate.Position) []valuate.Position {
	out := make([]valuate.Position, len(ps))
	copy(out, ps)
	return out
}
