// Package holding implements the brokerage event to holding projection:
// replaying an ordered event stream into a (quantity, avg_cost)
// position. Deletion or edit of a historical event is handled by the caller
// re-invoking Replay over the corrected stream from scratch; this package
// never attempts local inversion.
package holding

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/walleterr"
)

// Position is the derived state of one (account, instrument) pair.
type Position struct {
	Quantity decimal.Decimal
	AvgCost  decimal.Decimal
}

// RealizedGain records the realized P&L surfaced by a SELL event, to be
// attached as a CapitalGain on the linked deposit account when a paired
// cash Transaction exists.
type RealizedGain struct {
	EventID uuid.UUID
	Amount  decimal.Decimal
	// Currency is the SELL event's own currency.
	Currency domain.Currency
}

// DividendPaid records a DIV event's amount for BROKER_DIVIDEND surfacing.
type DividendPaid struct {
	EventID  uuid.UUID
	Amount   decimal.Decimal
	Currency domain.Currency
}

// ReplayEvent is the minimal shape Replay needs from a BrokerageEvent row.
type ReplayEvent struct {
	ID         uuid.UUID
	Kind       domain.BrokerageEventKind
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Currency   domain.Currency
	SplitRatio decimal.Decimal
	TradeAt    int64 // unix, used only for ordering
	SeqID      int64 // creation id, tie-breaker for equal trade_at
}

// Result is the outcome of replaying a full event stream.
type Result struct {
	Position  Position
	Gains     []RealizedGain
	Dividends []DividendPaid
}

// Sort orders events by trade_at, ties broken by creation id.
func Sort(events []ReplayEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].TradeAt != events[j].TradeAt {
			return events[i].TradeAt < events[j].TradeAt
		}
		return events[i].SeqID < events[j].SeqID
	})
}

// Replay derives the (quantity, avg_cost) position and any realized
// gains/dividends from the ordered event stream. Events must already be
// sorted (call Sort first) or be pre-ordered by the caller's query.
//
// Invariants enforced:
//   - qty >= 0 after every event; a SELL beyond available qty is rejected
//     with InsufficientQuantity and replay stops, returning the error.
//   - avg_cost >= 0.
//   - SPLIT preserves total cost (qty*avg_cost) up to decimal rounding.
func Replay(accountID, instrumentID uuid.UUID, events []ReplayEvent) (Result, error) {
	pos := Position{Quantity: domain.Zero, AvgCost: domain.Zero}
	var gains []RealizedGain
	var divs []DividendPaid

	for _, ev := range events {
		switch ev.Kind {
		case domain.EventBuy:
			newQty := pos.Quantity.Add(ev.Quantity)
			// new_avg_cost = (qty*avg_cost + Δqty*price) / new_qty
			numerator := pos.Quantity.Mul(pos.AvgCost).Add(ev.Quantity.Mul(ev.Price))
			if newQty.IsZero() {
				pos.AvgCost = domain.Zero
			} else {
				pos.AvgCost = domain.RoundCost(numerator.Div(newQty))
			}
			pos.Quantity = domain.RoundQuantity(newQty)

		case domain.EventSell:
			if ev.Quantity.GreaterThan(pos.Quantity) {
				return Result{}, walleterr.InsufficientQuantity(accountID.String(), instrumentID.String())
			}
			pnl := ev.Quantity.Mul(ev.Price.Sub(pos.AvgCost))
			pos.Quantity = domain.RoundQuantity(pos.Quantity.Sub(ev.Quantity))
			// avg_cost is unchanged by a SELL
			gains = append(gains, RealizedGain{EventID: ev.ID, Amount: domain.RoundCash(pnl), Currency: ev.Currency})

		case domain.EventDiv:
			divs = append(divs, DividendPaid{EventID: ev.ID, Amount: domain.RoundCash(ev.Price), Currency: ev.Currency})

		case domain.EventSplit:
			ratio := ev.SplitRatio
			if ratio.IsZero() {
				return Result{}, walleterr.Validation("split ratio must be non-zero for event %s", ev.ID)
			}
			pos.Quantity = domain.RoundQuantity(pos.Quantity.Mul(ratio))
			pos.AvgCost = domain.RoundCost(pos.AvgCost.Div(ratio))
		}

		if pos.Quantity.IsNegative() {
			return Result{}, walleterr.InsufficientQuantity(accountID.String(), instrumentID.String())
		}
		if pos.AvgCost.IsNegative() {
			return Result{}, walleterr.Fatal("avg_cost went negative during replay", nil)
		}
	}

	return Result{Position: pos, Gains: gains, Dividends: divs}, nil
}
