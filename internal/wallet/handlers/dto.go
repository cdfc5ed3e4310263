package handlers

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/aggregate"
	"github.com/aristath/walletcore/internal/wallet/valuate"
)

// The types below mirror the Wallet Manager tree payload shape, plus the
// per-wallet mom object, so the JSON wire format does not leak Go
// naming. decimal.Decimal marshals as a quoted string by default, which is
// what every numeric field here relies on.

type healthDTO struct {
	NeedsReview        bool `json:"needs_review"`
	MissingQuotes      int  `json:"missing_quotes"`
	StaleQuotes        int  `json:"stale_quotes"`
	MissingPrice       int  `json:"missing_price,omitempty"`
	ProjectionMismatch bool `json:"projection_mismatch,omitempty"`
}

func toHealthDTO(h valuate.Health, stale int) healthDTO {
	return healthDTO{
		NeedsReview:        h.NeedsReview,
		MissingQuotes:      h.MissingQuotes,
		StaleQuotes:        stale,
		MissingPrice:       h.MissingPrice,
		ProjectionMismatch: h.ProjectionMismatch,
	}
}

type snapshotAmountDTO struct {
	Currency  domain.Currency `json:"ccy"`
	Available decimal.Decimal `json:"available"`
}

type depositAccountDTO struct {
	ID         string                       `json:"id"`
	Name       string                       `json:"name"`
	Currency   domain.Currency              `json:"ccy"`
	Available  decimal.Decimal              `json:"available"`
	TxPerMonth int                          `json:"tx_per_month"`
	Health     healthDTO                    `json:"health"`
	Snapshots  map[string]snapshotAmountDTO `json:"snapshots"`
}

type cashAccountDTO struct {
	DepositAccountID string          `json:"deposit_account_id"`
	Name             string          `json:"name"`
	Currency         domain.Currency `json:"ccy"`
	Available        decimal.Decimal `json:"available"`
}

type positionDTO struct {
	Symbol          string          `json:"symbol"`
	MIC             string          `json:"mic"`
	Value           decimal.Decimal `json:"value"`
	ValueDefaultCCY decimal.Decimal `json:"value_default_ccy"`
	PnLPct          decimal.Decimal `json:"pnl_pct"`
	Currency        domain.Currency `json:"currency"`
}

type brokerageSnapshotDTO struct {
	Currency domain.Currency `json:"ccy"`
	Cash     decimal.Decimal `json:"cash"`
	Stocks   decimal.Decimal `json:"stocks"`
}

type brokerageAccountDTO struct {
	ID              string                          `json:"id"`
	Name            string                          `json:"name"`
	Currency        domain.Currency                 `json:"ccy"`
	CashAccounts    []cashAccountDTO                `json:"cash_accounts"`
	SumCashAccounts decimal.Decimal                 `json:"sum_cash_accounts"`
	Positions       []positionDTO                   `json:"positions"`
	PositionsCount  int                              `json:"positions_count"`
	PositionsValue  decimal.Decimal                 `json:"positions_value"`
	EventsPerMonth  int                              `json:"events_per_month"`
	Health          healthDTO                        `json:"health"`
	Snapshots       map[string]brokerageSnapshotDTO `json:"snapshots"`
}

type metalItemDTO struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	QtyUnit  string          `json:"qty_unit"`
	Value    decimal.Decimal `json:"value"`
	Currency domain.Currency `json:"ccy"`
}

type metalsDTO struct {
	Count    int             `json:"count"`
	Value    decimal.Decimal `json:"value"`
	Currency domain.Currency `json:"ccy"`
	Items    []metalItemDTO  `json:"items"`
	Health   healthDTO       `json:"health"`
}

type realEstateItemDTO struct {
	Name     string          `json:"name"`
	City     string          `json:"city"`
	Value    decimal.Decimal `json:"value"`
	Currency domain.Currency `json:"ccy"`
}

type realEstateDTO struct {
	Count    int                 `json:"count"`
	Value    decimal.Decimal     `json:"value"`
	Currency domain.Currency     `json:"ccy"`
	Items    []realEstateItemDTO `json:"items"`
	Health   healthDTO           `json:"health"`
}

type walletMonthTotalDTO struct {
	Currency    domain.Currency `json:"ccy"`
	CashDeposit decimal.Decimal `json:"cash_deposit"`
	CashBroker  decimal.Decimal `json:"cash_broker"`
	Stocks      decimal.Decimal `json:"stocks"`
	Metals      decimal.Decimal `json:"metals"`
	RealEstate  decimal.Decimal `json:"real_estate"`
}

type walletTreeDTO struct {
	ID                string                         `json:"id"`
	Name              string                         `json:"name"`
	BaseCCY           domain.Currency                `json:"base_ccy"`
	Health            healthDTO                      `json:"health"`
	DepositAccounts   []depositAccountDTO            `json:"deposit_accounts"`
	BrokerageAccounts []brokerageAccountDTO          `json:"brokerage_accounts"`
	Metals            metalsDTO                      `json:"metals"`
	RealEstate        realEstateDTO                  `json:"real_estate"`
	Snapshots         map[string]walletMonthTotalDTO `json:"snapshots"`
	MoM               map[string]decimal.Decimal     `json:"mom"`
	FXByMonth         map[string]map[domain.Currency]decimal.Decimal `json:"fx_by_month"`
}

// toWalletTreeDTO converts one aggregate.WalletTree into the wire shape.
// base_ccy labels the wallet-level, metal and real-estate figures, which
// the Aggregator already converted into it; per-account month snapshots
// keep their own currency. stale flags which
// quote symbols in this request's batch are aging anomalously (see
// staleQuoteSet); each entity's stale_quotes count is the number of its
// own symbols that appear in it.
func toWalletTreeDTO(t aggregate.WalletTree, stale map[string]bool) walletTreeDTO {
	metalSymbols := make([]string, 0, len(t.Metals.Items))
	for _, item := range t.Metals.Items {
		if item.QuoteSymbol != "" {
			metalSymbols = append(metalSymbols, item.QuoteSymbol)
		}
	}
	metalsStale := countStale(metalSymbols, stale)
	walletStale := metalsStale

	out := walletTreeDTO{
		ID:      t.ID.String(),
		Name:    t.Name,
		BaseCCY: t.BaseCCY,
		Metals: metalsDTO{
			Count:    len(t.Metals.Items),
			Value:    t.Metals.Total,
			Currency: t.BaseCCY,
			Health:   toHealthDTO(t.Metals.Health, metalsStale),
		},
		RealEstate: realEstateDTO{
			Count:    len(t.RealEstate.Items),
			Value:    t.RealEstate.Total,
			Currency: t.BaseCCY,
			Health:   toHealthDTO(t.RealEstate.Health, 0),
		},
		Snapshots: map[string]walletMonthTotalDTO{},
		MoM:       map[string]decimal.Decimal{},
		FXByMonth: map[string]map[domain.Currency]decimal.Decimal{},
	}

	for _, item := range t.Metals.Items {
		out.Metals.Items = append(out.Metals.Items, metalItemDTO{
			Name: item.Name, Quantity: item.Quantity, QtyUnit: "g", Value: item.Value, Currency: item.Currency,
		})
	}
	for _, item := range t.RealEstate.Items {
		out.RealEstate.Items = append(out.RealEstate.Items, realEstateItemDTO{
			Name: item.Name, City: item.City, Value: item.Value, Currency: item.Currency,
		})
	}

	for _, da := range t.DepositAccounts {
		d := depositAccountDTO{
			ID: da.AccountID.String(), Name: da.Name, Currency: da.Currency, Available: da.Available,
			TxPerMonth: da.TxPerMonth, Health: toHealthDTO(da.Health, 0), Snapshots: map[string]snapshotAmountDTO{},
		}
		for mk, snap := range da.Snapshots {
			d.Snapshots[mk] = snapshotAmountDTO{Currency: snap.Currency, Available: snap.Available}
		}
		out.DepositAccounts = append(out.DepositAccounts, d)
	}

	for _, ba := range t.BrokerageAccounts {
		positionSymbols := make([]string, 0, len(ba.Positions))
		for _, p := range ba.Positions {
			positionSymbols = append(positionSymbols, p.Symbol)
		}
		brokerageStale := countStale(positionSymbols, stale)
		walletStale += brokerageStale

		b := brokerageAccountDTO{
			ID: ba.AccountID.String(), Name: ba.Name, Currency: ba.Currency,
			SumCashAccounts: ba.SumCashAccounts, PositionsCount: ba.PositionsCount, PositionsValue: ba.PositionsValue,
			EventsPerMonth: ba.EventsPerMonth, Health: toHealthDTO(ba.Health, brokerageStale), Snapshots: map[string]brokerageSnapshotDTO{},
		}
		for _, c := range ba.CashAccounts {
			b.CashAccounts = append(b.CashAccounts, cashAccountDTO{
				DepositAccountID: c.AccountID.String(), Name: c.Name, Currency: c.Currency, Available: c.Available,
			})
		}
		for _, p := range ba.Positions {
			b.Positions = append(b.Positions, positionDTO{
				Symbol: p.Symbol, MIC: p.MIC, Value: p.Value, ValueDefaultCCY: p.ValueDefaultCCY, PnLPct: p.PnLPct, Currency: p.Currency,
			})
		}
		out.BrokerageAccounts = append(out.BrokerageAccounts, b)
	}

	out.Health = toHealthDTO(t.Health, walletStale)

	for mk, total := range t.Snapshots {
		out.Snapshots[mk] = walletMonthTotalDTO{
			Currency: t.BaseCCY, CashDeposit: total.CashDeposit, CashBroker: total.CashBroker,
			Stocks: total.Stocks, Metals: total.Metals, RealEstate: total.RealEstate,
		}
	}
	for mk, delta := range t.MoM {
		out.MoM[mk] = delta
	}
	for mk, rates := range t.FXByMonth {
		out.FXByMonth[mk] = rates
	}

	return out
}

func toWalletTreeDTOs(trees []aggregate.WalletTree, stale map[string]bool) []walletTreeDTO {
	out := make([]walletTreeDTO, 0, len(trees))
	for _, t := range trees {
		out = append(out, toWalletTreeDTO(t, stale))
	}
	return out
}
