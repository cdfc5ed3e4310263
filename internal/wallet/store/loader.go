package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/wallet/aggregate"
	"github.com/aristath/walletcore/internal/wallet/fx"
	"github.com/aristath/walletcore/internal/wallet/snapshot"
	"github.com/aristath/walletcore/internal/wallet/valuate"
)

func decimalFromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

// Loader bulk-loads everything aggregate.Manager needs to compose a user's
// wallet trees: accounts, holdings, links, metals, real
// estate and every frozen monthly snapshot row. Lists are read once per
// wallet; balances, month snapshots, counters, links, instruments and
// real-estate snapshots are read with one query per account, holding or
// property.
type Loader struct {
	walletDB *sql.DB
	ledgerDB *sql.DB

	wallets     *WalletRepository
	deposits    *DepositAccountRepository
	brokerages  *BrokerageAccountRepository
	instruments *InstrumentRepository
	holdings    *HoldingRepository
	metals      *MetalHoldingRepository
	realEstates *RealEstateRepository
	rePrices    *RealEstatePriceRepository
	snapshots   *SnapshotRepository

	log zerolog.Logger
}

func NewLoader(
	walletDB *sql.DB,
	ledgerDB *sql.DB,
	wallets *WalletRepository,
	deposits *DepositAccountRepository,
	brokerages *BrokerageAccountRepository,
	instruments *InstrumentRepository,
	holdings *HoldingRepository,
	metals *MetalHoldingRepository,
	realEstates *RealEstateRepository,
	rePrices *RealEstatePriceRepository,
	snapshots *SnapshotRepository,
	log zerolog.Logger,
) *Loader {
	return &Loader{
		walletDB: walletDB, ledgerDB: ledgerDB, wallets: wallets, deposits: deposits, brokerages: brokerages,
		instruments: instruments, holdings: holdings, metals: metals, realEstates: realEstates,
		rePrices: rePrices, snapshots: snapshots, log: log.With().Str("component", "wallet_loader").Logger(),
	}
}

// BuildAggregateInput assembles an aggregate.Input for every wallet owned
// by userID. liveRates and quotes are supplied by the caller; the one
// batched quotes call per request happens in the handler, not here.
func (l *Loader) BuildAggregateInput(userID uuid.UUID, monthKeys []string, liveRates fx.Rates, quotes fx.Quotes) (aggregate.Input, error) {
	wallets, err := l.wallets.ListByUser(userID)
	if err != nil {
		return aggregate.Input{}, fmt.Errorf("list wallets: %w", err)
	}

	in := aggregate.Input{
		MonthKeys:   monthKeys,
		FXByMonth:   map[string]fx.Rates{},
		LiveRates:   liveRates,
		Quotes:      quotes,
		PriceLookup: l.rePrices.Lookup,
	}

	for _, mk := range monthKeys {
		if rates, ok, err := l.snapshots.LoadFxSnapshot(mk); err != nil {
			return aggregate.Input{}, fmt.Errorf("load fx snapshot %s: %w", mk, err)
		} else if ok {
			in.FXByMonth[mk] = rates
		}
	}

	for _, w := range wallets {
		data, err := l.loadWallet(w)
		if err != nil {
			return aggregate.Input{}, fmt.Errorf("load wallet %s: %w", w.ID, err)
		}
		in.Wallets = append(in.Wallets, data)
	}

	return in, nil
}

// BuildSnapshotInputs assembles snapshot.Inputs for one wallet/month, using
// the same bulk queries as BuildAggregateInput. rates and quotes must
// already be fetched by the caller before the snapshot transaction opens.
func (l *Loader) BuildSnapshotInputs(walletID uuid.UUID, monthKey string, rates fx.Rates, quotes fx.Quotes) (snapshot.Inputs, error) {
	w, err := l.wallets.GetByID(walletID)
	if err != nil {
		return snapshot.Inputs{}, fmt.Errorf("get wallet: %w", err)
	}

	in := snapshot.Inputs{
		WalletID:    w.ID,
		MonthKey:    monthKey,
		BaseCCY:     w.BaseCCY,
		Rates:       rates,
		PriceLookup: l.rePrices.Lookup,
	}

	depositAccounts, err := l.deposits.ListByWallet(w.ID)
	if err != nil {
		return snapshot.Inputs{}, fmt.Errorf("list deposit accounts: %w", err)
	}
	for _, d := range depositAccounts {
		bal, err := l.deposits.GetBalance(d.ID)
		if err != nil {
			return snapshot.Inputs{}, fmt.Errorf("get balance %s: %w", d.ID, err)
		}
		in.DepositAccounts = append(in.DepositAccounts, snapshot.DepositAccountInput{
			AccountID: d.ID, Currency: d.Currency, Available: bal.Available,
		})
	}

	brokerageAccounts, err := l.brokerages.ListByWallet(w.ID)
	if err != nil {
		return snapshot.Inputs{}, fmt.Errorf("list brokerage accounts: %w", err)
	}
	depositByID := make(map[uuid.UUID]wallet.DepositAccount, len(depositAccounts))
	for _, d := range depositAccounts {
		depositByID[d.ID] = d
	}
	for _, b := range brokerageAccounts {
		bi := snapshot.BrokerageAccountInput{AccountID: b.ID, Currency: b.Currency, Quotes: quotes}

		links, err := l.brokerages.ListLinks(b.ID)
		if err != nil {
			return snapshot.Inputs{}, fmt.Errorf("list links %s: %w", b.ID, err)
		}
		for _, link := range links {
			d, ok := depositByID[link.DepositAccountID]
			if !ok {
				continue
			}
			bal, err := l.deposits.GetBalance(d.ID)
			if err != nil {
				return snapshot.Inputs{}, fmt.Errorf("get linked balance %s: %w", d.ID, err)
			}
			bi.LinkedCash = append(bi.LinkedCash, valuate.CashAccount{AccountID: d.ID, Name: d.Name, Currency: link.Currency, Available: bal.Available})
		}

		holdings, err := l.holdings.ListByAccount(b.ID)
		if err != nil {
			return snapshot.Inputs{}, fmt.Errorf("list holdings %s: %w", b.ID, err)
		}
		for _, h := range holdings {
			if h.Quantity.IsZero() {
				continue
			}
			instr, err := l.instruments.GetByID(h.InstrumentID)
			if err != nil {
				return snapshot.Inputs{}, fmt.Errorf("get instrument %s: %w", h.InstrumentID, err)
			}
			bi.Holdings = append(bi.Holdings, valuate.HoldingPosition{
				InstrumentID: instr.ID, Symbol: instr.Symbol, MIC: instr.MIC, QuoteSymbol: instr.QuoteSymbol,
				Quantity: h.Quantity, AvgCost: h.AvgCost, ReportCCY: instr.Currency,
			})
		}

		in.BrokerageAccounts = append(in.BrokerageAccounts, bi)
	}

	metalHoldings, err := l.metals.ListByWallet(w.ID)
	if err != nil {
		return snapshot.Inputs{}, fmt.Errorf("list metal holdings: %w", err)
	}
	for _, m := range metalHoldings {
		in.Metals = append(in.Metals, valuate.MetalHolding{
			Name: string(m.Metal), Metal: m.Metal, QuoteSymbol: m.QuoteSymbol,
			Grams: m.Grams, CostBasis: m.CostBasis, CostCurrency: m.CostCurrency,
		})
	}

	properties, err := l.realEstates.ListByWallet(w.ID)
	if err != nil {
		return snapshot.Inputs{}, fmt.Errorf("list real estate: %w", err)
	}
	for _, p := range properties {
		in.RealEstate = append(in.RealEstate, valuate.RealEstateAsset{
			ID: p.ID, Name: p.Name, City: p.City, Country: p.Country, Type: p.Type,
			AreaM2: p.AreaM2, PurchasePrice: p.PurchasePrice, PurchaseCurrency: p.PurchaseCurrency,
		})
	}

	return in, nil
}

func (l *Loader) loadWallet(w wallet.Wallet) (aggregate.WalletData, error) {
	data := aggregate.WalletData{ID: w.ID, Name: w.Name, BaseCCY: w.BaseCCY, MonthlySnapshots: map[string]aggregate.MonthlySnapshotTotals{}}

	depositAccounts, err := l.deposits.ListByWallet(w.ID)
	if err != nil {
		return data, err
	}
	for _, d := range depositAccounts {
		bal, err := l.deposits.GetBalance(d.ID)
		if err != nil {
			return data, err
		}
		monthSnaps, err := l.depositMonthSnapshots(d.ID)
		if err != nil {
			return data, err
		}
		txCount, err := l.countThisMonth(`SELECT COUNT(*) FROM transactions WHERE account_id = ? AND transaction_date >= ? AND transaction_date < ?`, d.ID)
		if err != nil {
			return data, err
		}
		data.DepositAccounts = append(data.DepositAccounts, aggregate.DepositAccountView{
			AccountID:      d.ID,
			Name:           d.Name,
			TxPerMonth:     txCount,
			Currency:       d.Currency,
			Available:      bal.Available,
			MonthSnapshots: monthSnaps,
		})
	}

	brokerageAccounts, err := l.brokerages.ListByWallet(w.ID)
	if err != nil {
		return data, err
	}
	for _, b := range brokerageAccounts {
		view, err := l.loadBrokerageAccount(b, depositAccounts)
		if err != nil {
			return data, err
		}
		data.BrokerageAccounts = append(data.BrokerageAccounts, view)
	}

	metalHoldings, err := l.metals.ListByWallet(w.ID)
	if err != nil {
		return data, err
	}
	for _, m := range metalHoldings {
		data.Metals = append(data.Metals, valuate.MetalHolding{
			Name: string(m.Metal), Metal: m.Metal, QuoteSymbol: m.QuoteSymbol,
			Grams: m.Grams, CostBasis: m.CostBasis, CostCurrency: m.CostCurrency,
		})
	}

	properties, err := l.realEstates.ListByWallet(w.ID)
	if err != nil {
		return data, err
	}
	for _, p := range properties {
		data.RealEstate = append(data.RealEstate, valuate.RealEstateAsset{
			ID: p.ID, Name: p.Name, City: p.City, Country: p.Country, Type: p.Type,
			AreaM2: p.AreaM2, PurchasePrice: p.PurchasePrice, PurchaseCurrency: p.PurchaseCurrency,
		})
	}

	metalTotals, err := l.metalMonthTotals(w.ID)
	if err != nil {
		return data, err
	}
	reTotals, err := l.realEstateMonthTotals(properties)
	if err != nil {
		return data, err
	}
	for mk, mt := range metalTotals {
		t := data.MonthlySnapshots[mk]
		t.MetalValue, t.MetalCurrency = mt.value, mt.currency
		data.MonthlySnapshots[mk] = t
	}
	for mk, rt := range reTotals {
		t := data.MonthlySnapshots[mk]
		t.RealEstateValue, t.RealEstateCCY = rt.value, rt.currency
		data.MonthlySnapshots[mk] = t
	}

	return data, nil
}

func (l *Loader) loadBrokerageAccount(b wallet.BrokerageAccount, depositAccounts []wallet.DepositAccount) (aggregate.BrokerageAccountView, error) {
	view := aggregate.BrokerageAccountView{AccountID: b.ID, Name: b.Name, Currency: b.Currency}

	depositByID := make(map[uuid.UUID]wallet.DepositAccount, len(depositAccounts))
	for _, d := range depositAccounts {
		depositByID[d.ID] = d
	}

	links, err := l.brokerages.ListLinks(b.ID)
	if err != nil {
		return view, err
	}
	for _, link := range links {
		d, ok := depositByID[link.DepositAccountID]
		if !ok {
			continue
		}
		bal, err := l.deposits.GetBalance(d.ID)
		if err != nil {
			return view, err
		}
		view.LinkedCash = append(view.LinkedCash, valuate.CashAccount{AccountID: d.ID, Name: d.Name, Currency: link.Currency, Available: bal.Available})
	}

	holdings, err := l.holdings.ListByAccount(b.ID)
	if err != nil {
		return view, err
	}
	for _, h := range holdings {
		if h.Quantity.IsZero() {
			continue
		}
		instr, err := l.instruments.GetByID(h.InstrumentID)
		if err != nil {
			return view, err
		}
		view.Holdings = append(view.Holdings, valuate.HoldingPosition{
			InstrumentID: instr.ID, Symbol: instr.Symbol, MIC: instr.MIC, QuoteSymbol: instr.QuoteSymbol,
			Quantity: h.Quantity, AvgCost: h.AvgCost, ReportCCY: instr.Currency,
		})
	}

	monthSnaps, err := l.brokerageMonthSnapshots(b.ID)
	if err != nil {
		return view, err
	}
	view.MonthSnapshots = monthSnaps

	eventCount, err := l.countThisMonth(`SELECT COUNT(*) FROM brokerage_events WHERE brokerage_id = ? AND trade_at >= ? AND trade_at < ?`, b.ID)
	if err != nil {
		return view, err
	}
	view.EventsPerMonth = eventCount

	return view, nil
}

// countThisMonth runs a ledger.db COUNT query bounded to the current
// calendar month, feeding the tree's tx_per_month / events_per_month
// figures.
func (l *Loader) countThisMonth(query string, id uuid.UUID) (int, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var count int
	if err := l.ledgerDB.QueryRow(query, id, monthStart.Unix(), monthEnd.Unix()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows this month: %w", err)
	}
	return count, nil
}

func (l *Loader) depositMonthSnapshots(accountID uuid.UUID) (map[string]aggregate.SnapshotAmount, error) {
	rows, err := l.walletDB.Query(
		`SELECT month_key, currency, available FROM deposit_account_monthly_snapshots WHERE account_id = ?`, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("load deposit month snapshots: %w", err)
	}
	defer rows.Close()

	out := map[string]aggregate.SnapshotAmount{}
	for rows.Next() {
		var mk, ccy, available string
		if err := rows.Scan(&mk, &ccy, &available); err != nil {
			return nil, fmt.Errorf("scan deposit month snapshot: %w", err)
		}
		amt, err := decimalFromString(available)
		if err != nil {
			return nil, err
		}
		out[mk] = aggregate.SnapshotAmount{Currency: domain.Currency(ccy), Available: amt}
	}
	return out, rows.Err()
}

func (l *Loader) brokerageMonthSnapshots(accountID uuid.UUID) (map[string]aggregate.BrokerageSnapshotAmount, error) {
	rows, err := l.walletDB.Query(
		`SELECT month_key, currency, cash, stocks, cash_base, stocks_base FROM brokerage_account_monthly_snapshots WHERE account_id = ?`, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("load brokerage month snapshots: %w", err)
	}
	defer rows.Close()

	out := map[string]aggregate.BrokerageSnapshotAmount{}
	for rows.Next() {
		var mk, ccy string
		raw := make([]string, 4)
		if err := rows.Scan(&mk, &ccy, &raw[0], &raw[1], &raw[2], &raw[3]); err != nil {
			return nil, fmt.Errorf("scan brokerage month snapshot: %w", err)
		}
		vals := make([]decimal.Decimal, 4)
		for i, r := range raw {
			v, err := decimalFromString(r)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		out[mk] = aggregate.BrokerageSnapshotAmount{
			Currency: domain.Currency(ccy),
			Cash:     vals[0], Stocks: vals[1], CashBase: vals[2], StocksBase: vals[3],
		}
	}
	return out, rows.Err()
}

type monthTotal struct {
	value    decimal.Decimal
	currency domain.Currency
}

func (l *Loader) metalMonthTotals(walletID uuid.UUID) (map[string]monthTotal, error) {
	rows, err := l.walletDB.Query(
		`SELECT month_key, currency, value FROM metal_holding_monthly_snapshots WHERE wallet_id = ?`, walletID,
	)
	if err != nil {
		return nil, fmt.Errorf("load metal month snapshots: %w", err)
	}
	defer rows.Close()

	out := map[string]monthTotal{}
	for rows.Next() {
		var mk, ccy, value string
		if err := rows.Scan(&mk, &ccy, &value); err != nil {
			return nil, fmt.Errorf("scan metal month snapshot: %w", err)
		}
		v, err := decimalFromString(value)
		if err != nil {
			return nil, err
		}
		t := out[mk]
		t.value = t.value.Add(v)
		t.currency = domain.Currency(ccy)
		out[mk] = t
	}
	return out, rows.Err()
}

func (l *Loader) realEstateMonthTotals(properties []wallet.RealEstate) (map[string]monthTotal, error) {
	out := map[string]monthTotal{}
	for _, p := range properties {
		rows, err := l.walletDB.Query(
			`SELECT month_key, currency, value FROM real_estate_monthly_snapshots WHERE real_estate_id = ?`, p.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("load real estate month snapshots: %w", err)
		}
		for rows.Next() {
			var mk, ccy, value string
			if err := rows.Scan(&mk, &ccy, &value); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan real estate month snapshot: %w", err)
			}
			v, err := decimalFromString(value)
			if err != nil {
				rows.Close()
				return nil, err
			}
			t := out[mk]
			t.value = t.value.Add(v)
			t.currency = domain.Currency(ccy)
			out[mk] = t
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}
