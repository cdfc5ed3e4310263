// Package snapshot implements the Monthly Snapshot Engine: for
// a given month_key it atomically materializes a frozen view of every
// account/holding, using FX and quotes captured once up-front so historical
// series stay stable regardless of later price movements.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
	"github.com/aristath/walletcore/internal/wallet/valuate"
)

// Inputs bundles everything the Engine needs for one wallet's snapshot.
// All of it must be gathered by the caller BEFORE the transaction opens;
// external I/O (quotes, FX) never happens while a DB lock is held.
type Inputs struct {
	WalletID  uuid.UUID
	MonthKey  string
	BaseCCY   domain.Currency
	Rates     fx.Rates
	DepositAccounts []DepositAccountInput
	BrokerageAccounts []BrokerageAccountInput
	Metals    []valuate.MetalHolding
	RealEstate []valuate.RealEstateAsset
	PriceLookup valuate.PriceCatalogLookup
}

type DepositAccountInput struct {
	AccountID uuid.UUID
	Currency  domain.Currency
	Available decimal.Decimal
}

type BrokerageAccountInput struct {
	AccountID  uuid.UUID
	Currency   domain.Currency
	LinkedCash []valuate.CashAccount
	Holdings   []valuate.HoldingPosition
	Quotes     fx.Quotes
}

// Repository persists the upserted snapshot rows. Implementations MUST
// make every Upsert* call idempotent keyed by (entity_id, month_key).
type Repository interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	UpsertFxSnapshot(tx *sql.Tx, monthKey string, rates fx.Rates) error
	UpsertDepositSnapshot(tx *sql.Tx, row DepositSnapshotRow) error
	UpsertBrokerageSnapshot(tx *sql.Tx, row BrokerageSnapshotRow) error
	UpsertMetalSnapshot(tx *sql.Tx, row MetalSnapshotRow) error
	UpsertRealEstateSnapshot(tx *sql.Tx, row RealEstateSnapshotRow) error
}

type DepositSnapshotRow struct {
	AccountID uuid.UUID
	MonthKey  string
	Currency  domain.Currency
	Available decimal.Decimal
}

type BrokerageSnapshotRow struct {
	AccountID  uuid.UUID
	MonthKey   string
	Currency   domain.Currency
	Cash       decimal.Decimal
	Stocks     decimal.Decimal
	CashBase   decimal.Decimal
	StocksBase decimal.Decimal
}

type MetalSnapshotRow struct {
	WalletID uuid.UUID
	Metal    domain.MetalType
	MonthKey string
	Currency domain.Currency
	Value    decimal.Decimal
}

type RealEstateSnapshotRow struct {
	RealEstateID uuid.UUID
	MonthKey     string
	Currency     domain.Currency
	Value        decimal.Decimal
}

// Summary reports what the engine wrote for observability/logging.
type Summary struct {
	MonthKey         string
	DepositCount     int
	BrokerageCount   int
	MetalCount       int
	RealEstateCount  int
}

// Engine materializes monthly snapshots.
type Engine struct {
	repo Repository
	log  zerolog.Logger
}

func New(repo Repository, log zerolog.Logger) *Engine {
	return &Engine{repo: repo, log: log.With().Str("component", "snapshot_engine").Logger()}
}

// Create runs the full snapshot for one wallet/month inside a single
// transaction. It is safe to call twice for the same month with
// identical inputs: re-running overwrites deterministically and produces
// no new rows.
func (e *Engine) Create(ctx context.Context, in Inputs) (Summary, error) {
	summary := Summary{MonthKey: in.MonthKey}

	err := e.repo.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.repo.UpsertFxSnapshot(tx, in.MonthKey, in.Rates); err != nil {
			return fmt.Errorf("upsert fx snapshot: %w", err)
		}

		for _, d := range in.DepositAccounts {
			row := DepositSnapshotRow{AccountID: d.AccountID, MonthKey: in.MonthKey, Currency: d.Currency, Available: d.Available}
			if err := e.repo.UpsertDepositSnapshot(tx, row); err != nil {
				return fmt.Errorf("upsert deposit snapshot %s: %w", d.AccountID, err)
			}
			summary.DepositCount++
		}

		for _, b := range in.BrokerageAccounts {
			// Cash/Stocks freeze the account's own currency view; the
			// *Base columns freeze the wallet-base view computed with the
			// same quotes and rates, so later reads never re-convert.
			native := valuate.Brokerage(b.LinkedCash, b.Holdings, b.Currency, in.Rates, b.Quotes)
			base := valuate.Brokerage(b.LinkedCash, b.Holdings, in.BaseCCY, in.Rates, b.Quotes)
			row := BrokerageSnapshotRow{
				AccountID:  b.AccountID,
				MonthKey:   in.MonthKey,
				Currency:   b.Currency,
				Cash:       native.CashBroker,
				Stocks:     native.Stocks,
				CashBase:   base.CashBroker,
				StocksBase: base.Stocks,
			}
			if err := e.repo.UpsertBrokerageSnapshot(tx, row); err != nil {
				return fmt.Errorf("upsert brokerage snapshot %s: %w", b.AccountID, err)
			}
			summary.BrokerageCount++
		}

		if len(in.Metals) > 0 {
			metalQuotes := fx.Quotes{}
			for _, a := range in.BrokerageAccounts {
				for k, v := range a.Quotes {
					metalQuotes[k] = v
				}
			}
			metalResult := valuate.Metal(in.Metals, in.BaseCCY, in.Rates, metalQuotes)
			valueByMetal := make(map[domain.MetalType]decimal.Decimal, len(metalResult.Items))
			for _, item := range metalResult.Items {
				valueByMetal[item.Metal] = item.Value
			}
			for _, m := range in.Metals {
				row := MetalSnapshotRow{WalletID: in.WalletID, Metal: m.Metal, MonthKey: in.MonthKey, Currency: in.BaseCCY, Value: valueByMetal[m.Metal]}
				if err := e.repo.UpsertMetalSnapshot(tx, row); err != nil {
					return fmt.Errorf("upsert metal snapshot %s: %w", m.Metal, err)
				}
				summary.MetalCount++
			}
		}

		if len(in.RealEstate) > 0 {
			reResult := valuate.RealEstate(in.RealEstate, in.BaseCCY, in.Rates, in.PriceLookup)
			valueByID := make(map[uuid.UUID]decimal.Decimal, len(reResult.Items))
			for _, item := range reResult.Items {
				valueByID[item.ID] = item.Value
			}
			for _, re := range in.RealEstate {
				row := RealEstateSnapshotRow{RealEstateID: re.ID, MonthKey: in.MonthKey, Currency: in.BaseCCY, Value: valueByID[re.ID]}
				if err := e.repo.UpsertRealEstateSnapshot(tx, row); err != nil {
					return fmt.Errorf("upsert real estate snapshot %s: %w", re.ID, err)
				}
				summary.RealEstateCount++
			}
		}

		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	e.log.Info().Str("month_key", in.MonthKey).Int("deposits", summary.DepositCount).
		Int("brokerages", summary.BrokerageCount).Int("metals", summary.MetalCount).
		Int("real_estate", summary.RealEstateCount).Msg("monthly snapshot created")

	return summary, nil
}
