package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/wallet/fx"
	"github.com/aristath/walletcore/internal/wallet/snapshot"
)

// SnapshotRepository implements snapshot.Repository against wallet.db. Every
// Upsert* is keyed by (entity_id, month_key) so re-running the engine for
// the same month is a pure overwrite, never a duplicate insert.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: db, log: log.With().Str("repo", "snapshot").Logger()}
}

func (r *SnapshotRepository) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}

func (r *SnapshotRepository) UpsertFxSnapshot(tx *sql.Tx, monthKey string, rates fx.Rates) error {
	ratesJSON, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("marshal fx rates: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO fx_monthly_snapshots (month_key, rates_json) VALUES (?, ?)
		 ON CONFLICT(month_key) DO UPDATE SET rates_json = excluded.rates_json`,
		monthKey, string(ratesJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert fx snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) UpsertDepositSnapshot(tx *sql.Tx, row snapshot.DepositSnapshotRow) error {
	_, err := tx.Exec(
		`INSERT INTO deposit_account_monthly_snapshots (account_id, month_key, currency, available) VALUES (?, ?, ?, ?)
		 ON CONFLICT(account_id, month_key) DO UPDATE SET currency = excluded.currency, available = excluded.available`,
		row.AccountID, row.MonthKey, row.Currency, row.Available.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert deposit snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) UpsertBrokerageSnapshot(tx *sql.Tx, row snapshot.BrokerageSnapshotRow) error {
	_, err := tx.Exec(
		`INSERT INTO brokerage_account_monthly_snapshots (account_id, month_key, currency, cash, stocks, cash_base, stocks_base)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(account_id, month_key) DO UPDATE SET currency = excluded.currency, cash = excluded.cash, stocks = excluded.stocks,
		 	cash_base = excluded.cash_base, stocks_base = excluded.stocks_base`,
		row.AccountID, row.MonthKey, row.Currency, row.Cash.String(), row.Stocks.String(), row.CashBase.String(), row.StocksBase.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert brokerage snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) UpsertMetalSnapshot(tx *sql.Tx, row snapshot.MetalSnapshotRow) error {
	_, err := tx.Exec(
		`INSERT INTO metal_holding_monthly_snapshots (wallet_id, metal, month_key, currency, value) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(wallet_id, metal, month_key) DO UPDATE SET currency = excluded.currency, value = excluded.value`,
		row.WalletID, row.Metal, row.MonthKey, row.Currency, row.Value.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert metal snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) UpsertRealEstateSnapshot(tx *sql.Tx, row snapshot.RealEstateSnapshotRow) error {
	_, err := tx.Exec(
		`INSERT INTO real_estate_monthly_snapshots (real_estate_id, month_key, currency, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT(real_estate_id, month_key) DO UPDATE SET currency = excluded.currency, value = excluded.value`,
		row.RealEstateID, row.MonthKey, row.Currency, row.Value.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert real estate snapshot: %w", err)
	}
	return nil
}

// LoadFxSnapshot reads a previously-frozen FX rate table for monthKey, used
// by the aggregator when composing historical months.
func (r *SnapshotRepository) LoadFxSnapshot(monthKey string) (fx.Rates, bool, error) {
	var ratesJSON string
	err := r.db.QueryRow(`SELECT rates_json FROM fx_monthly_snapshots WHERE month_key = ?`, monthKey).Scan(&ratesJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load fx snapshot: %w", err)
	}
	var rates fx.Rates
	if err := json.Unmarshal([]byte(ratesJSON), &rates); err != nil {
		return nil, false, fmt.Errorf("unmarshal fx snapshot: %w", err)
	}
	return rates, true, nil
}
