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
	"github.com/aristath/walletcore/internal/walleterr"
)

// MetalHoldingRepository manages the (wallet, metal) unique holdings table
// (wallet.db).
type MetalHoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewMetalHoldingRepository(db *sql.DB, log zerolog.Logger) *MetalHoldingRepository {
	return &MetalHoldingRepository{db: db, log: log.With().Str("repo", "metal_holding").Logger()}
}

// Upsert adds to an existing position or creates one, averaging cost basis
// the same way a brokerage BUY averages avg_cost (the metals table has no
// event stream, only the current row).
func (r *MetalHoldingRepository) Upsert(walletID uuid.UUID, metal domain.MetalType, quoteSymbol string, grams, costBasis decimal.Decimal, costCCY domain.Currency) error {
	existing, err := r.Get(walletID, metal)
	if err != nil && walleterr.KindOf(err) != walleterr.KindNotFound {
		return err
	}

	newGrams := grams
	newCost := costBasis
	if existing != nil {
		newGrams = existing.Grams.Add(grams)
		newCost = existing.CostBasis.Add(costBasis)
	}

	now := time.Now()
	_, err = r.db.Exec(
		`INSERT INTO metal_holdings (wallet_id, metal, quote_symbol, grams, cost_basis, cost_currency, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(wallet_id, metal) DO UPDATE SET quote_symbol = excluded.quote_symbol, grams = excluded.grams, cost_basis = excluded.cost_basis, cost_currency = excluded.cost_currency, updated_at = excluded.updated_at`,
		walletID, metal, quoteSymbol, newGrams.String(), newCost.String(), costCCY, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert metal holding: %w", err)
	}
	return nil
}

func (r *MetalHoldingRepository) Get(walletID uuid.UUID, metal domain.MetalType) (*wallet.MetalHolding, error) {
	row := r.db.QueryRow(
		`SELECT wallet_id, metal, quote_symbol, grams, cost_basis, cost_currency, updated_at FROM metal_holdings WHERE wallet_id = ? AND metal = ?`,
		walletID, metal,
	)
	return scanMetalHolding(row)
}

func scanMetalHolding(row *sql.Row) (*wallet.MetalHolding, error) {
	var m wallet.MetalHolding
	var grams, cost string
	var updatedAt int64
	if err := row.Scan(&m.WalletID, &m.Metal, &m.QuoteSymbol, &grams, &cost, &m.CostCurrency, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, walleterr.NotFound("metal_holding", "")
		}
		return nil, fmt.Errorf("scan metal holding: %w", err)
	}
	var err error
	if m.Grams, err = decimal.NewFromString(grams); err != nil {
		return nil, fmt.Errorf("parse grams: %w", err)
	}
	if m.CostBasis, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parse cost_basis: %w", err)
	}
	m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &m, nil
}

func (r *MetalHoldingRepository) ListByWallet(walletID uuid.UUID) ([]wallet.MetalHolding, error) {
	rows, err := r.db.Query(
		`SELECT wallet_id, metal, quote_symbol, grams, cost_basis, cost_currency, updated_at FROM metal_holdings WHERE wallet_id = ?`,
		walletID,
	)
	if err != nil {
		return nil, fmt.Errorf("list metal holdings: %w", err)
	}
	defer rows.Close()

	var out []wallet.MetalHolding
	for rows.Next() {
		var m wallet.MetalHolding
		var grams, cost string
		var updatedAt int64
		if err := rows.Scan(&m.WalletID, &m.Metal, &m.QuoteSymbol, &grams, &cost, &m.CostCurrency, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan metal holding: %w", err)
		}
		if m.Grams, err = decimal.NewFromString(grams); err != nil {
			return nil, fmt.Errorf("parse grams: %w", err)
		}
		if m.CostBasis, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("parse cost_basis: %w", err)
		}
		m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListAllQuoteSymbols returns the distinct quote_symbol values across every
// metal holding, used by the quote-refresh scheduler job to know which
// spot-price symbols to sync.
func (r *MetalHoldingRepository) ListAllQuoteSymbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT quote_symbol FROM metal_holdings`)
	if err != nil {
		return nil, fmt.Errorf("list metal quote symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan quote symbol: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SellResult carries the realized P&L of a partial or full metal sale.
type SellResult struct {
	ProceedsAmount decimal.Decimal
	RealizedGain   decimal.Decimal
	Currency       domain.Currency
	Deleted        bool
}

// Sell reduces a holding's grams by gramsSold, reducing cost_basis by the
// same proportion and realizing P&L = proceeds - proportional_cost. If the
// full position is sold the row is deleted.
func (r *MetalHoldingRepository) Sell(walletID uuid.UUID, metal domain.MetalType, gramsSold, pricePerGram decimal.Decimal, priceCCY domain.Currency) (SellResult, error) {
	h, err := r.Get(walletID, metal)
	if err != nil {
		return SellResult{}, err
	}
	if gramsSold.GreaterThan(h.Grams) {
		return SellResult{}, walleterr.Validation("cannot sell %s g of %s, only %s g held", gramsSold, metal, h.Grams)
	}

	fraction := gramsSold.Div(h.Grams)
	proportionalCost := domain.RoundCash(h.CostBasis.Mul(fraction))
	proceeds := domain.RoundCash(gramsSold.Mul(pricePerGram))
	gain := proceeds.Sub(proportionalCost)

	remainingGrams := domain.RoundQuantity(h.Grams.Sub(gramsSold))
	remainingCost := domain.RoundCash(h.CostBasis.Sub(proportionalCost))

	if remainingGrams.IsZero() {
		if _, err := r.db.Exec(`DELETE FROM metal_holdings WHERE wallet_id = ? AND metal = ?`, walletID, metal); err != nil {
			return SellResult{}, fmt.Errorf("delete sold-out metal holding: %w", err)
		}
		return SellResult{ProceedsAmount: proceeds, RealizedGain: gain, Currency: priceCCY, Deleted: true}, nil
	}

	_, err = r.db.Exec(
		`UPDATE metal_holdings SET grams = ?, cost_basis = ?, updated_at = ? WHERE wallet_id = ? AND metal = ?`,
		remainingGrams.String(), remainingCost.String(), time.Now().Unix(), walletID, metal,
	)
	if err != nil {
		return SellResult{}, fmt.Errorf("update metal holding after sell: %w", err)
	}
	return SellResult{ProceedsAmount: proceeds, RealizedGain: gain, Currency: priceCCY}, nil
}
