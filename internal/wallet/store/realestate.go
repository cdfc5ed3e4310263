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

// RealEstateRepository manages the real_estates table (wallet.db).
type RealEstateRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRealEstateRepository(db *sql.DB, log zerolog.Logger) *RealEstateRepository {
	return &RealEstateRepository{db: db, log: log.With().Str("repo", "real_estate").Logger()}
}

func (r *RealEstateRepository) Create(p *wallet.RealEstate) error {
	p.CreatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO real_estates (id, wallet_id, name, type, country, city, area_m2, purchase_price, purchase_currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.WalletID, p.Name, p.Type, p.Country, p.City, p.AreaM2.String(), p.PurchasePrice.String(), p.PurchaseCurrency, p.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create real estate: %w", err)
	}
	return nil
}

func (r *RealEstateRepository) GetByID(id uuid.UUID) (*wallet.RealEstate, error) {
	row := r.db.QueryRow(
		`SELECT id, wallet_id, name, type, country, city, area_m2, purchase_price, purchase_currency, created_at FROM real_estates WHERE id = ?`,
		id,
	)
	return scanRealEstate(row, id)
}

func scanRealEstate(row *sql.Row, ref interface{}) (*wallet.RealEstate, error) {
	var p wallet.RealEstate
	var area, price string
	var createdAt int64
	if err := row.Scan(&p.ID, &p.WalletID, &p.Name, &p.Type, &p.Country, &p.City, &area, &price, &p.PurchaseCurrency, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, walleterr.NotFound("real_estate", ref)
		}
		return nil, fmt.Errorf("scan real estate: %w", err)
	}
	var err error
	if p.AreaM2, err = decimal.NewFromString(area); err != nil {
		return nil, fmt.Errorf("parse area_m2: %w", err)
	}
	if p.PurchasePrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse purchase_price: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

func (r *RealEstateRepository) ListByWallet(walletID uuid.UUID) ([]wallet.RealEstate, error) {
	rows, err := r.db.Query(
		`SELECT id, wallet_id, name, type, country, city, area_m2, purchase_price, purchase_currency, created_at FROM real_estates WHERE wallet_id = ? ORDER BY name`,
		walletID,
	)
	if err != nil {
		return nil, fmt.Errorf("list real estates: %w", err)
	}
	defer rows.Close()

	var out []wallet.RealEstate
	for rows.Next() {
		var p wallet.RealEstate
		var area, price string
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.WalletID, &p.Name, &p.Type, &p.Country, &p.City, &area, &price, &p.PurchaseCurrency, &createdAt); err != nil {
			return nil, fmt.Errorf("scan real estate: %w", err)
		}
		if p.AreaM2, err = decimal.NewFromString(area); err != nil {
			return nil, fmt.Errorf("parse area_m2: %w", err)
		}
		if p.PurchasePrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse purchase_price: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *RealEstateRepository) Delete(id uuid.UUID) error {
	res, err := r.db.Exec(`DELETE FROM real_estates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete real estate: %w", err)
	}
	return rowsAffectedOrNotFound(res, "real_estate")
}

// RealEstatePriceRepository manages the real_estate_prices reference
// catalog (wallet.db).
type RealEstatePriceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRealEstatePriceRepository(db *sql.DB, log zerolog.Logger) *RealEstatePriceRepository {
	return &RealEstatePriceRepository{db: db, log: log.With().Str("repo", "real_estate_price").Logger()}
}

func (r *RealEstatePriceRepository) Create(p *wallet.RealEstatePrice) error {
	_, err := r.db.Exec(
		`INSERT INTO real_estate_prices (id, type, country, city, currency, price_per_m2, effective_date) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Type, nullableString(p.Country), nullableString(p.City), p.Currency, p.PricePerM2.String(), p.EffectiveDate.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create real estate price: %w", err)
	}
	return nil
}

// Lookup performs the 4-step fallback chain, newest-first within
// each step: exact (type,country,city,currency) -> (type,country,*,currency)
// -> (type,*,*,currency) -> any (type,*,*,*). The final step ignores
// currency, so the matched row's own currency is returned with the price.
// It matches the valuate.PriceCatalogLookup signature so it can be passed
// directly.
func (r *RealEstatePriceRepository) Lookup(propType domain.PropertyType, country, city string, ccy domain.Currency) (decimal.Decimal, domain.Currency, bool) {
	steps := []struct {
		query string
		args  []interface{}
	}{
		{
			`SELECT price_per_m2, currency FROM real_estate_prices WHERE type = ? AND country = ? AND city = ? AND currency = ? ORDER BY effective_date DESC LIMIT 1`,
			[]interface{}{propType, country, city, ccy},
		},
		{
			`SELECT price_per_m2, currency FROM real_estate_prices WHERE type = ? AND country = ? AND (city IS NULL OR city = '') AND currency = ? ORDER BY effective_date DESC LIMIT 1`,
			[]interface{}{propType, country, ccy},
		},
		{
			`SELECT price_per_m2, currency FROM real_estate_prices WHERE type = ? AND (country IS NULL OR country = '') AND (city IS NULL OR city = '') AND currency = ? ORDER BY effective_date DESC LIMIT 1`,
			[]interface{}{propType, ccy},
		},
		{
			`SELECT price_per_m2, currency FROM real_estate_prices WHERE type = ? AND (country IS NULL OR country = '') AND (city IS NULL OR city = '') ORDER BY effective_date DESC LIMIT 1`,
			[]interface{}{propType},
		},
	}

	for _, step := range steps {
		var price, matchedCCY string
		err := r.db.QueryRow(step.query, step.args...).Scan(&price, &matchedCCY)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			r.log.Error().Err(err).Msg("real estate price lookup step failed")
			continue
		}
		val, err := decimal.NewFromString(price)
		if err != nil {
			r.log.Error().Err(err).Msg("real estate price parse failed")
			continue
		}
		return val, domain.Currency(matchedCCY), true
	}
	return decimal.Decimal{}, "", false
}

// RealEstateSellResult mirrors MetalHoldingRepository's SellResult shape for the
// real-estate disposal path: a property sale is whole (not fractional), so
// Sell always deletes the row.
type RealEstateSellResult struct {
	ProceedsAmount decimal.Decimal
	RealizedGain   decimal.Decimal
	Currency       domain.Currency
}

// Sell removes a property and reports the realized gain against its
// recorded purchase price, converted to the sale currency by the caller
// before salePrice is passed in (the core never converts currency
// itself). A property is disposed of in full; there is no partial-sale case
// analogous to MetalHoldingRepository.Sell.
func (r *RealEstateRepository) Sell(id uuid.UUID, salePrice decimal.Decimal, saleCCY domain.Currency) (RealEstateSellResult, error) {
	p, err := r.GetByID(id)
	if err != nil {
		return RealEstateSellResult{}, err
	}
	if p.PurchaseCurrency != saleCCY {
		return RealEstateSellResult{}, walleterr.Validation(
			"sale currency %s does not match purchase currency %s; convert before selling", saleCCY, p.PurchaseCurrency)
	}
	gain := domain.RoundCash(salePrice.Sub(p.PurchasePrice))
	if err := r.Delete(id); err != nil {
		return RealEstateSellResult{}, err
	}
	return RealEstateSellResult{ProceedsAmount: domain.RoundCash(salePrice), RealizedGain: gain, Currency: saleCCY}, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
