package valuate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
)

func dec(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestCash_MissingRateFlagsNeedsReview(t *testing.T) {
	accounts := []CashAccount{
		{Currency: domain.USD, Available: dec("100")},
		{Currency: domain.EUR, Available: dec("50")}, // no rate supplied
	}
	res := Cash(accounts, domain.PLN, fx.Rates{domain.USD: dec("1"), domain.PLN: dec("4")})
	assert.True(t, dec("400").Equal(res.Total))
	assert.True(t, res.Health.NeedsReview)
}

func TestMetal_QuoteValuation(t *testing.T) {
	// 31.1034768 g of gold is exactly one quoted troy ounce
	holdings := []MetalHolding{
		{Name: "gold bar", Metal: domain.MetalGold, QuoteSymbol: "XAUUSD", Grams: dec("31.1034768")},
	}
	quotes := fx.Quotes{"XAUUSD": {Price: dec("2000"), Currency: domain.USD}}
	rates := fx.Rates{domain.USD: dec("1"), domain.PLN: dec("4.0")}

	res := Metal(holdings, domain.PLN, rates, quotes)
	require.Len(t, res.Items, 1)
	assert.True(t, dec("8000.00").Equal(res.Items[0].Value))
	assert.Equal(t, 0, res.Health.MissingQuotes)
}

func TestMetal_FallsBackToCostBasis(t *testing.T) {
	holdings := []MetalHolding{
		{Name: "silver coins", Metal: domain.MetalSilver, QuoteSymbol: "XAGUSD", Grams: dec("100"), CostBasis: dec("500"), CostCurrency: domain.USD},
	}
	quotes := fx.Quotes{} // no quote available
	rates := fx.Rates{domain.USD: dec("1")}

	res := Metal(holdings, domain.USD, rates, quotes)
	require.Len(t, res.Items, 1)
	assert.True(t, dec("500").Equal(res.Items[0].Value))
	assert.Equal(t, 1, res.Health.MissingQuotes)
}

func TestRealEstate_FallsBackToPurchasePrice(t *testing.T) {
	assets := []RealEstateAsset{
		{Name: "flat", City: "Warsaw", Type: domain.PropertyApartment, AreaM2: dec("50"), PurchasePrice: dec("300000"), PurchaseCurrency: domain.PLN},
	}
	noMatch := func(domain.PropertyType, string, string, domain.Currency) (decimal.Decimal, domain.Currency, bool) {
		return decimal.Decimal{}, "", false
	}
	res := RealEstate(assets, domain.PLN, fx.Rates{}, noMatch)
	require.Len(t, res.Items, 1)
	assert.True(t, dec("300000").Equal(res.Items[0].Value))
	assert.Equal(t, 1, res.Health.MissingPrice)
}

func TestRealEstate_UsesCatalogPriceWhenFound(t *testing.T) {
	assets := []RealEstateAsset{
		{Name: "flat", City: "Warsaw", Type: domain.PropertyApartment, AreaM2: dec("50"), PurchasePrice: dec("1"), PurchaseCurrency: domain.PLN},
	}
	match := func(domain.PropertyType, string, string, domain.Currency) (decimal.Decimal, domain.Currency, bool) {
		return dec("10000"), domain.PLN, true
	}
	res := RealEstate(assets, domain.PLN, fx.Rates{}, match)
	require.Len(t, res.Items, 1)
	assert.True(t, dec("500000").Equal(res.Items[0].Value))
	assert.Equal(t, 0, res.Health.MissingPrice)
}

func TestBrokerage_ZeroCostGuard(t *testing.T) {
	holdings := []HoldingPosition{
		{Symbol: "FREE", QuoteSymbol: "FREE", Quantity: dec("10"), AvgCost: domain.Zero, ReportCCY: domain.USD},
	}
	quotes := fx.Quotes{"FREE": {Price: dec("5"), Currency: domain.USD}}
	res := Brokerage(nil, holdings, domain.USD, fx.Rates{domain.USD: dec("1")}, quotes)
	require.Len(t, res.Positions, 1)
	assert.True(t, res.Positions[0].PnLPct.Equal(domain.Zero), "zero cost basis must guard pnl_pct to zero")
}
