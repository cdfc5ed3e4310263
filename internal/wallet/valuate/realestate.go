package valuate

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
)

// RealEstateAsset is the minimal shape needed to value one property.
type RealEstateAsset struct {
	ID               uuid.UUID
	Name             string
	City             string
	Country          string
	Type             domain.PropertyType
	AreaM2           decimal.Decimal
	PurchasePrice    decimal.Decimal
	PurchaseCurrency domain.Currency
}

// PriceCatalogLookup returns the newest reference price per m2 for a
// property, walking the 4-step fallback chain. The final step is
// currency-agnostic, so the matched price's own currency is returned
// alongside it; callers must convert from that currency, not assume the
// one they asked for.
type PriceCatalogLookup func(propType domain.PropertyType, country, city string, ccy domain.Currency) (pricePerM2 decimal.Decimal, priceCCY domain.Currency, found bool)

// RealEstateItem is one valued line in RealEstateResult.Items. Items
// is always aligned 1:1 with the input assets (one item per asset, same
// order), so callers may key off ID rather than positional index.
type RealEstateItem struct {
	ID       uuid.UUID
	Name     string
	City     string
	Value    decimal.Decimal
	Currency domain.Currency
}

// RealEstateResult is the output of valuing a wallet's real estate.
type RealEstateResult struct {
	Total  decimal.Decimal
	Items  []RealEstateItem
	Health Health
}

// RealEstate values each property via the latest matching RealEstatePrice,
// following the fallback chain: exact (type,country,city,currency) ->
// (type,country,*,currency) -> (type,*,*,currency) -> any (type,*,*,*).
// The chain collapse itself lives in the lookup callback (repository
// concern); this function applies the result: area*price when found and
// area>0, else purchase_price with missing_price flagged.
func RealEstate(assets []RealEstateAsset, target domain.Currency, rates fx.Rates, lookup PriceCatalogLookup) RealEstateResult {
	total := domain.Zero
	var items []RealEstateItem
	var h Health

	for _, a := range assets {
		var valueSource decimal.Decimal
		var sourceCCY domain.Currency

		if pricePerM2, priceCCY, found := lookup(a.Type, a.Country, a.City, a.PurchaseCurrency); found && a.AreaM2.GreaterThan(domain.Zero) {
			valueSource = a.AreaM2.Mul(pricePerM2)
			sourceCCY = priceCCY
		} else {
			valueSource = a.PurchasePrice
			sourceCCY = a.PurchaseCurrency
			h.MissingPrice++
		}

		valueInTarget, ok := fx.Convert(valueSource, sourceCCY, target, rates)
		if !ok {
			h.NeedsReview = true
			valueInTarget = domain.Zero
		} else {
			total = total.Add(valueInTarget)
		}

		items = append(items, RealEstateItem{
			ID:       a.ID,
			Name:     a.Name,
			City:     a.City,
			Value:    domain.RoundCash(valueInTarget),
			Currency: target,
		})
	}

	return RealEstateResult{Total: domain.RoundCash(total), Items: items, Health: h}
}
