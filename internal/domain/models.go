// Package domain holds value types shared across the wallet service:
// currencies, enums mirrored from the catalog, and small decimal helpers.
// It has no infrastructure dependencies.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO-4217-ish currency code. The catalog is open (any
// uppercase 3-letter code is accepted at the storage layer) but these are
// the currencies exercised by the reference FX source.
type Currency string

const (
	PLN Currency = "PLN"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

// AccountType enumerates DepositAccount kinds.
type AccountType string

const (
	AccountCurrent    AccountType = "CURRENT"
	AccountSavings    AccountType = "SAVINGS"
	AccountBrokerage  AccountType = "BROKERAGE"
	AccountCredit     AccountType = "CREDIT"
)

// BrokerageEventKind enumerates the BrokerageEvent facts replayed by the
// Holding Projector.
type BrokerageEventKind string

const (
	EventBuy   BrokerageEventKind = "BUY"
	EventSell  BrokerageEventKind = "SELL"
	EventSplit BrokerageEventKind = "SPLIT"
	EventDiv   BrokerageEventKind = "DIV"
)

// CapitalGainKind enumerates the classification a Transaction can carry.
type CapitalGainKind string

const (
	GainDepositInterest     CapitalGainKind = "DEPOSIT_INTEREST"
	GainBrokerRealizedPnL   CapitalGainKind = "BROKER_REALIZED_PNL"
	GainBrokerDividend      CapitalGainKind = "BROKER_DIVIDEND"
	GainMetalRealizedPnL    CapitalGainKind = "METAL_REALIZED_PNL"
	GainRealEstateRealized  CapitalGainKind = "REAL_ESTATE_REALIZED_PNL"
)

// InstrumentType enumerates the tradable symbol catalog.
type InstrumentType string

const (
	InstrumentStock  InstrumentType = "STOCK"
	InstrumentETF    InstrumentType = "ETF"
	InstrumentBond   InstrumentType = "BOND"
	InstrumentFund   InstrumentType = "FUND"
	InstrumentCrypto InstrumentType = "CRYPTO"
)

// PropertyType enumerates RealEstate kinds.
type PropertyType string

const (
	PropertyApartment PropertyType = "APARTMENT"
	PropertyLand      PropertyType = "LAND"
	PropertyHouse     PropertyType = "HOUSE"
)

// MetalType enumerates the precious metals tracked by MetalHolding.
type MetalType string

const (
	MetalGold      MetalType = "GOLD"
	MetalSilver    MetalType = "SILVER"
	MetalPlatinum  MetalType = "PLATINUM"
	MetalPalladium MetalType = "PALLADIUM"
)

// TransactionStatus enumerates the lifecycle of a cash Transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionCancelled TransactionStatus = "CANCELLED"
)

// TroyOunceGrams is the number of grams in one troy ounce, used by the
// Metal valuator to convert grams held into ounces quoted.
const TroyOunceGrams = 31.1034768

// Zero is the canonical zero decimal, scale-agnostic.
var Zero = decimal.Zero

// MonthKey formats a time.Time as the "YYYY-MM" key used by snapshots.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// LastNMonthKeys returns the N most recent month keys ending at (and
// including) the month containing `from`, oldest first.
func LastNMonthKeys(from time.Time, n int) []string {
	keys := make([]string, 0, n)
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		keys = append(keys, MonthKey(cursor))
		cursor = cursor.AddDate(0, -1, 0)
	}
	// reverse to oldest-first
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys
}

// ParseMonthKey validates and parses a "YYYY-MM" key.
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month_key %q: %w", key, err)
	}
	return t, nil
}

// RoundCash rounds a decimal to the scale-2 precision used for cash amounts,
// using banker's rounding as the final step only.
func RoundCash(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// RoundQuantity rounds a decimal to the scale-10 precision used for holding
// quantities.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(10)
}

// RoundCost rounds a decimal to the scale-8 precision used for avg_cost and
// prices.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(8)
}
