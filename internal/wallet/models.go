// Package wallet implements the valuation core: entities and the
// Aggregator, Snapshot Engine and Holding Projector subsystems.
// Sub-packages (fx, holding, valuate, snapshot, aggregate)
// hold the pure computational pieces and store holds the repositories;
// this file holds the persisted shapes.
package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
)

// User is created inactive on registration and activated by a tokenized
// link. Deletion cascades to every Wallet owned by the user.
type User struct {
	ID        uuid.UUID
	Email     string
	Username  string
	Active    bool
	CreatedAt time.Time
}

// Wallet is a named container owned by a User. Its display name is unique
// per user.
type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	BaseCCY   domain.Currency
	CreatedAt time.Time
}

// Bank is a catalog row; name and short code are globally unique.
type Bank struct {
	ID        uuid.UUID
	Name      string
	ShortCode string
}

// DepositAccount is a cash account attached to a wallet and bank. The
// account number is never stored in the clear, only its ciphertext and a
// constant-time lookup fingerprint.
type DepositAccount struct {
	ID                uuid.UUID
	WalletID          uuid.UUID
	BankID            uuid.UUID
	Name              string
	Type              domain.AccountType
	Currency          domain.Currency
	AccountNumberEnc  []byte
	AccountNumberFP   []byte
	CreatedAt         time.Time
}

// DepositAccountBalance is the single balance row per DepositAccount.
// Both fields are non-negative.
type DepositAccountBalance struct {
	AccountID uuid.UUID
	Available decimal.Decimal
	Blocked   decimal.Decimal
}

// BrokerageAccount is a broker-side account, uniquely named per
// (wallet, bank).
type BrokerageAccount struct {
	ID        uuid.UUID
	WalletID  uuid.UUID
	BankID    uuid.UUID
	Name      string
	Currency  domain.Currency
	CreatedAt time.Time
}

// BrokerageDepositLink ties a BrokerageAccount to the DepositAccount that
// carries its cash in a given currency. At most one link per
// (brokerage, currency).
type BrokerageDepositLink struct {
	ID               uuid.UUID
	BrokerageID      uuid.UUID
	DepositAccountID uuid.UUID
	Currency         domain.Currency
}

// Instrument is a catalog row for a tradable symbol; symbol is globally
// unique.
type Instrument struct {
	ID       uuid.UUID
	Symbol   string
	MIC      string
	Type     domain.InstrumentType
	Currency domain.Currency
	// QuoteSymbol is the symbol passed to the market-data service; usually
	// equal to Symbol but can diverge for metals' spot-price tickers.
	QuoteSymbol string
}

// Holding is the derived (quantity, avg_cost) position of a
// BrokerageAccount in an Instrument. Unique per (account, instrument);
// both fields are non-negative and computed solely from the event stream.
type Holding struct {
	AccountID    uuid.UUID
	InstrumentID uuid.UUID
	Quantity     decimal.Decimal
	AvgCost      decimal.Decimal
	UpdatedAt    time.Time
}

// BrokerageEvent is an immutable (or admin-editable) fact describing one
// BUY/SELL/DIV/SPLIT for (brokerage_account, instrument, timestamp).
type BrokerageEvent struct {
	ID               uuid.UUID
	BrokerageID      uuid.UUID
	InstrumentID     uuid.UUID
	Kind             domain.BrokerageEventKind
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	Currency         domain.Currency
	SplitRatio       decimal.Decimal
	TradeAt          time.Time
	CreatedAt        time.Time
	LinkedTransactionID *uuid.UUID
}

// Transaction is a cash movement on a DepositAccount. Creating one updates
// the linked balance atomically.
type Transaction struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	Type            string
	Amount          decimal.Decimal
	BalanceBefore   decimal.Decimal
	BalanceAfter    decimal.Decimal
	Description     string
	Category        string
	Status          domain.TransactionStatus
	TransactionDate time.Time
	CreatedAt       time.Time
}

// CapitalGain classifies a Transaction as an optional side-effect; attached
// to exactly one Transaction.
type CapitalGain struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	Kind          domain.CapitalGainKind
	Amount        decimal.Decimal
	Currency      domain.Currency
	CreatedAt     time.Time
}

// MetalHolding is a (wallet, metal) unique row. Selling reduces grams,
// possibly to zero, at which point the row is deleted.
type MetalHolding struct {
	WalletID     uuid.UUID
	Metal        domain.MetalType
	QuoteSymbol  string
	Grams        decimal.Decimal
	CostBasis    decimal.Decimal
	CostCurrency domain.Currency
	UpdatedAt    time.Time
}

// RealEstate is a property on a wallet.
type RealEstate struct {
	ID               uuid.UUID
	WalletID         uuid.UUID
	Name             string
	Type             domain.PropertyType
	Country          string
	City             string
	AreaM2           decimal.Decimal
	PurchasePrice    decimal.Decimal
	PurchaseCurrency domain.Currency
	CreatedAt        time.Time
}

// RealEstatePrice is a reference price per m2 for (type, country?, city?,
// currency); history is kept, newest wins.
type RealEstatePrice struct {
	ID            uuid.UUID
	Type          domain.PropertyType
	Country       string
	City          string
	Currency      domain.Currency
	PricePerM2    decimal.Decimal
	EffectiveDate time.Time
}

// Debt is a self-explanatory value object on a wallet.
type Debt struct {
	ID          uuid.UUID
	WalletID    uuid.UUID
	Name        string
	Principal   decimal.Decimal
	Currency    domain.Currency
	InterestPct decimal.Decimal
	DueDate     *time.Time
}

// RecurringExpense is a self-explanatory value object on a wallet.
type RecurringExpense struct {
	ID         uuid.UUID
	WalletID   uuid.UUID
	Name       string
	Amount     decimal.Decimal
	Currency   domain.Currency
	Periodicity string
	Category   string
}

// YearGoal is a self-explanatory value object on a wallet.
type YearGoal struct {
	ID         uuid.UUID
	WalletID   uuid.UUID
	Year       int
	TargetAmt  decimal.Decimal
	Currency   domain.Currency
	Label      string
}

// UserNote belongs to a user, not a wallet.
type UserNote struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Body      string
	CreatedAt time.Time
}

// FxMonthlySnapshot is the singleton rate table captured for a given
// month_key.
type FxMonthlySnapshot struct {
	MonthKey string
	Rates    map[domain.Currency]decimal.Decimal
}

// DepositAccountMonthlySnapshot freezes a deposit account's available
// balance for a month.
type DepositAccountMonthlySnapshot struct {
	AccountID uuid.UUID
	MonthKey  string
	Currency  domain.Currency
	Available decimal.Decimal
}

// BrokerageAccountMonthlySnapshot freezes a brokerage account's cash and
// stock values for a month, in both source and wallet base currency.
type BrokerageAccountMonthlySnapshot struct {
	AccountID   uuid.UUID
	MonthKey    string
	Currency    domain.Currency
	Cash        decimal.Decimal
	Stocks      decimal.Decimal
	CashBase    decimal.Decimal
	StocksBase  decimal.Decimal
}

// MetalHoldingMonthlySnapshot freezes a metal holding's value for a month.
type MetalHoldingMonthlySnapshot struct {
	WalletID uuid.UUID
	Metal    domain.MetalType
	MonthKey string
	Currency domain.Currency
	Value    decimal.Decimal
}

// RealEstateMonthlySnapshot freezes a real estate value for a month.
type RealEstateMonthlySnapshot struct {
	RealEstateID uuid.UUID
	MonthKey     string
	Currency     domain.Currency
	Value        decimal.Decimal
}
