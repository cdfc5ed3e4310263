package handlers

import (
	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/cache"
	"github.com/aristath/walletcore/internal/di"
	walletevents "github.com/aristath/walletcore/internal/events"
	"github.com/aristath/walletcore/internal/quotes"
	"github.com/aristath/walletcore/internal/security"
	"github.com/aristath/walletcore/internal/session"
	"github.com/aristath/walletcore/internal/wallet/aggregate"
	"github.com/aristath/walletcore/internal/wallet/snapshot"
	"github.com/aristath/walletcore/internal/wallet/store"
)

// Handlers groups every wallet-service HTTP endpoint behind one
// constructor-injected struct: a flat set of collaborator fields, a
// scoped logger, and one RegisterRoutes call that mounts every resource
// group.
type Handlers struct {
	users             *store.UserRepository
	wallets           *store.WalletRepository
	banks             *store.BankRepository
	deposits          *store.DepositAccountRepository
	brokerages        *store.BrokerageAccountRepository
	instruments       *store.InstrumentRepository
	holdings          *store.HoldingRepository
	brokerageEvents   *store.BrokerageEventRepository
	transactions      *store.TransactionRepository
	capitalGains      *store.CapitalGainRepository
	metals            *store.MetalHoldingRepository
	realEstates       *store.RealEstateRepository
	rePrices          *store.RealEstatePriceRepository
	debts             *store.DebtRepository
	recurring         *store.RecurringExpenseRepository
	yearGoals         *store.YearGoalRepository
	notes             *store.UserNoteRepository
	loader            *store.Loader

	snapshotEngine *snapshot.Engine
	aggregator     *aggregate.Manager
	accountCodec   *security.AccountNumberCodec
	quoteSource    quotes.Source
	quoteCache     *cache.QuoteCache
	sessionGate    session.Gate
	bus            *walletevents.Bus

	log zerolog.Logger
}

// New builds a Handlers from a fully wired container.
func New(c *di.Container, log zerolog.Logger) *Handlers {
	return &Handlers{
		users: c.Users, wallets: c.Wallets, banks: c.Banks,
		deposits: c.DepositAccounts, brokerages: c.BrokerageAccounts,
		instruments: c.Instruments, holdings: c.Holdings, brokerageEvents: c.BrokerageEvents,
		transactions: c.Transactions, capitalGains: c.CapitalGains,
		metals: c.Metals, realEstates: c.RealEstates, rePrices: c.RealEstatePrices,
		debts: c.Debts, recurring: c.RecurringExpenses, yearGoals: c.YearGoals, notes: c.UserNotes,
		loader: c.Loader,

		snapshotEngine: c.SnapshotEngine, aggregator: c.Aggregator, accountCodec: c.AccountCodec,
		quoteSource: c.Quotes, quoteCache: c.QuoteCache, sessionGate: c.Session, bus: c.Events,

		log: log.With().Str("component", "wallet_handlers").Logger(),
	}
}
