package di

import (
	"github.com/robfig/cron/v3"

	"github.com/aristath/walletcore/internal/cache"
	"github.com/aristath/walletcore/internal/database"
	"github.com/aristath/walletcore/internal/events"
	"github.com/aristath/walletcore/internal/quotes"
	"github.com/aristath/walletcore/internal/ratelimit"
	"github.com/aristath/walletcore/internal/security"
	"github.com/aristath/walletcore/internal/session"
	"github.com/aristath/walletcore/internal/wallet/aggregate"
	"github.com/aristath/walletcore/internal/wallet/snapshot"
	"github.com/aristath/walletcore/internal/wallet/store"
)

// Container holds every wired dependency the wallet service needs, built up
// in three stages (InitializeDatabases -> InitializeRepositories ->
// InitializeServices) and assembled once by Wire.
type Container struct {
	// Databases
	LedgerDB *database.DB
	WalletDB *database.DB

	// Repositories
	Users             *store.UserRepository
	Banks             *store.BankRepository
	Wallets           *store.WalletRepository
	DepositAccounts   *store.DepositAccountRepository
	BrokerageAccounts *store.BrokerageAccountRepository
	Instruments       *store.InstrumentRepository
	Holdings          *store.HoldingRepository
	BrokerageEvents   *store.BrokerageEventRepository
	Transactions      *store.TransactionRepository
	CapitalGains      *store.CapitalGainRepository
	Metals            *store.MetalHoldingRepository
	RealEstates       *store.RealEstateRepository
	RealEstatePrices  *store.RealEstatePriceRepository
	Debts             *store.DebtRepository
	RecurringExpenses *store.RecurringExpenseRepository
	YearGoals         *store.YearGoalRepository
	UserNotes         *store.UserNoteRepository
	Snapshots         *store.SnapshotRepository
	Loader            *store.Loader

	// Pure computational components (no I/O, but constructed once so
	// handlers share a single instance)
	SnapshotEngine *snapshot.Engine
	Aggregator     *aggregate.Manager

	// Cross-cutting services
	AccountCodec  *security.AccountNumberCodec
	QuoteCache    *cache.QuoteCache
	LoginThrottle *ratelimit.Throttle
	Events        *events.Bus
	Integrity     *database.IntegrityValidator

	// Collaborators (narrow capability interfaces)
	Quotes  quotes.Source
	Session session.Gate

	// Scheduler
	Cron *cron.Cron
}

// Close stops the cron scheduler and releases every database handle opened
// by InitializeDatabases. Individual close errors are discarded, so
// shutdown always completes.
func (c *Container) Close() {
	if c.Cron != nil {
		c.Cron.Stop()
	}
	if c.LedgerDB != nil {
		_ = c.LedgerDB.Close()
	}
	if c.WalletDB != nil {
		_ = c.WalletDB.Close()
	}
}
