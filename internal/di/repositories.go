// Package di wires database connections, repositories and services into a
// single Container used by cmd/server.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/wallet/store"
)

// InitializeRepositories constructs every sqlite-backed repository against
// the two databases opened by InitializeDatabases, plus the bulk-loader
// that feeds the Wallet Manager aggregator. wallet.db holds current
// mutable state; ledger.db holds the immutable brokerage-event and
// transaction audit trail.
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	walletConn := container.WalletDB.Conn()
	ledgerConn := container.LedgerDB.Conn()

	container.Users = store.NewUserRepository(walletConn, log)
	container.Banks = store.NewBankRepository(walletConn, log)
	container.Wallets = store.NewWalletRepository(walletConn, log)
	container.DepositAccounts = store.NewDepositAccountRepository(walletConn, log)
	container.BrokerageAccounts = store.NewBrokerageAccountRepository(walletConn, log)
	container.Instruments = store.NewInstrumentRepository(walletConn, log)
	container.Holdings = store.NewHoldingRepository(walletConn, log)
	container.Metals = store.NewMetalHoldingRepository(walletConn, log)
	container.RealEstates = store.NewRealEstateRepository(walletConn, log)
	container.RealEstatePrices = store.NewRealEstatePriceRepository(walletConn, log)
	container.Debts = store.NewDebtRepository(walletConn, log)
	container.RecurringExpenses = store.NewRecurringExpenseRepository(walletConn, log)
	container.YearGoals = store.NewYearGoalRepository(walletConn, log)
	container.UserNotes = store.NewUserNoteRepository(walletConn, log)
	container.Snapshots = store.NewSnapshotRepository(walletConn, log)

	container.BrokerageEvents = store.NewBrokerageEventRepository(ledgerConn, log)
	container.Transactions = store.NewTransactionRepository(ledgerConn, log)
	container.CapitalGains = store.NewCapitalGainRepository(ledgerConn, log)

	container.Loader = store.NewLoader(
		walletConn,
		ledgerConn,
		container.Wallets,
		container.DepositAccounts,
		container.BrokerageAccounts,
		container.Instruments,
		container.Holdings,
		container.Metals,
		container.RealEstates,
		container.RealEstatePrices,
		container.Snapshots,
		log,
	)

	log.Info().Msg("wallet repositories initialized")
	return nil
}
