// Package di wires database connections, repositories and services into a
// single Container used by cmd/server.
package di

import (
	"fmt"

	"github.com/aristath/walletcore/internal/config"
	"github.com/aristath/walletcore/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the two SQLite databases the wallet service
// needs and applies their schemas:
//
//  1. ledger.db - immutable financial audit trail (brokerage events,
//     transactions, capital gains). Uses ProfileLedger: fsync on every
//     write, never auto-vacuumed, because every holding and balance is
//     derived from these rows by full replay.
//  2. wallet.db - current mutable state plus frozen monthly snapshots
//     (everything else). Uses ProfileStandard.
//
// Cleanup on error closes every database opened so far before returning.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	ledgerDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/ledger.db",
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	walletDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/wallet.db",
		Profile: database.ProfileStandard,
		Name:    "wallet",
	})
	if err != nil {
		ledgerDB.Close()
		return nil, fmt.Errorf("failed to initialize wallet database: %w", err)
	}
	container.WalletDB = walletDB

	for _, db := range []*database.DB{ledgerDB, walletDB} {
		if err := db.Migrate(); err != nil {
			ledgerDB.Close()
			walletDB.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Msg("ledger and wallet databases initialized and schemas applied")

	return container, nil
}
