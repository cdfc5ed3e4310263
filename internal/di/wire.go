package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/config"
)

// Wire initializes all dependencies and returns a fully configured
// container, orchestrating the three build stages in order:
//
//  1. InitializeDatabases - opens ledger.db and wallet.db, applies schemas.
//  2. InitializeRepositories - constructs every sqlite-backed repository.
//  3. InitializeServices - constructs the pure computational components,
//     security/cache/rate-limit services and external collaborators.
//
// On any failure, every database opened so far is closed before returning.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeRepositories(container, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := InitializeServices(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	log.Info().Msg("dependency injection wiring completed successfully")

	return container, nil
}
