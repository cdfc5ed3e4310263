// Package main is the entry point for the wallet service: the valuation
// core (Wallet Manager aggregator, Monthly Snapshot engine, Holding
// Projector) behind an HTTP API, backed by two SQLite databases and two
// external collaborators (session/auth, market data) reached only through
// narrow capability interfaces.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/walletcore/internal/config"
	"github.com/aristath/walletcore/internal/di"
	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/scheduler"
	"github.com/aristath/walletcore/internal/server"
	"github.com/aristath/walletcore/internal/wallet/handlers"
	"github.com/aristath/walletcore/pkg/logger"
)

func main() {
	var dataDirFlag string
	flag.StringVar(&dataDirFlag, "data-dir", "", "Database directory path (overrides WALLET_DATA_DIR environment variable)")
	flag.Parse()

	cfg, err := config.Load(dataDirFlag)
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	log.Info().Msg("starting wallet service")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire dependencies")
	}
	defer container.Close()

	h := handlers.New(container, log)
	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		DevMode:  cfg.DevMode,
		Handlers: h,
	})

	monitor := server.NewStatusMonitor(container.Events, h.HealthSnapshot, log)
	monitor.Start(15 * time.Minute)

	jobs := map[string]scheduler.Job{
		"0 3 * * *":    scheduler.NewMonthlySnapshotJob(container.Wallets, container.Loader, container.SnapshotEngine, container.Instruments, container.Metals, container.Quotes, domain.PLN, log),
		"*/15 * * * *": scheduler.NewQuoteRefreshJob(container.Instruments, container.Metals, container.Quotes, log),
		"0 4 * * 1":    scheduler.NewIntegrityCheckJob(container.Integrity, container.Events, log),
	}
	if err := scheduler.Register(container.Cron, log, jobs); err != nil {
		log.Fatal().Err(err).Msg("failed to register scheduled jobs")
	}
	container.Cron.Start()
	log.Info().Msg("scheduler started")

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start http server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("http server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	stopCtx := container.Cron.Stop()
	<-stopCtx.Done()

	log.Info().Msg("wallet service stopped")
}
