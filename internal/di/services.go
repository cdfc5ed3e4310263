package di

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/cache"
	"github.com/aristath/walletcore/internal/config"
	"github.com/aristath/walletcore/internal/database"
	"github.com/aristath/walletcore/internal/events"
	"github.com/aristath/walletcore/internal/quotes"
	"github.com/aristath/walletcore/internal/ratelimit"
	"github.com/aristath/walletcore/internal/security"
	"github.com/aristath/walletcore/internal/session"
	"github.com/aristath/walletcore/internal/wallet/aggregate"
	"github.com/aristath/walletcore/internal/wallet/snapshot"
)

// quoteCacheTTL bounds how long a fetched quote is trusted before the
// aggregator treats it as missing rather than stale.
const quoteCacheTTL = 15 * time.Minute

// InitializeServices wires every cross-cutting and domain service on top of
// the repositories built by InitializeRepositories. Order matters only where
// a later service depends on an earlier one's container field.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.SnapshotEngine = snapshot.New(container.Snapshots, log)
	container.Aggregator = aggregate.New()

	codec, err := newAccountCodec(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize account number codec: %w", err)
	}
	container.AccountCodec = codec

	container.QuoteCache = cache.New(quoteCacheTTL)
	container.LoginThrottle = ratelimit.New(ratelimit.DefaultConfig())
	container.Events = events.NewBus(log)
	container.Integrity = database.NewIntegrityValidator(container.WalletDB.Conn(), container.LedgerDB.Conn())

	container.Quotes = quotes.NewHTTPClient(cfg.QuotesServiceURL)
	if cfg.DevMode {
		// Local dev runs without the session service; trust the header.
		container.Session = session.HeaderGate{}
	} else {
		container.Session = session.NewHTTPClient(cfg.SessionServiceURL)
	}

	container.Cron = cron.New(cron.WithLocation(time.UTC))

	log.Info().Msg("wallet services initialized")
	return nil
}

// newAccountCodec derives the account-number encryption codec from the
// hex-encoded data encryption key in config. In dev mode a missing key is
// tolerated with a fixed all-zero 32-byte key, since local data is
// disposable; in any other mode a missing or malformed key is fatal.
func newAccountCodec(cfg *config.Config) (*security.AccountNumberCodec, error) {
	keyHex := cfg.EncryptionKeyHex
	if keyHex == "" {
		if !cfg.DevMode {
			return nil, fmt.Errorf("WALLET_ENCRYPTION_KEY is required outside dev mode")
		}
		return security.NewAccountNumberCodec(make([]byte, 32))
	}

	dek, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("WALLET_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(dek) != 32 {
		return nil, fmt.Errorf("WALLET_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(dek))
	}
	return security.NewAccountNumberCodec(dek)
}
