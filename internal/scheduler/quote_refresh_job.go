package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/quotes"
	"github.com/aristath/walletcore/internal/wallet/store"
)

// QuoteRefreshJob triggers a daily candle sync for every traded instrument
// and metal, so the market-data collaborator has fresh data before the
// Wallet Manager or the monthly snapshot job next ask for quotes.
type QuoteRefreshJob struct {
	instruments *store.InstrumentRepository
	metals      *store.MetalHoldingRepository
	quoteSource quotes.Source
	log         zerolog.Logger
}

func NewQuoteRefreshJob(instruments *store.InstrumentRepository, metals *store.MetalHoldingRepository, quoteSource quotes.Source, log zerolog.Logger) *QuoteRefreshJob {
	return &QuoteRefreshJob{
		instruments: instruments, metals: metals, quoteSource: quoteSource,
		log: log.With().Str("job", "quote_refresh").Logger(),
	}
}

func (j *QuoteRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	instruments, err := j.instruments.List()
	if err != nil {
		return err
	}
	metalSymbols, err := j.metals.ListAllQuoteSymbols()
	if err != nil {
		return err
	}

	var synced, failed int
	for _, i := range instruments {
		if i.QuoteSymbol == "" {
			continue
		}
		if err := j.quoteSource.SyncDailyCandles(ctx, i.QuoteSymbol); err != nil {
			j.log.Warn().Err(err).Str("symbol", i.QuoteSymbol).Msg("candle sync failed")
			failed++
			continue
		}
		synced++
	}
	for _, s := range metalSymbols {
		if err := j.quoteSource.SyncDailyCandles(ctx, s); err != nil {
			j.log.Warn().Err(err).Str("symbol", s).Msg("candle sync failed")
			failed++
			continue
		}
		synced++
	}

	j.log.Info().Int("synced", synced).Int("failed", failed).Msg("quote refresh complete")
	return nil
}

func (j *QuoteRefreshJob) Name() string {
	return "quote_refresh"
}
