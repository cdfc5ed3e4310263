package scheduler

import (
	"context"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/quotes"
	"github.com/aristath/walletcore/internal/wallet/fx"
	"github.com/aristath/walletcore/internal/wallet/snapshot"
	"github.com/aristath/walletcore/internal/wallet/store"
)

// MonthlySnapshotJob materializes the current month's snapshot for every
// wallet in the system. One wallet's failure never aborts the batch; the
// remaining wallets still get their snapshots.
type MonthlySnapshotJob struct {
	wallets       *store.WalletRepository
	loader        *store.Loader
	engine        *snapshot.Engine
	instruments   *store.InstrumentRepository
	metals        *store.MetalHoldingRepository
	quoteSource   quotes.Source
	baseCurrency  domain.Currency
	log           zerolog.Logger
}

func NewMonthlySnapshotJob(
	wallets *store.WalletRepository,
	loader *store.Loader,
	engine *snapshot.Engine,
	instruments *store.InstrumentRepository,
	metals *store.MetalHoldingRepository,
	quoteSource quotes.Source,
	baseCurrency domain.Currency,
	log zerolog.Logger,
) *MonthlySnapshotJob {
	return &MonthlySnapshotJob{
		wallets: wallets, loader: loader, engine: engine, instruments: instruments,
		metals: metals, quoteSource: quoteSource, baseCurrency: baseCurrency,
		log: log.With().Str("job", "monthly_snapshot").Logger(),
	}
}

// Run fetches quotes once for every symbol used across every wallet, then
// creates the current month's snapshot for each wallet in turn. The quote
// fetch happens entirely before any snapshot transaction opens.
func (j *MonthlySnapshotJob) Run() error {
	monthKey := domain.MonthKey(time.Now())
	j.log.Info().Str("month_key", monthKey).Msg("starting monthly snapshot run")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	symbols, err := j.collectSymbols()
	if err != nil {
		return err
	}

	quotesResult, err := j.quoteSource.GetLatestQuotesForSymbols(ctx, symbols)
	if err != nil {
		j.log.Warn().Err(err).Msg("quote fetch failed, snapshotting without quotes")
		quotesResult = fx.Quotes{}
	}

	rates := ratesFromQuotes(quotesResult, j.baseCurrency)

	wallets, err := j.wallets.ListAll()
	if err != nil {
		return err
	}

	var created, failed int
	for _, w := range wallets {
		inputs, err := j.loader.BuildSnapshotInputs(w.ID, monthKey, rates, quotesResult)
		if err != nil {
			j.log.Error().Err(err).Str("wallet_id", w.ID.String()).Msg("failed to build snapshot inputs")
			failed++
			continue
		}
		if _, err := j.engine.Create(ctx, inputs); err != nil {
			j.log.Error().Err(err).Str("wallet_id", w.ID.String()).Msg("failed to create snapshot")
			failed++
			continue
		}
		created++
	}

	j.log.Info().Str("month_key", monthKey).Int("created", created).Int("failed", failed).Msg("monthly snapshot run complete")
	return nil
}

func (j *MonthlySnapshotJob) Name() string {
	return "monthly_snapshot"
}

// collectSymbols gathers every instrument and metal quote symbol the
// snapshot pass will need, so quotes are batch-fetched once.
func (j *MonthlySnapshotJob) collectSymbols() ([]string, error) {
	instruments, err := j.instruments.List()
	if err != nil {
		return nil, err
	}
	metalSymbols, err := j.metals.ListAllQuoteSymbols()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(instruments)+len(metalSymbols))
	var symbols []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		symbols = append(symbols, s)
	}
	for _, i := range instruments {
		add(i.QuoteSymbol)
	}
	for _, s := range metalSymbols {
		add(s)
	}
	return symbols, nil
}

// ratesFromQuotes extracts a currency-pair convention from the quote
// batch: a quote whose symbol equals a currency code (e.g. "USD", quoted
// in baseCurrency) is treated as that currency's FX rate against the
// snapshot's base, alongside ordinary instrument quotes returned in the
// same batch. The quote is base units per one CCY, so it is inverted into
// the CCY-per-pivot form fx.Convert expects, with base as the pivot.
func ratesFromQuotes(q fx.Quotes, base domain.Currency) fx.Rates {
	rates := fx.Rates{base: decimal.NewFromInt(1)}
	for symbol, quote := range q {
		if !looksLikeCurrencyCode(symbol) || quote.Price.IsZero() {
			continue
		}
		rates[domain.Currency(symbol)] = decimal.NewFromInt(1).Div(quote.Price)
	}
	return rates
}

// looksLikeCurrencyCode reports whether symbol looks like an ISO-4217 code
// (three uppercase letters) rather than a tradable instrument ticker, so
// the same quote batch can carry both FX rates and instrument prices.
func looksLikeCurrencyCode(symbol string) bool {
	if len(symbol) != 3 {
		return false
	}
	for _, r := range symbol {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
