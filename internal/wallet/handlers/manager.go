package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	walletevents "github.com/aristath/walletcore/internal/events"
	"github.com/aristath/walletcore/internal/wallet/aggregate"
	"github.com/aristath/walletcore/internal/wallet/fx"
	"github.com/aristath/walletcore/internal/wallet/valuate"
	"github.com/aristath/walletcore/internal/walleterr"
)

const (
	defaultDashboardMonths = 6
	// maxTreeMonths bounds the snapshot window a single request may ask
	// for; ten years of monthly rows is already beyond what the UI plots.
	maxTreeMonths = 120
)

// treeRequest is the body for POST /wallet/manager/tree. LiveRates carries
// the current FX table the UI is displaying with; the core never sources
// FX itself.
type treeRequest struct {
	Months    int               `json:"months"`
	LiveRates map[string]string `json:"live_rates"`
}

// HandleGetUserDashboard serves GET /wallet/user/{user_id}: the full
// dashboard payload for the authenticated user's own wallets, using a
// fixed month window.
func (h *Handlers) HandleGetUserDashboard(w http.ResponseWriter, r *http.Request) {
	pathUserID, err := uuidParam(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}
	authUserID, ok := userIDFromContext(r)
	if !ok || authUserID != pathUserID {
		writeError(w, walleterr.Auth("cannot access another user's wallet dashboard"))
		return
	}

	trees, stale, err := h.buildTreesForUser(r.Context(), pathUserID, defaultDashboardMonths, fx.Rates{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletTreeDTOs(trees, stale))
}

// HandleBuildTree serves POST /wallet/manager/tree: the aggregator tree
// for the last N months, with caller-supplied live FX rates layered over
// the frozen per-month snapshots.
func (h *Handlers) HandleBuildTree(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}

	var req treeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	months := req.Months
	if months <= 0 {
		months = defaultDashboardMonths
	}
	if months > maxTreeMonths {
		months = maxTreeMonths
	}

	liveRates, err := parseRates(req.LiveRates)
	if err != nil {
		writeError(w, err)
		return
	}

	trees, stale, err := h.buildTreesForUser(r.Context(), userID, months, liveRates)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletTreeDTOs(trees, stale))
}

// buildTreesForUser bulk-loads everything needed for userID's wallets and
// composes trees, fetching quotes exactly once for this call. The
// returned stale set flags which symbols in this batch are aging
// anomalously relative to the rest of the batch, for the caller to surface
// as each entity's stale_quotes health flag.
func (h *Handlers) buildTreesForUser(ctx context.Context, userID uuid.UUID, months int, liveRates fx.Rates) ([]aggregate.WalletTree, map[string]bool, error) {
	monthKeys := domain.LastNMonthKeys(time.Now(), months)

	symbols, err := h.collectSymbols()
	if err != nil {
		return nil, nil, err
	}
	quotesResult, err := h.quotesViaCache(ctx, symbols)
	if err != nil {
		h.log.Warn().Err(err).Msg("quote fetch failed for tree build, degrading to cached/empty quotes")
	}
	stale := h.staleQuoteSet(symbols)

	in, err := h.loader.BuildAggregateInput(userID, monthKeys, liveRates, quotesResult)
	if err != nil {
		return nil, nil, err
	}
	return h.aggregator.BuildTrees(ctx, in), stale, nil
}

// snapshotRequest is the body for POST /wallet/manager/snapshot.
// MonthKey defaults to the current month when empty. LiveRates is the
// rate table to freeze for this month, supplied by the caller.
type snapshotRequest struct {
	WalletID  string            `json:"wallet_id"`
	MonthKey  string            `json:"month_key"`
	LiveRates map[string]string `json:"live_rates"`
}

// HandleCreateSnapshot serves POST /wallet/manager/snapshot: materializes
// the given (or current) month's snapshot for one wallet, idempotent per
// month_key.
func (h *Handlers) HandleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}

	var req snapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	walletID, err := parseUUIDField(req.WalletID, "wallet_id")
	if err != nil {
		writeError(w, err)
		return
	}

	wal, err := h.wallets.GetByID(walletID)
	if err != nil {
		writeError(w, err)
		return
	}
	if wal.UserID != userID {
		writeError(w, walleterr.Auth("cannot snapshot another user's wallet"))
		return
	}

	monthKey := req.MonthKey
	if monthKey == "" {
		monthKey = domain.MonthKey(time.Now())
	}
	if _, err := domain.ParseMonthKey(monthKey); err != nil {
		writeError(w, walleterr.Validation("%v", err))
		return
	}

	rates, err := parseRates(req.LiveRates)
	if err != nil {
		writeError(w, err)
		return
	}
	rates[wal.BaseCCY] = decimal.NewFromInt(1)

	symbols, err := h.collectSymbols()
	if err != nil {
		writeError(w, err)
		return
	}
	quotesResult, err := h.quotesViaCache(r.Context(), symbols)
	if err != nil {
		h.log.Warn().Err(err).Msg("quote fetch failed for snapshot, degrading to cached/empty quotes")
	}

	inputs, err := h.loader.BuildSnapshotInputs(walletID, monthKey, rates, quotesResult)
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.snapshotEngine.Create(r.Context(), inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	h.bus.Emit(walletevents.SnapshotCreated, "snapshot", map[string]interface{}{
		"wallet_id": walletID.String(),
		"month_key": monthKey,
	})
	writeJSON(w, http.StatusOK, summary)
}

// HealthSnapshot computes the current aggregate Health flags for every
// wallet in the system, reusing the same tree-building path the dashboard
// uses (cached quotes, no live FX). It feeds the status monitor's
// compare-then-emit loop.
func (h *Handlers) HealthSnapshot() (map[uuid.UUID]valuate.Health, error) {
	wallets, err := h.wallets.ListAll()
	if err != nil {
		return nil, err
	}
	users := make(map[uuid.UUID]struct{}, len(wallets))
	for _, w := range wallets {
		users[w.UserID] = struct{}{}
	}

	out := make(map[uuid.UUID]valuate.Health, len(wallets))
	for userID := range users {
		trees, _, err := h.buildTreesForUser(context.Background(), userID, 1, fx.Rates{})
		if err != nil {
			return nil, err
		}
		for _, t := range trees {
			out[t.ID] = t.Health
		}
	}
	return out, nil
}

// collectSymbols gathers every instrument and metal quote symbol the
// aggregator or snapshot engine could need, batched into one quotes call
// per request.
func (h *Handlers) collectSymbols() ([]string, error) {
	instruments, err := h.instruments.List()
	if err != nil {
		return nil, err
	}
	metalSymbols, err := h.metals.ListAllQuoteSymbols()
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

// quotesViaCache serves symbols from the shared QuoteCache, fetching only
// the ones missing or expired in one batched call. A fetch
// failure still returns whatever the cache already had, so the caller
// degrades gracefully rather than losing quotes it fetched moments ago.
func (h *Handlers) quotesViaCache(ctx context.Context, symbols []string) (fx.Quotes, error) {
	missing := h.quoteCache.Missing(symbols)
	var fetchErr error
	if len(missing) > 0 {
		fetched, err := h.quoteSource.GetLatestQuotesForSymbols(ctx, missing)
		if err != nil {
			fetchErr = err
		} else if err := h.quoteCache.Put(fetched); err != nil {
			h.log.Warn().Err(err).Msg("failed to populate quote cache")
		}
	}

	out := make(fx.Quotes, len(symbols))
	for _, s := range symbols {
		if q, ok := h.quoteCache.Get(s); ok {
			out[s] = q
		}
	}
	return out, fetchErr
}

// parseRates converts a {CCY: "rate string"} request field into fx.Rates.
func parseRates(in map[string]string) (fx.Rates, error) {
	out := make(fx.Rates, len(in))
	for ccy, raw := range in {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, walleterr.Validation("invalid rate for %s: %v", ccy, err)
		}
		out[domain.Currency(ccy)] = d
	}
	return out, nil
}

// parseUUIDField parses a request-body UUID field, naming it in the error.
func parseUUIDField(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, walleterr.Validation("invalid %s %q", field, raw)
	}
	return id, nil
}
