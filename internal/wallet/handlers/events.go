package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	walletevents "github.com/aristath/walletcore/internal/events"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/wallet/holding"
	"github.com/aristath/walletcore/internal/walleterr"
)

type newEventRequest struct {
	BrokerageID  string `json:"brokerage_id"`
	InstrumentID string `json:"instrument_id"`
	Kind         string `json:"kind"`
	Quantity     string `json:"quantity"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	SplitRatio   string `json:"split_ratio"`
	TradeAt      string `json:"trade_at"` // RFC3339
	// LinkedTransactionID pairs a SELL or DIV with the cash Transaction
	// recorded for it; when set, the replayed realized P&L or dividend is
	// surfaced as a CapitalGain on the linked deposit account.
	LinkedTransactionID string `json:"linked_transaction_id"`
}

func eventResponse(e wallet.BrokerageEvent) map[string]interface{} {
	return map[string]interface{}{
		"id":            e.ID.String(),
		"brokerage_id":  e.BrokerageID.String(),
		"instrument_id": e.InstrumentID.String(),
		"kind":          e.Kind,
		"quantity":      e.Quantity.String(),
		"price":         e.Price.String(),
		"currency":      e.Currency,
		"split_ratio":   e.SplitRatio.String(),
		"trade_at":      e.TradeAt.Format(time.RFC3339),
	}
}

// brokerageBelongsToUser checks that brokerageID's wallet belongs to userID.
func (h *Handlers) brokerageBelongsToUser(userID, brokerageID uuid.UUID) error {
	b, err := h.brokerages.GetByID(brokerageID)
	if err != nil {
		return err
	}
	if _, err := h.ownsWallet(userID, b.WalletID); err != nil {
		return err
	}
	return nil
}

func parseEventRequest(req newEventRequest) (*wallet.BrokerageEvent, error) {
	brokerageID, err := parseUUIDField(req.BrokerageID, "brokerage_id")
	if err != nil {
		return nil, err
	}
	instrumentID, err := parseUUIDField(req.InstrumentID, "instrument_id")
	if err != nil {
		return nil, err
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return nil, walleterr.Validation("invalid quantity %q", req.Quantity)
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, walleterr.Validation("invalid price %q", req.Price)
	}
	ratio := decimal.NewFromInt(1)
	if req.SplitRatio != "" {
		if ratio, err = decimal.NewFromString(req.SplitRatio); err != nil {
			return nil, walleterr.Validation("invalid split_ratio %q", req.SplitRatio)
		}
	}
	tradeAt := time.Now()
	if req.TradeAt != "" {
		if tradeAt, err = time.Parse(time.RFC3339, req.TradeAt); err != nil {
			return nil, walleterr.Validation("invalid trade_at: %v", err)
		}
	}
	var linkedTx *uuid.UUID
	if req.LinkedTransactionID != "" {
		id, err := parseUUIDField(req.LinkedTransactionID, "linked_transaction_id")
		if err != nil {
			return nil, err
		}
		linkedTx = &id
	}
	return &wallet.BrokerageEvent{
		ID: uuid.New(), BrokerageID: brokerageID, InstrumentID: instrumentID,
		Kind: domain.BrokerageEventKind(req.Kind), Quantity: qty, Price: price,
		Currency: domain.Currency(req.Currency), SplitRatio: ratio, TradeAt: tradeAt,
		LinkedTransactionID: linkedTx,
	}, nil
}

// HandleCreateEvent handles POST /wallet/{user_id}/events: records one
// BrokerageEvent fact and replays the affected holding from scratch.
func (h *Handlers) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}

	var req newEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	event, err := parseEventRequest(req)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.brokerageBelongsToUser(userID, event.BrokerageID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.brokerageEvents.Create(event); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.holdings.Recompute(h.brokerageEvents, event.BrokerageID, event.InstrumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.attachEventGains(event, result); err != nil {
		writeError(w, err)
		return
	}
	h.emitHoldingRecomputed(event.BrokerageID, event.InstrumentID)
	writeJSON(w, http.StatusCreated, eventResponse(*event))
}

// HandleImportEvents handles POST /wallet/{user_id}/events/import: batch
// ingestion of events, recomputing each touched (brokerage, instrument)
// holding exactly once after all rows are inserted.
func (h *Handlers) HandleImportEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}

	var rows []newEventRequest
	if err := decodeJSON(r, &rows); err != nil {
		writeError(w, err)
		return
	}

	type pair struct{ brokerageID, instrumentID uuid.UUID }
	touched := map[pair][]*wallet.BrokerageEvent{}
	result := batchResult{}

	for i, row := range rows {
		event, err := parseEventRequest(row)
		if err != nil {
			result.Failed = append(result.Failed, batchFailure{ID: indexLabel(i), Detail: err.Error()})
			continue
		}
		if err := h.brokerageBelongsToUser(userID, event.BrokerageID); err != nil {
			result.Failed = append(result.Failed, batchFailure{ID: indexLabel(i), Detail: err.Error()})
			continue
		}
		if err := h.brokerageEvents.Create(event); err != nil {
			result.Failed = append(result.Failed, batchFailure{ID: indexLabel(i), Detail: err.Error()})
			continue
		}
		p := pair{event.BrokerageID, event.InstrumentID}
		touched[p] = append(touched[p], event)
		result.Updated++
	}

	for p, createdEvents := range touched {
		replay, err := h.holdings.Recompute(h.brokerageEvents, p.brokerageID, p.instrumentID)
		if err != nil {
			h.log.Error().Err(err).Str("brokerage_id", p.brokerageID.String()).Msg("post-import holding recompute failed")
			continue
		}
		for _, event := range createdEvents {
			if err := h.attachEventGains(event, replay); err != nil {
				h.log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("capital gain attach failed")
			}
		}
		h.emitHoldingRecomputed(p.brokerageID, p.instrumentID)
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleUpdateEvent handles PATCH /wallet/{user_id}/events/{id}: edits a
// historical fact then recomputes the affected holding from scratch
// (never locally inverted).
func (h *Handlers) HandleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	eventID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := h.brokerageEvents.GetByID(eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.brokerageBelongsToUser(userID, existing.BrokerageID); err != nil {
		writeError(w, err)
		return
	}

	var req newEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	updated, err := parseEventRequest(req)
	if err != nil {
		writeError(w, err)
		return
	}
	updated.ID = existing.ID
	updated.BrokerageID = existing.BrokerageID
	updated.InstrumentID = existing.InstrumentID

	if err := h.brokerageEvents.Update(updated); err != nil {
		writeError(w, err)
		return
	}
	// a link that moved or went away leaves a stale classification behind
	if existing.LinkedTransactionID != nil &&
		(updated.LinkedTransactionID == nil || *updated.LinkedTransactionID != *existing.LinkedTransactionID) {
		if err := h.capitalGains.DeleteByTransaction(*existing.LinkedTransactionID); err != nil {
			writeError(w, err)
			return
		}
	}
	result, err := h.holdings.Recompute(h.brokerageEvents, updated.BrokerageID, updated.InstrumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.attachEventGains(updated, result); err != nil {
		writeError(w, err)
		return
	}
	h.emitHoldingRecomputed(updated.BrokerageID, updated.InstrumentID)
	writeJSON(w, http.StatusOK, eventResponse(*updated))
}

// HandleDeleteEvent handles DELETE /wallet/{user_id}/events/{id}: removes
// a fact then recomputes the affected holding from scratch.
func (h *Handlers) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	eventID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := h.brokerageEvents.GetByID(eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.brokerageBelongsToUser(userID, existing.BrokerageID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.brokerageEvents.Delete(eventID); err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.holdings.Recompute(h.brokerageEvents, existing.BrokerageID, existing.InstrumentID); err != nil {
		writeError(w, err)
		return
	}
	// the deleted event's paired classification is stale now that the
	// event no longer exists in the replayed stream
	if existing.LinkedTransactionID != nil {
		if err := h.capitalGains.DeleteByTransaction(*existing.LinkedTransactionID); err != nil {
			writeError(w, err)
			return
		}
	}
	h.emitHoldingRecomputed(existing.BrokerageID, existing.InstrumentID)
	writeJSON(w, http.StatusNoContent, nil)
}

// HandleListEvents handles GET /wallet/{user_id}/events?brokerage_id=...
func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	brokerageID, err := parseUUIDField(r.URL.Query().Get("brokerage_id"), "brokerage_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.brokerageBelongsToUser(userID, brokerageID); err != nil {
		writeError(w, err)
		return
	}

	events, err := h.brokerageEvents.ListByBrokerage(brokerageID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func indexLabel(i int) string {
	return "row_" + strconv.Itoa(i)
}

// attachEventGains surfaces a replayed SELL's realized P&L or a DIV's
// payout as a CapitalGain on the deposit account linked for the event's
// currency, keyed by the paired cash Transaction. Events with no paired
// transaction surface nothing.
func (h *Handlers) attachEventGains(e *wallet.BrokerageEvent, replay holding.Result) error {
	if e.LinkedTransactionID == nil {
		return nil
	}

	var kind domain.CapitalGainKind
	var amount decimal.Decimal
	found := false
	for _, g := range replay.Gains {
		if g.EventID == e.ID {
			kind, amount, found = domain.GainBrokerRealizedPnL, g.Amount, true
			break
		}
	}
	if !found {
		for _, d := range replay.Dividends {
			if d.EventID == e.ID {
				kind, amount, found = domain.GainBrokerDividend, d.Amount, true
				break
			}
		}
	}
	if !found {
		return nil
	}

	link, err := h.brokerages.LinkForCurrency(e.BrokerageID, e.Currency)
	if err != nil {
		if walleterr.KindOf(err) == walleterr.KindNotFound {
			return walleterr.Validation("no deposit account linked to brokerage %s for currency %s", e.BrokerageID, e.Currency)
		}
		return err
	}

	return h.capitalGains.Upsert(&wallet.CapitalGain{
		ID:            uuid.New(),
		TransactionID: *e.LinkedTransactionID,
		AccountID:     link.DepositAccountID,
		Kind:          kind,
		Amount:        amount,
		Currency:      e.Currency,
	})
}

func (h *Handlers) emitHoldingRecomputed(brokerageID, instrumentID uuid.UUID) {
	h.bus.Emit(walletevents.HoldingRecomputed, "events", map[string]interface{}{
		"brokerage_id":  brokerageID.String(),
		"instrument_id": instrumentID.String(),
	})
}
