package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/wallet/store"
	"github.com/aristath/walletcore/internal/walleterr"
)

type upsertMetalRequest struct {
	WalletID    string `json:"wallet_id"`
	Metal       string `json:"metal"`
	QuoteSymbol string `json:"quote_symbol"`
	Grams       string `json:"grams"`
	CostBasis   string `json:"cost_basis"`
	CostCCY     string `json:"cost_currency"`
}

func metalResponse(m wallet.MetalHolding) map[string]interface{} {
	return map[string]interface{}{
		"wallet_id":     m.WalletID.String(),
		"metal":         m.Metal,
		"quote_symbol":  m.QuoteSymbol,
		"grams":         m.Grams.String(),
		"cost_basis":    m.CostBasis.String(),
		"cost_currency": m.CostCurrency,
	}
}

// HandleUpsertMetal handles POST /wallet/{user_id}/metals.
func (h *Handlers) HandleUpsertMetal(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	var req upsertMetalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	walletID, err := parseUUIDField(req.WalletID, "wallet_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.ownsWallet(userID, walletID); err != nil {
		writeError(w, err)
		return
	}
	grams, err := decimal.NewFromString(req.Grams)
	if err != nil {
		writeError(w, walleterr.Validation("invalid grams %q", req.Grams))
		return
	}
	cost, err := decimal.NewFromString(req.CostBasis)
	if err != nil {
		writeError(w, walleterr.Validation("invalid cost_basis %q", req.CostBasis))
		return
	}

	metal := domain.MetalType(req.Metal)
	if err := h.metals.Upsert(walletID, metal, req.QuoteSymbol, grams, cost, domain.Currency(req.CostCCY)); err != nil {
		writeError(w, err)
		return
	}
	m, err := h.metals.Get(walletID, metal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metalResponse(*m))
}

// HandleListMetals handles GET /wallet/{user_id}/metals?wallet_id=...
func (h *Handlers) HandleListMetals(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	walletID, err := parseUUIDField(r.URL.Query().Get("wallet_id"), "wallet_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.ownsWallet(userID, walletID); err != nil {
		writeError(w, err)
		return
	}
	list, err := h.metals.ListByWallet(walletID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, m := range list {
		out = append(out, metalResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

type sellMetalRequest struct {
	WalletID        string `json:"wallet_id"`
	Grams           string `json:"grams"`
	PricePerGram    string `json:"price_per_gram"`
	PriceCurrency   string `json:"price_currency"`
	LinkToAccountID string `json:"link_to_account_id"` // optional: create a matching cash Transaction
}

// HandleSellMetal handles POST /wallet/{user_id}/metals/{id}/sell.
// {id} is the metal type (e.g. "GOLD"), matching the (wallet, metal)
// unique key; an optional linked Transaction + CapitalGain is created when
// link_to_account_id is supplied.
func (h *Handlers) HandleSellMetal(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	metal := domain.MetalType(stringParam(r, "id"))

	var req sellMetalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	walletID, err := parseUUIDField(req.WalletID, "wallet_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.ownsWallet(userID, walletID); err != nil {
		writeError(w, err)
		return
	}
	grams, err := decimal.NewFromString(req.Grams)
	if err != nil {
		writeError(w, walleterr.Validation("invalid grams %q", req.Grams))
		return
	}
	price, err := decimal.NewFromString(req.PricePerGram)
	if err != nil {
		writeError(w, walleterr.Validation("invalid price_per_gram %q", req.PricePerGram))
		return
	}

	result, err := h.metals.Sell(walletID, metal, grams, price, domain.Currency(req.PriceCurrency))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"proceeds":      result.ProceedsAmount.String(),
		"realized_gain": result.RealizedGain.String(),
		"currency":      result.Currency,
		"deleted":       result.Deleted,
	}

	if req.LinkToAccountID != "" {
		accountID, err := parseUUIDField(req.LinkToAccountID, "link_to_account_id")
		if err != nil {
			writeError(w, err)
			return
		}
		account, err := h.deposits.GetByID(accountID)
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := h.ownsWallet(userID, account.WalletID); err != nil {
			writeError(w, err)
			return
		}
		gainKind := domain.GainMetalRealizedPnL
		created, err := h.transactions.CreateBatch(h.deposits, accountID, account.Type, account.Currency, []store.NewTransactionInput{{
			Type: "METAL_SALE", Amount: result.ProceedsAmount, Description: "metal sale: " + string(metal),
			Category: "investments", Status: domain.TransactionCompleted, TransactionDate: time.Now(),
			CapitalGainKind: &gainKind, CapitalGainAmount: &result.RealizedGain,
		}})
		if err != nil {
			writeError(w, err)
			return
		}
		resp["transaction"] = transactionResponse(created[0])
	}

	writeJSON(w, http.StatusOK, resp)
}
