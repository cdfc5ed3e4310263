package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/wallet/store"
	"github.com/aristath/walletcore/internal/walleterr"
)

type createRealEstateRequest struct {
	WalletID         string `json:"wallet_id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Country          string `json:"country"`
	City             string `json:"city"`
	AreaM2           string `json:"area_m2"`
	PurchasePrice    string `json:"purchase_price"`
	PurchaseCurrency string `json:"purchase_currency"`
}

func realEstateResponse(p wallet.RealEstate) map[string]interface{} {
	return map[string]interface{}{
		"id":                p.ID.String(),
		"wallet_id":         p.WalletID.String(),
		"name":              p.Name,
		"type":              p.Type,
		"country":           p.Country,
		"city":              p.City,
		"area_m2":           p.AreaM2.String(),
		"purchase_price":    p.PurchasePrice.String(),
		"purchase_currency": p.PurchaseCurrency,
	}
}

// HandleCreateRealEstate handles POST /wallet/{user_id}/real-estates.
func (h *Handlers) HandleCreateRealEstate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	var req createRealEstateRequest
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
	area, err := decimal.NewFromString(req.AreaM2)
	if err != nil {
		writeError(w, walleterr.Validation("invalid area_m2 %q", req.AreaM2))
		return
	}
	price, err := decimal.NewFromString(req.PurchasePrice)
	if err != nil {
		writeError(w, walleterr.Validation("invalid purchase_price %q", req.PurchasePrice))
		return
	}

	p := &wallet.RealEstate{
		ID: uuid.New(), WalletID: walletID, Name: req.Name, Type: domain.PropertyType(req.Type),
		Country: req.Country, City: req.City, AreaM2: area, PurchasePrice: price,
		PurchaseCurrency: domain.Currency(req.PurchaseCurrency),
	}
	if err := h.realEstates.Create(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, realEstateResponse(*p))
}

// HandleListRealEstates handles GET /wallet/{user_id}/real-estates?wallet_id=...
func (h *Handlers) HandleListRealEstates(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.realEstates.ListByWallet(walletID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, p := range list {
		out = append(out, realEstateResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDeleteRealEstate handles DELETE /wallet/{user_id}/real-estates/{id}.
func (h *Handlers) HandleDeleteRealEstate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.realEstates.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.ownsWallet(userID, p.WalletID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.realEstates.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type createRealEstatePriceRequest struct {
	Type          string `json:"type"`
	Country       string `json:"country"`
	City          string `json:"city"`
	Currency      string `json:"currency"`
	PricePerM2    string `json:"price_per_m2"`
	EffectiveDate string `json:"effective_date"` // RFC3339; defaults to now
}

// HandleCreateRealEstatePrice handles POST /wallet/{user_id}/real-estate-prices:
// appends to the reference catalog consulted by the valuation fallback chain when
// a property has no brokerage-style live quote.
func (h *Handlers) HandleCreateRealEstatePrice(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFromContext(r); !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	var req createRealEstatePriceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	price, err := decimal.NewFromString(req.PricePerM2)
	if err != nil {
		writeError(w, walleterr.Validation("invalid price_per_m2 %q", req.PricePerM2))
		return
	}
	effective := parseTimeParam(req.EffectiveDate, time.Now())

	p := &wallet.RealEstatePrice{
		ID: uuid.New(), Type: domain.PropertyType(req.Type), Country: req.Country, City: req.City,
		Currency: domain.Currency(req.Currency), PricePerM2: price, EffectiveDate: effective,
	}
	if err := h.rePrices.Create(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id": p.ID.String(), "type": p.Type, "country": p.Country, "city": p.City,
		"currency": p.Currency, "price_per_m2": p.PricePerM2.String(),
		"effective_date": p.EffectiveDate.Format(time.RFC3339),
	})
}

type sellRealEstateRequest struct {
	SalePrice       string `json:"sale_price"`
	SaleCurrency    string `json:"sale_currency"`
	LinkToAccountID string `json:"link_to_account_id"`
}

// HandleSellRealEstate handles POST /wallet/{user_id}/real-estates/{id}/sell.
// A property is disposed of in full; realized gain is reported against the
// recorded purchase price, with an optional linked Transaction + CapitalGain
// when link_to_account_id is supplied.
func (h *Handlers) HandleSellRealEstate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.realEstates.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.ownsWallet(userID, p.WalletID); err != nil {
		writeError(w, err)
		return
	}

	var req sellRealEstateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	salePrice, err := decimal.NewFromString(req.SalePrice)
	if err != nil {
		writeError(w, walleterr.Validation("invalid sale_price %q", req.SalePrice))
		return
	}

	result, err := h.realEstates.Sell(id, salePrice, domain.Currency(req.SaleCurrency))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"proceeds":      result.ProceedsAmount.String(),
		"realized_gain": result.RealizedGain.String(),
		"currency":      result.Currency,
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
		gainKind := domain.GainRealEstateRealized
		created, err := h.transactions.CreateBatch(h.deposits, accountID, account.Type, account.Currency, []store.NewTransactionInput{{
			Type: "REAL_ESTATE_SALE", Amount: result.ProceedsAmount, Description: "real estate sale: " + p.Name,
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
