package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/walleterr"
)

// ownsWallet confirms walletID belongs to userID, loading the wallet as a
// side effect so callers don't re-fetch it.
func (h *Handlers) ownsWallet(userID, walletID uuid.UUID) (*wallet.Wallet, error) {
	w, err := h.wallets.GetByID(walletID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, walleterr.Auth("wallet does not belong to the authenticated user")
	}
	return w, nil
}

type createAccountRequest struct {
	WalletID      string `json:"wallet_id"`
	BankID        string `json:"bank_id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Currency      string `json:"currency"`
	AccountNumber string `json:"account_number"`
}

type accountResponse struct {
	ID        string `json:"id"`
	WalletID  string `json:"wallet_id"`
	BankID    string `json:"bank_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Currency  string `json:"currency"`
	Available string `json:"available"`
}

func (h *Handlers) toAccountResponse(a wallet.DepositAccount) accountResponse {
	resp := accountResponse{
		ID: a.ID.String(), WalletID: a.WalletID.String(), BankID: a.BankID.String(),
		Name: a.Name, Type: string(a.Type), Currency: string(a.Currency),
	}
	if bal, err := h.deposits.GetBalance(a.ID); err == nil {
		resp.Available = bal.Available.String()
	}
	return resp
}

// HandleCreateAccount handles POST /wallet/{user_id}/accounts.
func (h *Handlers) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}

	var req createAccountRequest
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
	bankID, err := parseUUIDField(req.BankID, "bank_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" || req.AccountNumber == "" {
		writeError(w, walleterr.Validation("name and account_number are required"))
		return
	}

	a := &wallet.DepositAccount{
		ID: uuid.New(), WalletID: walletID, BankID: bankID, Name: req.Name,
		Type: domain.AccountType(req.Type), Currency: domain.Currency(req.Currency),
	}
	if err := h.deposits.Create(a, h.accountCodec, req.AccountNumber); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toAccountResponse(*a))
}

// HandleListAccounts handles GET /wallet/{user_id}/accounts?wallet_id=...
func (h *Handlers) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
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

	accounts, err := h.deposits.ListByWallet(walletID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, h.toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateAccountRequest struct {
	BankID string `json:"bank_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// HandleUpdateAccount handles PATCH /wallet/{user_id}/accounts/{id}.
func (h *Handlers) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	accountID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := h.deposits.GetByID(accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.ownsWallet(userID, existing.WalletID); err != nil {
		writeError(w, err)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.BankID != "" {
		bankID, err := parseUUIDField(req.BankID, "bank_id")
		if err != nil {
			writeError(w, err)
			return
		}
		existing.BankID = bankID
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Type != "" {
		existing.Type = domain.AccountType(req.Type)
	}

	if err := h.deposits.Update(existing); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toAccountResponse(*existing))
}

// HandleDeleteAccount handles DELETE /wallet/{user_id}/accounts/{id}.
func (h *Handlers) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	accountID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := h.deposits.GetByID(accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.ownsWallet(userID, existing.WalletID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deposits.Delete(accountID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
