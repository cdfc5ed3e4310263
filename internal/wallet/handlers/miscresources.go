package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/walleterr"
)

// --- Debt ---------------------------------------------------------------

type createDebtRequest struct {
	WalletID    string  `json:"wallet_id"`
	Name        string  `json:"name"`
	Principal   string  `json:"principal"`
	Currency    string  `json:"currency"`
	InterestPct string  `json:"interest_pct"`
	DueDate     *string `json:"due_date"` // RFC3339
}

func debtResponse(d wallet.Debt) map[string]interface{} {
	resp := map[string]interface{}{
		"id": d.ID.String(), "wallet_id": d.WalletID.String(), "name": d.Name,
		"principal": d.Principal.String(), "currency": d.Currency, "interest_pct": d.InterestPct.String(),
	}
	if d.DueDate != nil {
		resp["due_date"] = d.DueDate.Format(time.RFC3339)
	}
	return resp
}

// HandleCreateDebt handles POST /wallet/{user_id}/debts.
func (h *Handlers) HandleCreateDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	var req createDebtRequest
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
	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		writeError(w, walleterr.Validation("invalid principal %q", req.Principal))
		return
	}
	interest := decimal.Zero
	if req.InterestPct != "" {
		if interest, err = decimal.NewFromString(req.InterestPct); err != nil {
			writeError(w, walleterr.Validation("invalid interest_pct %q", req.InterestPct))
			return
		}
	}
	d := &wallet.Debt{
		ID: uuid.New(), WalletID: walletID, Name: req.Name, Principal: principal,
		Currency: domain.Currency(req.Currency), InterestPct: interest,
	}
	if req.DueDate != nil && *req.DueDate != "" {
		t, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			writeError(w, walleterr.Validation("invalid due_date: %v", err))
			return
		}
		d.DueDate = &t
	}
	if err := h.debts.Create(d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, debtResponse(*d))
}

// HandleListDebts handles GET /wallet/{user_id}/debts?wallet_id=...
func (h *Handlers) HandleListDebts(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.debts.ListByWallet(walletID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, d := range list {
		out = append(out, debtResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDeleteDebt handles DELETE /wallet/{user_id}/debts/{id}.
func (h *Handlers) HandleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFromContext(r); !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.debts.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- RecurringExpense -----------------------------------------------------

type createRecurringExpenseRequest struct {
	WalletID    string `json:"wallet_id"`
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Periodicity string `json:"periodicity"`
	Category    string `json:"category"`
}

func recurringExpenseResponse(e wallet.RecurringExpense) map[string]interface{} {
	return map[string]interface{}{
		"id": e.ID.String(), "wallet_id": e.WalletID.String(), "name": e.Name,
		"amount": e.Amount.String(), "currency": e.Currency,
		"periodicity": e.Periodicity, "category": e.Category,
	}
}

// HandleCreateRecurringExpense handles POST /wallet/{user_id}/recurring-expenses.
func (h *Handlers) HandleCreateRecurringExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	var req createRecurringExpenseRequest
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
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, walleterr.Validation("invalid amount %q", req.Amount))
		return
	}
	e := &wallet.RecurringExpense{
		ID: uuid.New(), WalletID: walletID, Name: req.Name, Amount: amount,
		Currency: domain.Currency(req.Currency), Periodicity: req.Periodicity, Category: req.Category,
	}
	if err := h.recurring.Create(e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recurringExpenseResponse(*e))
}

// HandleListRecurringExpenses handles GET /wallet/{user_id}/recurring-expenses?wallet_id=...
func (h *Handlers) HandleListRecurringExpenses(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.recurring.ListByWallet(walletID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, e := range list {
		out = append(out, recurringExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDeleteRecurringExpense handles DELETE /wallet/{user_id}/recurring-expenses/{id}.
func (h *Handlers) HandleDeleteRecurringExpense(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFromContext(r); !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.recurring.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- YearGoal ---------------------------------------------------------

type createYearGoalRequest struct {
	WalletID  string `json:"wallet_id"`
	Year      int    `json:"year"`
	TargetAmt string `json:"target_amt"`
	Currency  string `json:"currency"`
	Label     string `json:"label"`
}

func yearGoalResponse(g wallet.YearGoal) map[string]interface{} {
	return map[string]interface{}{
		"id": g.ID.String(), "wallet_id": g.WalletID.String(), "year": g.Year,
		"target_amt": g.TargetAmt.String(), "currency": g.Currency, "label": g.Label,
	}
}

// HandleCreateYearGoal handles POST /wallet/{user_id}/year-goals.
func (h *Handlers) HandleCreateYearGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	var req createYearGoalRequest
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
	target, err := decimal.NewFromString(req.TargetAmt)
	if err != nil {
		writeError(w, walleterr.Validation("invalid target_amt %q", req.TargetAmt))
		return
	}
	g := &wallet.YearGoal{
		ID: uuid.New(), WalletID: walletID, Year: req.Year, TargetAmt: target,
		Currency: domain.Currency(req.Currency), Label: req.Label,
	}
	if err := h.yearGoals.Create(g); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, yearGoalResponse(*g))
}

// HandleListYearGoals handles GET /wallet/{user_id}/year-goals?wallet_id=...
func (h *Handlers) HandleListYearGoals(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.yearGoals.ListByWallet(walletID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, g := range list {
		out = append(out, yearGoalResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDeleteYearGoal handles DELETE /wallet/{user_id}/year-goals/{id}.
func (h *Handlers) HandleDeleteYearGoal(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFromContext(r); !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.yearGoals.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- UserNote ---------------------------------------------------------

type createUserNoteRequest struct {
	Body string `json:"body"`
}

func userNoteResponse(n wallet.UserNote) map[string]interface{} {
	return map[string]interface{}{
		"id": n.ID.String(), "user_id": n.UserID.String(), "body": n.Body,
		"created_at": n.CreatedAt.Format(time.RFC3339),
	}
}

// HandleCreateUserNote handles POST /wallet/{user_id}/notes.
func (h *Handlers) HandleCreateUserNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	var req createUserNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	n := &wallet.UserNote{ID: uuid.New(), UserID: userID, Body: req.Body}
	if err := h.notes.Create(n); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userNoteResponse(*n))
}

// HandleListUserNotes handles GET /wallet/{user_id}/notes.
func (h *Handlers) HandleListUserNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	list, err := h.notes.ListByUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, n := range list {
		out = append(out, userNoteResponse(n))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDeleteUserNote handles DELETE /wallet/{user_id}/notes/{id}.
func (h *Handlers) HandleDeleteUserNote(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFromContext(r); !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.notes.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
