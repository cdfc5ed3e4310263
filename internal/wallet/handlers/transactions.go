package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	walletevents "github.com/aristath/walletcore/internal/events"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/wallet/store"
	"github.com/aristath/walletcore/internal/walleterr"
)

type newTransactionRequest struct {
	Type            string  `json:"type"`
	Amount          string  `json:"amount"`
	Description     string  `json:"description"`
	Category        string  `json:"category"`
	Status          string  `json:"status"`
	TransactionDate string  `json:"transaction_date"` // RFC3339; defaults to now
	CapitalGainKind *string `json:"capital_gain_kind"`
}

type batchCreateTransactionsRequest struct {
	AccountID string                  `json:"account_id"`
	Rows      []newTransactionRequest `json:"rows"`
}

func transactionResponse(t wallet.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"id":               t.ID.String(),
		"account_id":       t.AccountID.String(),
		"type":             t.Type,
		"amount":           t.Amount.String(),
		"balance_before":   t.BalanceBefore.String(),
		"balance_after":    t.BalanceAfter.String(),
		"description":      t.Description,
		"category":         t.Category,
		"status":           t.Status,
		"transaction_date": t.TransactionDate.Format(time.RFC3339),
	}
}

// HandleCreateTransactions handles POST /wallet/{user_id}/transactions:
// batch-create on one account, atomically chaining balances.
func (h *Handlers) HandleCreateTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}

	var req batchCreateTransactionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	accountID, err := parseUUIDField(req.AccountID, "account_id")
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

	rows := make([]store.NewTransactionInput, 0, len(req.Rows))
	for i, row := range req.Rows {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			writeError(w, walleterr.Validation("row %d: invalid amount %q", i, row.Amount))
			return
		}
		when := time.Now()
		if row.TransactionDate != "" {
			when, err = time.Parse(time.RFC3339, row.TransactionDate)
			if err != nil {
				writeError(w, walleterr.Validation("row %d: invalid transaction_date: %v", i, err))
				return
			}
		}
		var gainKind *domain.CapitalGainKind
		if row.CapitalGainKind != nil {
			k := domain.CapitalGainKind(*row.CapitalGainKind)
			gainKind = &k
		}
		rows = append(rows, store.NewTransactionInput{
			Type: row.Type, Amount: amount, Description: row.Description, Category: row.Category,
			Status: domain.TransactionStatus(row.Status), TransactionDate: when, CapitalGainKind: gainKind,
		})
	}

	created, err := h.transactions.CreateBatch(h.deposits, accountID, account.Type, account.Currency, rows)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(created) > 0 {
		h.bus.Emit(walletevents.AccountBalanceChanged, "transactions", map[string]interface{}{
			"account_id": accountID.String(),
			"available":  created[len(created)-1].BalanceAfter.String(),
		})
	}

	out := make([]map[string]interface{}, 0, len(created))
	for _, t := range created {
		out = append(out, transactionResponse(t))
	}
	writeJSON(w, http.StatusCreated, out)
}

// HandleListTransactionsPage handles GET /wallet/{user_id}/transactions/page:
// a paginated, filterable view over one account's ledger with per-currency
// totals. account_id, from, to, limit, offset are query params;
// category/status/q filter in-memory over the page fetched from the
// account's date-ordered chain.
func (h *Handlers) HandleListTransactionsPage(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}

	q := r.URL.Query()
	accountID, err := parseUUIDField(q.Get("account_id"), "account_id")
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

	from := parseTimeParam(q.Get("from"), time.Unix(0, 0).UTC())
	to := parseTimeParam(q.Get("to"), time.Now().AddDate(1, 0, 0))
	limit := parseIntParam(q.Get("limit"), 50)
	offset := parseIntParam(q.Get("offset"), 0)

	rows, err := h.transactions.ListByAccount(accountID, from, to, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	category := q.Get("category")
	status := q.Get("status")
	query := strings.ToLower(q.Get("q"))

	filtered := make([]wallet.Transaction, 0, len(rows))
	total := decimal.Zero
	for _, t := range rows {
		if category != "" && t.Category != category {
			continue
		}
		if status != "" && string(t.Status) != status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		filtered = append(filtered, t)
		total = total.Add(t.Amount)
	}

	out := make([]map[string]interface{}, 0, len(filtered))
	for _, t := range filtered {
		out = append(out, transactionResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": out,
		"totals":       map[string]string{string(account.Currency): total.String()},
	})
}

type updateTransactionRow struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

type batchUpdateTransactionsRequest struct {
	AccountID string                 `json:"account_id"`
	Rows      []updateTransactionRow `json:"rows"`
}

// HandleUpdateTransactions handles PATCH /wallet/{user_id}/transactions:
// batch update; a single row's failure does not abort the batch.
func (h *Handlers) HandleUpdateTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}

	var req batchUpdateTransactionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	accountID, err := parseUUIDField(req.AccountID, "account_id")
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

	result := batchResult{}
	for _, row := range req.Rows {
		txID, err := parseUUIDField(row.ID, "id")
		if err != nil {
			result.Failed = append(result.Failed, batchFailure{ID: row.ID, Detail: err.Error()})
			continue
		}
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			result.Failed = append(result.Failed, batchFailure{ID: row.ID, Detail: "invalid amount"})
			continue
		}
		if err := h.transactions.UpdateAmount(h.deposits, accountID, txID, amount); err != nil {
			result.Failed = append(result.Failed, batchFailure{ID: row.ID, Detail: err.Error()})
			continue
		}
		result.Updated++
	}
	if result.Updated > 0 {
		h.bus.Emit(walletevents.AccountBalanceChanged, "transactions", map[string]interface{}{
			"account_id": accountID.String(),
		})
	}
	writeJSON(w, http.StatusOK, result)
}

func parseTimeParam(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return fallback
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return fallback
}
