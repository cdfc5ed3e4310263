package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/walleterr"
)

// TransactionRepository manages the transactions and capital_gains tables
// (ledger.db). Every write recomputes the balance chain:
// balance_before/after are derived server-side, never trusted from input.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{db: db, log: log.With().Str("repo", "transaction").Logger()}
}

// NewTransactionInput is one row of a (possibly batched) create request.
type NewTransactionInput struct {
	Type            string
	Amount          decimal.Decimal
	Description     string
	Category        string
	Status          domain.TransactionStatus
	TransactionDate time.Time
	CapitalGainKind *domain.CapitalGainKind
	// CapitalGainAmount overrides the CapitalGain row's amount; when nil
	// the transaction amount is used (e.g. interest credited in full).
	CapitalGainAmount *decimal.Decimal
}

// CreateBatch appends rows to an account's transaction chain inside a
// single DB transaction, locking the balance row first so concurrent
// batches on the same account serialize. accountType gates the
// non-negative rule:
// CREDIT accounts may go negative.
func (r *TransactionRepository) CreateBatch(accounts *DepositAccountRepository, accountID uuid.UUID, accountType domain.AccountType, accountCCY domain.Currency, rows []NewTransactionInput) ([]wallet.Transaction, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	var created []wallet.Transaction
	err := accounts.WithTx(func(balTx *sql.Tx) error {
		current, err := accounts.LockBalanceForUpdate(balTx, accountID)
		if err != nil {
			return err
		}

		ledgerTx, err := r.db.Begin()
		if err != nil {
			return fmt.Errorf("begin ledger tx: %w", err)
		}
		defer ledgerTx.Rollback()

		now := time.Now()
		for _, in := range rows {
			before := current
			after := before.Add(in.Amount)
			if after.IsNegative() && accountType != domain.AccountCredit {
				return walleterr.Validation("transaction would drive account %s balance negative", accountID)
			}

			txRow := wallet.Transaction{
				ID:              uuid.New(),
				AccountID:       accountID,
				Type:            in.Type,
				Amount:          in.Amount,
				BalanceBefore:   before,
				BalanceAfter:    after,
				Description:     in.Description,
				Category:        in.Category,
				Status:          in.Status,
				TransactionDate: in.TransactionDate,
				CreatedAt:       now,
			}
			if txRow.Status == "" {
				txRow.Status = domain.TransactionCompleted
			}

			if _, err := ledgerTx.Exec(
				`INSERT INTO transactions (id, account_id, type, amount, balance_before, balance_after, description, category, status, transaction_date, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				txRow.ID, txRow.AccountID, txRow.Type, txRow.Amount.String(), txRow.BalanceBefore.String(), txRow.BalanceAfter.String(),
				txRow.Description, txRow.Category, txRow.Status, txRow.TransactionDate.Unix(), txRow.CreatedAt.Unix(),
			); err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}

			if in.CapitalGainKind != nil {
				gainAmount := in.Amount
				if in.CapitalGainAmount != nil {
					gainAmount = *in.CapitalGainAmount
				}
				cg := wallet.CapitalGain{
					ID:            uuid.New(),
					TransactionID: txRow.ID,
					AccountID:     accountID,
					Kind:          *in.CapitalGainKind,
					Amount:        gainAmount,
					Currency:      accountCCY,
					CreatedAt:     now,
				}
				if _, err := ledgerTx.Exec(
					`INSERT INTO capital_gains (id, transaction_id, account_id, kind, amount, currency, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
					cg.ID, cg.TransactionID, cg.AccountID, cg.Kind, cg.Amount.String(), cg.Currency, cg.CreatedAt.Unix(),
				); err != nil {
					return fmt.Errorf("insert capital gain: %w", err)
				}
			}

			created = append(created, txRow)
			current = after
		}

		if err := ledgerTx.Commit(); err != nil {
			return fmt.Errorf("commit ledger tx: %w", err)
		}
		return accounts.SetAvailable(balTx, accountID, current)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListByAccount returns transactions for an account within [from, to),
// newest first, for the paginated transaction-history endpoint.
func (r *TransactionRepository) ListByAccount(accountID uuid.UUID, from, to time.Time, limit, offset int) ([]wallet.Transaction, error) {
	rows, err := r.db.Query(
		`SELECT id, account_id, type, amount, balance_before, balance_after, description, category, status, transaction_date, created_at
		 FROM transactions WHERE account_id = ? AND transaction_date >= ? AND transaction_date < ?
		 ORDER BY transaction_date DESC, rowid DESC LIMIT ? OFFSET ?`,
		accountID, from.Unix(), to.Unix(), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []wallet.Transaction
	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListFromDate returns transactions on or after `from`, oldest first, the
// shape UpdateBatch needs to recompute the chain forward from a splice
// point.
func (r *TransactionRepository) ListFromDate(accountID uuid.UUID, from time.Time) ([]wallet.Transaction, error) {
	rows, err := r.db.Query(
		`SELECT id, account_id, type, amount, balance_before, balance_after, description, category, status, transaction_date, created_at
		 FROM transactions WHERE account_id = ? AND transaction_date >= ? ORDER BY transaction_date ASC, rowid ASC`,
		accountID, from.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []wallet.Transaction
	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransactionRow(rows *sql.Rows) (wallet.Transaction, error) {
	var t wallet.Transaction
	var amount, before, after string
	var txDate, createdAt int64
	if err := rows.Scan(&t.ID, &t.AccountID, &t.Type, &amount, &before, &after, &t.Description, &t.Category, &t.Status, &txDate, &createdAt); err != nil {
		return wallet.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return wallet.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	if t.BalanceBefore, err = decimal.NewFromString(before); err != nil {
		return wallet.Transaction{}, fmt.Errorf("parse balance_before: %w", err)
	}
	if t.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return wallet.Transaction{}, fmt.Errorf("parse balance_after: %w", err)
	}
	t.TransactionDate = time.Unix(txDate, 0).UTC()
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return t, nil
}

// UpdateAmount changes a single transaction's amount in place, then
// recomputes balance_before/after for every later row in that account's
// chain, preserving balance_after(t_i) = balance_before(t_{i+1}).
// This is the "batch update" path described as a single splice-and-replay.
func (r *TransactionRepository) UpdateAmount(accounts *DepositAccountRepository, accountID, txID uuid.UUID, newAmount decimal.Decimal) error {
	var targetUnix int64
	err := r.db.QueryRow(`SELECT transaction_date FROM transactions WHERE id = ? AND account_id = ?`, txID, accountID).Scan(&targetUnix)
	if err != nil {
		if err == sql.ErrNoRows {
			return walleterr.NotFound("transaction", txID)
		}
		return fmt.Errorf("lookup transaction date: %w", err)
	}
	target := time.Unix(targetUnix, 0).UTC()

	chain, err := r.ListFromDate(accountID, target)
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		return walleterr.NotFound("transaction", txID)
	}

	before := chain[0].BalanceBefore
	for i := range chain {
		if chain[i].ID == txID {
			chain[i].Amount = newAmount
		}
		chain[i].BalanceBefore = before
		chain[i].BalanceAfter = before.Add(chain[i].Amount)
		before = chain[i].BalanceAfter
	}

	return accounts.WithTx(func(balTx *sql.Tx) error {
		// hold the balance row lock while the ledger chain is rewritten, so
		// a concurrent CreateBatch on the same account serializes behind us
		if _, err := accounts.LockBalanceForUpdate(balTx, accountID); err != nil {
			return err
		}

		ledgerTx, err := r.db.Begin()
		if err != nil {
			return fmt.Errorf("begin ledger tx: %w", err)
		}
		defer ledgerTx.Rollback()

		for _, t := range chain {
			if _, err := ledgerTx.Exec(
				`UPDATE transactions SET amount = ?, balance_before = ?, balance_after = ? WHERE id = ?`,
				t.Amount.String(), t.BalanceBefore.String(), t.BalanceAfter.String(), t.ID,
			); err != nil {
				return fmt.Errorf("update transaction %s: %w", t.ID, err)
			}
		}
		if err := ledgerTx.Commit(); err != nil {
			return fmt.Errorf("commit ledger tx: %w", err)
		}
		return accounts.SetAvailable(balTx, accountID, chain[len(chain)-1].BalanceAfter)
	})
}

// CapitalGainRepository manages the capital_gains table (ledger.db).
type CapitalGainRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewCapitalGainRepository(db *sql.DB, log zerolog.Logger) *CapitalGainRepository {
	return &CapitalGainRepository{db: db, log: log.With().Str("repo", "capital_gain").Logger()}
}

// Upsert attaches (or refreshes) the CapitalGain classifying a
// transaction. transaction_id is unique, so replaying an edited event
// stream overwrites the previous classification instead of duplicating it.
func (r *CapitalGainRepository) Upsert(cg *wallet.CapitalGain) error {
	cg.CreatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO capital_gains (id, transaction_id, account_id, kind, amount, currency, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(transaction_id) DO UPDATE SET account_id = excluded.account_id, kind = excluded.kind, amount = excluded.amount, currency = excluded.currency`,
		cg.ID, cg.TransactionID, cg.AccountID, cg.Kind, cg.Amount.String(), cg.Currency, cg.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert capital gain: %w", err)
	}
	return nil
}

// DeleteByTransaction removes a transaction's CapitalGain, used when the
// brokerage event that produced it is deleted.
func (r *CapitalGainRepository) DeleteByTransaction(transactionID uuid.UUID) error {
	if _, err := r.db.Exec(`DELETE FROM capital_gains WHERE transaction_id = ?`, transactionID); err != nil {
		return fmt.Errorf("delete capital gain: %w", err)
	}
	return nil
}

func (r *CapitalGainRepository) ListByAccount(accountID uuid.UUID) ([]wallet.CapitalGain, error) {
	rows, err := r.db.Query(
		`SELECT id, transaction_id, account_id, kind, amount, currency, created_at FROM capital_gains WHERE account_id = ? ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list capital gains: %w", err)
	}
	defer rows.Close()

	var out []wallet.CapitalGain
	for rows.Next() {
		var cg wallet.CapitalGain
		var amount string
		var createdAt int64
		if err := rows.Scan(&cg.ID, &cg.TransactionID, &cg.AccountID, &cg.Kind, &amount, &cg.Currency, &createdAt); err != nil {
			return nil, fmt.Errorf("scan capital gain: %w", err)
		}
		if cg.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		cg.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, cg)
	}
	return out, rows.Err()
}
