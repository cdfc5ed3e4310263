package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/wallet"
)

// DebtRepository manages the debts table (wallet.db).
type DebtRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewDebtRepository(db *sql.DB, log zerolog.Logger) *DebtRepository {
	return &DebtRepository{db: db, log: log.With().Str("repo", "debt").Logger()}
}

func (r *DebtRepository) Create(d *wallet.Debt) error {
	var due interface{}
	if d.DueDate != nil {
		due = d.DueDate.Unix()
	}
	_, err := r.db.Exec(
		`INSERT INTO debts (id, wallet_id, name, principal, currency, interest_pct, due_date) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.WalletID, d.Name, d.Principal.String(), d.Currency, d.InterestPct.String(), due,
	)
	if err != nil {
		return fmt.Errorf("create debt: %w", err)
	}
	return nil
}

func (r *DebtRepository) ListByWallet(walletID uuid.UUID) ([]wallet.Debt, error) {
	rows, err := r.db.Query(`SELECT id, wallet_id, name, principal, currency, interest_pct, due_date FROM debts WHERE wallet_id = ? ORDER BY name`, walletID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var out []wallet.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDebt(rows *sql.Rows) (wallet.Debt, error) {
	var d wallet.Debt
	var principal, interest string
	var due sql.NullInt64
	if err := rows.Scan(&d.ID, &d.WalletID, &d.Name, &principal, &d.Currency, &interest, &due); err != nil {
		return wallet.Debt{}, fmt.Errorf("scan debt: %w", err)
	}
	var err error
	if d.Principal, err = decimal.NewFromString(principal); err != nil {
		return wallet.Debt{}, fmt.Errorf("parse principal: %w", err)
	}
	if d.InterestPct, err = decimal.NewFromString(interest); err != nil {
		return wallet.Debt{}, fmt.Errorf("parse interest_pct: %w", err)
	}
	if due.Valid {
		t := time.Unix(due.Int64, 0).UTC()
		d.DueDate = &t
	}
	return d, nil
}

func (r *DebtRepository) Delete(id uuid.UUID) error {
	res, err := r.db.Exec(`DELETE FROM debts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return rowsAffectedOrNotFound(res, "debt")
}

// RecurringExpenseRepository manages the recurring_expenses table (wallet.db).
type RecurringExpenseRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRecurringExpenseRepository(db *sql.DB, log zerolog.Logger) *RecurringExpenseRepository {
	return &RecurringExpenseRepository{db: db, log: log.With().Str("repo", "recurring_expense").Logger()}
}

func (r *RecurringExpenseRepository) Create(e *wallet.RecurringExpense) error {
	_, err := r.db.Exec(
		`INSERT INTO recurring_expenses (id, wallet_id, name, amount, currency, periodicity, category) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.WalletID, e.Name, e.Amount.String(), e.Currency, e.Periodicity, e.Category,
	)
	if err != nil {
		return fmt.Errorf("create recurring expense: %w", err)
	}
	return nil
}

func (r *RecurringExpenseRepository) ListByWallet(walletID uuid.UUID) ([]wallet.RecurringExpense, error) {
	rows, err := r.db.Query(`SELECT id, wallet_id, name, amount, currency, periodicity, category FROM recurring_expenses WHERE wallet_id = ? ORDER BY name`, walletID)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	defer rows.Close()

	var out []wallet.RecurringExpense
	for rows.Next() {
		var e wallet.RecurringExpense
		var amount string
		if err := rows.Scan(&e.ID, &e.WalletID, &e.Name, &amount, &e.Currency, &e.Periodicity, &e.Category); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *RecurringExpenseRepository) Delete(id uuid.UUID) error {
	res, err := r.db.Exec(`DELETE FROM recurring_expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	return rowsAffectedOrNotFound(res, "recurring_expense")
}

// YearGoalRepository manages the year_goals table (wallet.db).
type YearGoalRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewYearGoalRepository(db *sql.DB, log zerolog.Logger) *YearGoalRepository {
	return &YearGoalRepository{db: db, log: log.With().Str("repo", "year_goal").Logger()}
}

func (r *YearGoalRepository) Create(g *wallet.YearGoal) error {
	_, err := r.db.Exec(
		`INSERT INTO year_goals (id, wallet_id, year, target_amt, currency, label) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.WalletID, g.Year, g.TargetAmt.String(), g.Currency, g.Label,
	)
	if err != nil {
		return fmt.Errorf("create year goal: %w", err)
	}
	return nil
}

func (r *YearGoalRepository) ListByWallet(walletID uuid.UUID) ([]wallet.YearGoal, error) {
	rows, err := r.db.Query(`SELECT id, wallet_id, year, target_amt, currency, label FROM year_goals WHERE wallet_id = ? ORDER BY year`, walletID)
	if err != nil {
		return nil, fmt.Errorf("list year goals: %w", err)
	}
	defer rows.Close()

	var out []wallet.YearGoal
	for rows.Next() {
		var g wallet.YearGoal
		var target string
		if err := rows.Scan(&g.ID, &g.WalletID, &g.Year, &target, &g.Currency, &g.Label); err != nil {
			return nil, fmt.Errorf("scan year goal: %w", err)
		}
		if g.TargetAmt, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("parse target_amt: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *YearGoalRepository) Delete(id uuid.UUID) error {
	res, err := r.db.Exec(`DELETE FROM year_goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete year goal: %w", err)
	}
	return rowsAffectedOrNotFound(res, "year_goal")
}

// UserNoteRepository manages the user_notes table (wallet.db).
type UserNoteRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewUserNoteRepository(db *sql.DB, log zerolog.Logger) *UserNoteRepository {
	return &UserNoteRepository{db: db, log: log.With().Str("repo", "user_note").Logger()}
}

func (r *UserNoteRepository) Create(n *wallet.UserNote) error {
	n.CreatedAt = time.Now()
	_, err := r.db.Exec(`INSERT INTO user_notes (id, user_id, body, created_at) VALUES (?, ?, ?, ?)`, n.ID, n.UserID, n.Body, n.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("create user note: %w", err)
	}
	return nil
}

func (r *UserNoteRepository) ListByUser(userID uuid.UUID) ([]wallet.UserNote, error) {
	rows, err := r.db.Query(`SELECT id, user_id, body, created_at FROM user_notes WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user notes: %w", err)
	}
	defer rows.Close()

	var out []wallet.UserNote
	for rows.Next() {
		var n wallet.UserNote
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan user note: %w", err)
		}
		n.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *UserNoteRepository) Delete(id uuid.UUID) error {
	res, err := r.db.Exec(`DELETE FROM user_notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user note: %w", err)
	}
	return rowsAffectedOrNotFound(res, "user_note")
}
