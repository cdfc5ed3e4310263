// Package store holds the sqlite-backed repositories for the wallet
// domain entities defined in internal/wallet. Each repository wraps a
// *sql.DB handle to either ledger.db or wallet.db and speaks plain SQL:
// a small struct holding the connection and a scoped logger, exported
// methods that build one query at a time and wrap errors with fmt.Errorf.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/walleterr"
)

// UserRepository manages the users table (wallet.db).
type UserRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewUserRepository(db *sql.DB, log zerolog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log.With().Str("repo", "user").Logger()}
}

func (r *UserRepository) Create(u *wallet.User) error {
	u.CreatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO users (id, email, username, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.Active, u.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Activate(id uuid.UUID) error {
	res, err := r.db.Exec(`UPDATE users SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}
	return rowsAffectedOrNotFound(res, "user")
}

func (r *UserRepository) GetByID(id uuid.UUID) (*wallet.User, error) {
	row := r.db.QueryRow(`SELECT id, email, username, active, created_at FROM users WHERE id = ?`, id)
	return scanUser(row, id)
}

func (r *UserRepository) GetByEmail(email string) (*wallet.User, error) {
	row := r.db.QueryRow(`SELECT id, email, username, active, created_at FROM users WHERE email = ?`, email)
	return scanUser(row, email)
}

func scanUser(row *sql.Row, ref interface{}) (*wallet.User, error) {
	var u wallet.User
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Active, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, walleterr.NotFound("user", ref)
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// BankRepository manages the reference banks table (wallet.db).
type BankRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewBankRepository(db *sql.DB, log zerolog.Logger) *BankRepository {
	return &BankRepository{db: db, log: log.With().Str("repo", "bank").Logger()}
}

func (r *BankRepository) Create(b *wallet.Bank) error {
	if _, err := r.db.Exec(`INSERT INTO banks (id, name, short_code) VALUES (?, ?, ?)`, b.ID, b.Name, b.ShortCode); err != nil {
		return fmt.Errorf("failed to create bank: %w", err)
	}
	return nil
}

func (r *BankRepository) List() ([]wallet.Bank, error) {
	rows, err := r.db.Query(`SELECT id, name, short_code FROM banks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	defer rows.Close()

	var banks []wallet.Bank
	for rows.Next() {
		var b wallet.Bank
		if err := rows.Scan(&b.ID, &b.Name, &b.ShortCode); err != nil {
			return nil, fmt.Errorf("failed to scan bank: %w", err)
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

// WalletRepository manages the wallets table (wallet.db). A wallet's
// name is unique per owner (uq_wallet_owner_name).
type WalletRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewWalletRepository(db *sql.DB, log zerolog.Logger) *WalletRepository {
	return &WalletRepository{db: db, log: log.With().Str("repo", "wallet").Logger()}
}

func (r *WalletRepository) Create(w *wallet.Wallet) error {
	w.CreatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO wallets (id, user_id, name, base_ccy, created_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Name, w.BaseCCY, w.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *WalletRepository) GetByID(id uuid.UUID) (*wallet.Wallet, error) {
	row := r.db.QueryRow(`SELECT id, user_id, name, base_ccy, created_at FROM wallets WHERE id = ?`, id)
	var w wallet.Wallet
	var createdAt int64
	if err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.BaseCCY, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, walleterr.NotFound("wallet", id)
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	w.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &w, nil
}

func (r *WalletRepository) ListByUser(userID uuid.UUID) ([]wallet.Wallet, error) {
	rows, err := r.db.Query(`SELECT id, user_id, name, base_ccy, created_at FROM wallets WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []wallet.Wallet
	for rows.Next() {
		var w wallet.Wallet
		var createdAt int64
		if err := rows.Scan(&w.ID, &w.UserID, &w.Name, &w.BaseCCY, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		w.CreatedAt = time.Unix(createdAt, 0).UTC()
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// ListAll returns every wallet across every user, used by the monthly
// snapshot scheduler job which runs system-wide rather than per-request.
func (r *WalletRepository) ListAll() ([]wallet.Wallet, error) {
	rows, err := r.db.Query(`SELECT id, user_id, name, base_ccy, created_at FROM wallets ORDER BY user_id, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list all wallets: %w", err)
	}
	defer rows.Close()

	var wallets []wallet.Wallet
	for rows.Next() {
		var w wallet.Wallet
		var createdAt int64
		if err := rows.Scan(&w.ID, &w.UserID, &w.Name, &w.BaseCCY, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		w.CreatedAt = time.Unix(createdAt, 0).UTC()
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func rowsAffectedOrNotFound(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return walleterr.NotFound(what, "")
	}
	return nil
}

// mapUniqueViolation turns driver-level sqlite errors into the error
// kinds handlers speak: "UNIQUE constraint failed" becomes a Conflict,
// a busy/locked database (a writer held the file past busy_timeout)
// becomes a retryable Transient. Any other error passes through wrapped
// with context.
func mapUniqueViolation(err error, msg string) error {
	if err == nil {
		return nil
	}
	text := err.Error()
	if strings.Contains(text, "UNIQUE constraint failed") {
		return walleterr.Conflict(msg)
	}
	if strings.Contains(text, "database is locked") || strings.Contains(text, "SQLITE_BUSY") {
		return walleterr.Transient("database busy, retry", err)
	}
	return fmt.Errorf("query failed: %w", err)
}
