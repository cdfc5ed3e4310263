package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/security"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/walleterr"
)

// DepositAccountRepository manages deposit_accounts and their single
// balance row (wallet.db). Account numbers are never stored in the clear:
// callers pass the codec so Create can encrypt and fingerprint without the
// repository holding key material; FindByFingerprint takes a fingerprint
// the caller already computed.
type DepositAccountRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewDepositAccountRepository(db *sql.DB, log zerolog.Logger) *DepositAccountRepository {
	return &DepositAccountRepository{db: db, log: log.With().Str("repo", "deposit_account").Logger()}
}

// Create inserts a DepositAccount with its initial zero balance row,
// atomically, so every account always has exactly one balance.
func (r *DepositAccountRepository) Create(a *wallet.DepositAccount, codec *security.AccountNumberCodec, accountNumber string) error {
	ciphertext, fingerprint, err := codec.Encode(accountNumber)
	if err != nil {
		return fmt.Errorf("encode account number: %w", err)
	}
	a.AccountNumberEnc = ciphertext
	a.AccountNumberFP = fingerprint
	a.CreatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO deposit_accounts (id, wallet_id, bank_id, name, type, currency, account_number_enc, account_number_fp, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.WalletID, a.BankID, a.Name, a.Type, a.Currency, a.AccountNumberEnc, a.AccountNumberFP, a.CreatedAt.Unix(),
	)
	if err != nil {
		return mapUniqueViolation(err, "deposit account name or fingerprint already in use")
	}

	if _, err := tx.Exec(
		`INSERT INTO deposit_account_balances (account_id, available, blocked) VALUES (?, '0', '0')`,
		a.ID,
	); err != nil {
		return fmt.Errorf("create balance row: %w", err)
	}

	return tx.Commit()
}

func (r *DepositAccountRepository) GetByID(id uuid.UUID) (*wallet.DepositAccount, error) {
	row := r.db.QueryRow(
		`SELECT id, wallet_id, bank_id, name, type, currency, account_number_enc, account_number_fp, created_at
		 FROM deposit_accounts WHERE id = ?`, id)
	return scanDepositAccount(row, id)
}

// FindByFingerprint looks up an account by its HMAC fingerprint, enabling
// constant-time equality search without decrypting any ciphertext.
func (r *DepositAccountRepository) FindByFingerprint(fingerprint []byte) (*wallet.DepositAccount, error) {
	row := r.db.QueryRow(
		`SELECT id, wallet_id, bank_id, name, type, currency, account_number_enc, account_number_fp, created_at
		 FROM deposit_accounts WHERE account_number_fp = ?`, fingerprint)
	return scanDepositAccount(row, "fingerprint")
}

func scanDepositAccount(row *sql.Row, ref interface{}) (*wallet.DepositAccount, error) {
	var a wallet.DepositAccount
	var createdAt int64
	if err := row.Scan(&a.ID, &a.WalletID, &a.BankID, &a.Name, &a.Type, &a.Currency, &a.AccountNumberEnc, &a.AccountNumberFP, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, walleterr.NotFound("deposit_account", ref)
		}
		return nil, fmt.Errorf("scan deposit account: %w", err)
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &a, nil
}

func (r *DepositAccountRepository) ListByWallet(walletID uuid.UUID) ([]wallet.DepositAccount, error) {
	rows, err := r.db.Query(
		`SELECT id, wallet_id, bank_id, name, type, currency, account_number_enc, account_number_fp, created_at
		 FROM deposit_accounts WHERE wallet_id = ? ORDER BY name`, walletID)
	if err != nil {
		return nil, fmt.Errorf("list deposit accounts: %w", err)
	}
	defer rows.Close()

	var out []wallet.DepositAccount
	for rows.Next() {
		var a wallet.DepositAccount
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.WalletID, &a.BankID, &a.Name, &a.Type, &a.Currency, &a.AccountNumberEnc, &a.AccountNumberFP, &createdAt); err != nil {
			return nil, fmt.Errorf("scan deposit account: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *DepositAccountRepository) Update(a *wallet.DepositAccount) error {
	res, err := r.db.Exec(
		`UPDATE deposit_accounts SET bank_id = ?, name = ?, type = ? WHERE id = ?`,
		a.BankID, a.Name, a.Type, a.ID,
	)
	if err != nil {
		return mapUniqueViolation(err, "deposit account name already in use")
	}
	return rowsAffectedOrNotFound(res, "deposit_account")
}

func (r *DepositAccountRepository) Delete(id uuid.UUID) error {
	res, err := r.db.Exec(`DELETE FROM deposit_accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete deposit account: %w", err)
	}
	return rowsAffectedOrNotFound(res, "deposit_account")
}

// GetBalance returns the single balance row for an account.
func (r *DepositAccountRepository) GetBalance(accountID uuid.UUID) (*wallet.DepositAccountBalance, error) {
	row := r.db.QueryRow(`SELECT account_id, available, blocked FROM deposit_account_balances WHERE account_id = ?`, accountID)
	var b wallet.DepositAccountBalance
	var available, blocked string
	if err := row.Scan(&b.AccountID, &available, &blocked); err != nil {
		if err == sql.ErrNoRows {
			return nil, walleterr.NotFound("deposit_account_balance", accountID)
		}
		return nil, fmt.Errorf("scan balance: %w", err)
	}
	var err error
	if b.Available, err = decimal.NewFromString(available); err != nil {
		return nil, fmt.Errorf("parse available: %w", err)
	}
	if b.Blocked, err = decimal.NewFromString(blocked); err != nil {
		return nil, fmt.Errorf("parse blocked: %w", err)
	}
	return &b, nil
}

// LockBalanceForUpdate takes the write lock inside tx, then reads the
// current available balance. SQLite has no row-level locks: a no-op
// UPDATE of the balance row takes the wallet.db write lock, held for the
// remainder of tx, so concurrent inserts on the same account serialize.
func (r *DepositAccountRepository) LockBalanceForUpdate(tx *sql.Tx, accountID uuid.UUID) (decimal.Decimal, error) {
	if _, err := tx.Exec(`UPDATE deposit_account_balances SET available = available WHERE account_id = ?`, accountID); err != nil {
		return decimal.Decimal{}, fmt.Errorf("lock balance: %w", err)
	}
	row := tx.QueryRow(`SELECT available FROM deposit_account_balances WHERE account_id = ?`, accountID)
	var available string
	if err := row.Scan(&available); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Decimal{}, walleterr.NotFound("deposit_account_balance", accountID)
		}
		return decimal.Decimal{}, fmt.Errorf("lock balance: %w", err)
	}
	return decimal.NewFromString(available)
}

// SetAvailable persists the new available balance within tx.
func (r *DepositAccountRepository) SetAvailable(tx *sql.Tx, accountID uuid.UUID, available decimal.Decimal) error {
	_, err := tx.Exec(`UPDATE deposit_account_balances SET available = ? WHERE account_id = ?`, available.String(), accountID)
	if err != nil {
		return fmt.Errorf("set available: %w", err)
	}
	return nil
}


// WithTx runs fn inside a transaction on the wallet.db connection.
func (r *DepositAccountRepository) WithTx(fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}
