package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPair(t *testing.T) (wallet, ledger *sql.DB) {
	t.Helper()
	dir := t.TempDir()

	walletDB, err := New(Config{Path: filepath.Join(dir, "wallet.db"), Profile: ProfileStandard, Name: "wallet"})
	require.NoError(t, err)
	t.Cleanup(func() { walletDB.Close() })
	require.NoError(t, walletDB.Migrate())

	ledgerDB, err := New(Config{Path: filepath.Join(dir, "ledger.db"), Profile: ProfileLedger, Name: "ledger"})
	require.NoError(t, err)
	t.Cleanup(func() { ledgerDB.Close() })
	require.NoError(t, ledgerDB.Migrate())

	return walletDB.Conn(), ledgerDB.Conn()
}

func seedAccount(t *testing.T, wallet *sql.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO users (id, email, username, active, created_at) VALUES ('u1', 'a@b.c', 'a', 1, 0)`,
		`INSERT INTO banks (id, name, short_code) VALUES ('b1', 'Bank', 'BNK')`,
		`INSERT INTO wallets (id, user_id, name, base_ccy, created_at) VALUES ('w1', 'u1', 'Main', 'PLN', 0)`,
		`INSERT INTO deposit_accounts (id, wallet_id, bank_id, name, type, currency, account_number_enc, account_number_fp, created_at)
		 VALUES ('acc1', 'w1', 'b1', 'Checking', 'CURRENT', 'PLN', X'00', X'01', 0)`,
		`INSERT INTO deposit_account_balances (account_id, available, blocked) VALUES ('acc1', '100', '0')`,
	}
	for _, stmt := range stmts {
		_, err := wallet.Exec(stmt)
		require.NoError(t, err)
	}
}

func TestIntegrityValidatorCleanState(t *testing.T) {
	wallet, ledger := openPair(t)
	seedAccount(t, wallet)

	_, err := ledger.Exec(`INSERT INTO transactions (id, account_id, type, amount, balance_before, balance_after, status, transaction_date, created_at)
		VALUES ('t1', 'acc1', 'TRANSFER', '-20', '100', '80', 'COMPLETED', 10, 10),
		       ('t2', 'acc1', 'TRANSFER', '5', '80', '85', 'COMPLETED', 20, 20)`)
	require.NoError(t, err)

	result, err := NewIntegrityValidator(wallet, ledger).ValidateAll()
	require.NoError(t, err)
	assert.True(t, result.Valid, result.FormatIssues())
}

func TestIntegrityValidatorFindsOrphanLedgerRows(t *testing.T) {
	wallet, ledger := openPair(t)
	seedAccount(t, wallet)

	_, err := ledger.Exec(`INSERT INTO transactions (id, account_id, type, amount, balance_before, balance_after, status, transaction_date, created_at)
		VALUES ('t1', 'ghost-account', 'TRANSFER', '10', '0', '10', 'COMPLETED', 10, 10)`)
	require.NoError(t, err)
	_, err = ledger.Exec(`INSERT INTO capital_gains (id, transaction_id, account_id, kind, amount, currency, created_at)
		VALUES ('cg1', 'ghost-tx', 'acc1', 'DEPOSIT_INTEREST', '1', 'PLN', 10)`)
	require.NoError(t, err)

	issues, err := NewIntegrityValidator(wallet, ledger).ValidateLedgerReferences()
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], "ghost-account")
	assert.Contains(t, issues[1], "ghost-tx")
}

func TestIntegrityValidatorFindsBrokenBalanceChain(t *testing.T) {
	wallet, ledger := openPair(t)
	seedAccount(t, wallet)

	// t2's balance_before does not continue t1's balance_after, and its own
	// arithmetic is also off.
	_, err := ledger.Exec(`INSERT INTO transactions (id, account_id, type, amount, balance_before, balance_after, status, transaction_date, created_at)
		VALUES ('t1', 'acc1', 'TRANSFER', '-20', '100', '80', 'COMPLETED', 10, 10),
		       ('t2', 'acc1', 'TRANSFER', '5', '90', '100', 'COMPLETED', 20, 20)`)
	require.NoError(t, err)

	issues, err := NewIntegrityValidator(wallet, ledger).ValidateBalanceChains()
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], "balance arithmetic")
	assert.Contains(t, issues[1], "breaks the chain")
}

func TestIntegrityValidatorFindsMissingBalanceRow(t *testing.T) {
	wallet, ledger := openPair(t)
	seedAccount(t, wallet)

	_, err := wallet.Exec(`DELETE FROM deposit_account_balances WHERE account_id = 'acc1'`)
	require.NoError(t, err)

	issues, err := NewIntegrityValidator(wallet, ledger).ValidateBalanceRows()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "acc1")
}

func TestIntegrityValidatorFindsMalformedMonthKey(t *testing.T) {
	wallet, ledger := openPair(t)

	_, err := wallet.Exec(`INSERT INTO fx_monthly_snapshots (month_key, rates_json) VALUES ('2025/11', '{}')`)
	require.NoError(t, err)

	issues, err := NewIntegrityValidator(wallet, ledger).ValidateMonthKeys()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "2025/11")
}
