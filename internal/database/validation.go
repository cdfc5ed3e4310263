package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// IntegrityValidator cross-checks invariants that span the two databases.
// SQLite enforces foreign keys only within one file, so the ledger rows
// (transactions, brokerage events, capital gains) can reference wallet.db
// entities that no longer exist; the validator finds those orphans, plus
// broken balance chains and malformed snapshot month keys.
type IntegrityValidator struct {
	wallet *sql.DB
	ledger *sql.DB
}

func NewIntegrityValidator(wallet, ledger *sql.DB) *IntegrityValidator {
	return &IntegrityValidator{wallet: wallet, ledger: ledger}
}

// ValidationResult aggregates every issue found by a full validation pass.
type ValidationResult struct {
	Valid  bool
	Issues []string
}

func (r *ValidationResult) FormatIssues() string {
	if r.Valid {
		return "no integrity issues found"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d integrity issue(s):\n", len(r.Issues))
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "  - %s\n", issue)
	}
	return b.String()
}

// ValidateBalanceRows checks the 1:1 pairing between deposit accounts and
// their balance rows: every account must have exactly one balance row and
// no balance row may outlive its account.
func (v *IntegrityValidator) ValidateBalanceRows() ([]string, error) {
	var issues []string

	rows, err := v.wallet.Query(`
		SELECT a.id FROM deposit_accounts a
		LEFT JOIN deposit_account_balances b ON b.account_id = a.id
		WHERE b.account_id IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("query accounts without balance row: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		issues = append(issues, fmt.Sprintf("deposit account %s has no balance row", id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orphans, err := v.wallet.Query(`
		SELECT b.account_id FROM deposit_account_balances b
		LEFT JOIN deposit_accounts a ON a.id = b.account_id
		WHERE a.id IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("query orphan balance rows: %w", err)
	}
	defer orphans.Close()
	for orphans.Next() {
		var id string
		if err := orphans.Scan(&id); err != nil {
			return nil, err
		}
		issues = append(issues, fmt.Sprintf("balance row for deleted deposit account %s", id))
	}
	return issues, orphans.Err()
}

// ValidateLedgerReferences finds ledger rows pointing at wallet.db entities
// that do not exist. These cannot be caught by SQLite itself because the
// two tables live in different database files.
func (v *IntegrityValidator) ValidateLedgerReferences() ([]string, error) {
	depositIDs, err := v.collectIDs(v.wallet, `SELECT id FROM deposit_accounts`)
	if err != nil {
		return nil, err
	}
	brokerageIDs, err := v.collectIDs(v.wallet, `SELECT id FROM brokerage_accounts`)
	if err != nil {
		return nil, err
	}
	txIDs, err := v.collectIDs(v.ledger, `SELECT id FROM transactions`)
	if err != nil {
		return nil, err
	}

	var issues []string

	check := func(query, format string, known map[string]struct{}) error {
		rows, err := v.ledger.Query(query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id, ref string
			if err := rows.Scan(&id, &ref); err != nil {
				return err
			}
			if _, ok := known[ref]; !ok {
				issues = append(issues, fmt.Sprintf(format, id, ref))
			}
		}
		return rows.Err()
	}

	if err := check(`SELECT id, account_id FROM transactions`,
		"transaction %s references missing deposit account %s", depositIDs); err != nil {
		return nil, fmt.Errorf("check transaction references: %w", err)
	}
	if err := check(`SELECT id, brokerage_id FROM brokerage_events`,
		"brokerage event %s references missing brokerage account %s", brokerageIDs); err != nil {
		return nil, fmt.Errorf("check brokerage event references: %w", err)
	}
	if err := check(`SELECT id, transaction_id FROM capital_gains`,
		"capital gain %s references missing transaction %s", txIDs); err != nil {
		return nil, fmt.Errorf("check capital gain references: %w", err)
	}

	return issues, nil
}

// ValidateBalanceChains verifies, per deposit account, that the transaction
// chain is arithmetically closed: balance_after = balance_before + amount
// on every row, and each row's balance_before equals the previous row's
// balance_after in (date, creation) order.
func (v *IntegrityValidator) ValidateBalanceChains() ([]string, error) {
	rows, err := v.ledger.Query(`
		SELECT id, account_id, amount, balance_before, balance_after
		FROM transactions
		ORDER BY account_id, transaction_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("query transaction chains: %w", err)
	}
	defer rows.Close()

	var issues []string
	var prevAccount string
	var prevAfter decimal.Decimal

	for rows.Next() {
		var id, account, amountStr, beforeStr, afterStr string
		if err := rows.Scan(&id, &account, &amountStr, &beforeStr, &afterStr); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			issues = append(issues, fmt.Sprintf("transaction %s has unparseable amount %q", id, amountStr))
			continue
		}
		before, err := decimal.NewFromString(beforeStr)
		if err != nil {
			issues = append(issues, fmt.Sprintf("transaction %s has unparseable balance_before %q", id, beforeStr))
			continue
		}
		after, err := decimal.NewFromString(afterStr)
		if err != nil {
			issues = append(issues, fmt.Sprintf("transaction %s has unparseable balance_after %q", id, afterStr))
			continue
		}

		if !before.Add(amount).Equal(after) {
			issues = append(issues, fmt.Sprintf("transaction %s breaks balance arithmetic: %s + %s != %s", id, before, amount, after))
		}
		if account == prevAccount && !before.Equal(prevAfter) {
			issues = append(issues, fmt.Sprintf("transaction %s breaks the chain on account %s: balance_before %s != previous balance_after %s", id, account, before, prevAfter))
		}
		prevAccount, prevAfter = account, after
	}
	return issues, rows.Err()
}

// ValidateMonthKeys checks every snapshot table for month keys that do not
// match the YYYY-MM format the aggregator groups by.
func (v *IntegrityValidator) ValidateMonthKeys() ([]string, error) {
	tables := []string{
		"fx_monthly_snapshots",
		"deposit_account_monthly_snapshots",
		"brokerage_account_monthly_snapshots",
		"metal_holding_monthly_snapshots",
		"real_estate_monthly_snapshots",
	}

	var issues []string
	for _, table := range tables {
		rows, err := v.wallet.Query(fmt.Sprintf(
			`SELECT DISTINCT month_key FROM %s WHERE month_key NOT GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]'`, table))
		if err != nil {
			return nil, fmt.Errorf("check month keys in %s: %w", table, err)
		}
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				rows.Close()
				return nil, err
			}
			issues = append(issues, fmt.Sprintf("%s holds malformed month_key %q", table, key))
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return issues, nil
}

// ValidateAll runs every check and aggregates the findings.
func (v *IntegrityValidator) ValidateAll() (*ValidationResult, error) {
	result := &ValidationResult{Valid: true}

	checks := []func() ([]string, error){
		v.ValidateBalanceRows,
		v.ValidateLedgerReferences,
		v.ValidateBalanceChains,
		v.ValidateMonthKeys,
	}
	for _, check := range checks {
		issues, err := check()
		if err != nil {
			return nil, err
		}
		result.Issues = append(result.Issues, issues...)
	}

	result.Valid = len(result.Issues) == 0
	return result, nil
}

func (v *IntegrityValidator) collectIDs(db *sql.DB, query string) (map[string]struct{}, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("collect ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
