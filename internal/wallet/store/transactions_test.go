package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/walletcore/internal/database"
	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/walleterr"
)

func dec(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

type txFixture struct {
	deposits     *DepositAccountRepository
	transactions *TransactionRepository
	accountID    uuid.UUID
}

// newTxFixture opens a fresh ledger/wallet database pair and seeds one
// deposit account with the given starting balance.
func newTxFixture(t *testing.T, accountType domain.AccountType, startingBalance string) txFixture {
	t.Helper()
	dir := t.TempDir()

	walletDB, err := database.New(database.Config{Path: filepath.Join(dir, "wallet.db"), Profile: database.ProfileStandard, Name: "wallet"})
	require.NoError(t, err)
	t.Cleanup(func() { walletDB.Close() })
	require.NoError(t, walletDB.Migrate())

	ledgerDB, err := database.New(database.Config{Path: filepath.Join(dir, "ledger.db"), Profile: database.ProfileLedger, Name: "ledger"})
	require.NoError(t, err)
	t.Cleanup(func() { ledgerDB.Close() })
	require.NoError(t, ledgerDB.Migrate())

	accountID := uuid.New()
	seed := []struct {
		q    string
		args []interface{}
	}{
		{`INSERT INTO users (id, email, username, active, created_at) VALUES ('u1', 'a@b.c', 'a', 1, 0)`, nil},
		{`INSERT INTO banks (id, name, short_code) VALUES ('b1', 'Bank', 'BNK')`, nil},
		{`INSERT INTO wallets (id, user_id, name, base_ccy, created_at) VALUES ('w1', 'u1', 'Main', 'PLN', 0)`, nil},
		{`INSERT INTO deposit_accounts (id, wallet_id, bank_id, name, type, currency, account_number_enc, account_number_fp, created_at)
		  VALUES (?, 'w1', 'b1', 'Checking', ?, 'PLN', X'00', X'01', 0)`, []interface{}{accountID, accountType}},
		{`INSERT INTO deposit_account_balances (account_id, available, blocked) VALUES (?, ?, '0')`, []interface{}{accountID, startingBalance}},
	}
	for _, stmt := range seed {
		_, err := walletDB.Exec(stmt.q, stmt.args...)
		require.NoError(t, err)
	}

	log := zerolog.Nop()
	return txFixture{
		deposits:     NewDepositAccountRepository(walletDB.Conn(), log),
		transactions: NewTransactionRepository(ledgerDB.Conn(), log),
		accountID:    accountID,
	}
}

func TestCreateBatch_ChainsBalances(t *testing.T) {
	f := newTxFixture(t, domain.AccountCurrent, "1000")

	created, err := f.transactions.CreateBatch(f.deposits, f.accountID, domain.AccountCurrent, domain.PLN, []NewTransactionInput{
		{Type: "TRANSFER", Amount: dec("-200"), Description: "x", TransactionDate: time.Now()},
		{Type: "TRANSFER", Amount: dec("50"), TransactionDate: time.Now()},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.True(t, dec("1000").Equal(created[0].BalanceBefore))
	assert.True(t, dec("800").Equal(created[0].BalanceAfter))
	assert.True(t, dec("800").Equal(created[1].BalanceBefore))
	assert.True(t, dec("850").Equal(created[1].BalanceAfter))

	bal, err := f.deposits.GetBalance(f.accountID)
	require.NoError(t, err)
	assert.True(t, dec("850").Equal(bal.Available), "persisted available must equal the chain's final balance_after")
}

func TestCreateBatch_RejectsOverdraftOnNonCredit(t *testing.T) {
	f := newTxFixture(t, domain.AccountCurrent, "100")

	_, err := f.transactions.CreateBatch(f.deposits, f.accountID, domain.AccountCurrent, domain.PLN, []NewTransactionInput{
		{Type: "TRANSFER", Amount: dec("-150"), TransactionDate: time.Now()},
	})
	require.Error(t, err)
	werr, ok := walleterr.As(err)
	require.True(t, ok)
	assert.Equal(t, walleterr.KindValidation, werr.Kind)

	// the whole batch must have rolled back
	bal, err := f.deposits.GetBalance(f.accountID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(bal.Available))
	rows, err := f.transactions.ListFromDate(f.accountID, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateBatch_CreditAccountMayGoNegative(t *testing.T) {
	f := newTxFixture(t, domain.AccountCredit, "0")

	created, err := f.transactions.CreateBatch(f.deposits, f.accountID, domain.AccountCredit, domain.PLN, []NewTransactionInput{
		{Type: "CARD", Amount: dec("-75"), TransactionDate: time.Now()},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.True(t, dec("-75").Equal(created[0].BalanceAfter))
}

func TestCreateBatch_AttachesCapitalGain(t *testing.T) {
	f := newTxFixture(t, domain.AccountCurrent, "0")

	kind := domain.GainDepositInterest
	created, err := f.transactions.CreateBatch(f.deposits, f.accountID, domain.AccountCurrent, domain.PLN, []NewTransactionInput{
		{Type: "INTEREST", Amount: dec("12.34"), TransactionDate: time.Now(), CapitalGainKind: &kind},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	gains := NewCapitalGainRepository(f.transactions.db, zerolog.Nop())
	list, err := gains.ListByAccount(f.accountID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.GainDepositInterest, list[0].Kind)
	assert.Equal(t, created[0].ID, list[0].TransactionID)
	assert.True(t, dec("12.34").Equal(list[0].Amount))
}

func TestCapitalGainUpsertIsKeyedByTransaction(t *testing.T) {
	f := newTxFixture(t, domain.AccountCurrent, "1000")

	created, err := f.transactions.CreateBatch(f.deposits, f.accountID, domain.AccountCurrent, domain.PLN, []NewTransactionInput{
		{Type: "SELL_PROCEEDS", Amount: dec("700"), TransactionDate: time.Now()},
	})
	require.NoError(t, err)

	gains := NewCapitalGainRepository(f.transactions.db, zerolog.Nop())
	require.NoError(t, gains.Upsert(&wallet.CapitalGain{
		ID: uuid.New(), TransactionID: created[0].ID, AccountID: f.accountID,
		Kind: domain.GainBrokerRealizedPnL, Amount: dec("150"), Currency: domain.USD,
	}))
	// replaying an edited event stream refreshes the same transaction's row
	require.NoError(t, gains.Upsert(&wallet.CapitalGain{
		ID: uuid.New(), TransactionID: created[0].ID, AccountID: f.accountID,
		Kind: domain.GainBrokerRealizedPnL, Amount: dec("175"), Currency: domain.USD,
	}))

	list, err := gains.ListByAccount(f.accountID)
	require.NoError(t, err)
	require.Len(t, list, 1, "transaction_id is unique, the second upsert overwrites")
	assert.True(t, dec("175").Equal(list[0].Amount))

	require.NoError(t, gains.DeleteByTransaction(created[0].ID))
	list, err = gains.ListByAccount(f.accountID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateAmount_RecomputesChainForward(t *testing.T) {
	f := newTxFixture(t, domain.AccountCurrent, "1000")

	base := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	created, err := f.transactions.CreateBatch(f.deposits, f.accountID, domain.AccountCurrent, domain.PLN, []NewTransactionInput{
		{Type: "TRANSFER", Amount: dec("-200"), TransactionDate: base},
		{Type: "TRANSFER", Amount: dec("50"), TransactionDate: base.Add(time.Hour)},
		{Type: "TRANSFER", Amount: dec("-100"), TransactionDate: base.Add(2 * time.Hour)},
	})
	require.NoError(t, err)

	// change the middle row's amount; every later row must re-chain
	require.NoError(t, f.transactions.UpdateAmount(f.deposits, f.accountID, created[1].ID, dec("80")))

	chain, err := f.transactions.ListFromDate(f.accountID, time.Unix(0, 0))
	require.NoError(t, err)
	require.Len(t, chain, 3)
	for i := 1; i < len(chain); i++ {
		assert.True(t, chain[i-1].BalanceAfter.Equal(chain[i].BalanceBefore),
			"balance_after(t_%d) must equal balance_before(t_%d)", i-1, i)
	}
	assert.True(t, dec("880").Equal(chain[1].BalanceAfter))
	assert.True(t, dec("780").Equal(chain[2].BalanceAfter))

	bal, err := f.deposits.GetBalance(f.accountID)
	require.NoError(t, err)
	assert.True(t, dec("780").Equal(bal.Available))
}
