package snapshot

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
	"github.com/aristath/walletcore/internal/wallet/valuate"
)

// fakeRepo records upserts in-memory, keyed by (entity_id, month_key), so
// tests can assert idempotence without a real database.
type fakeRepo struct {
	fx         map[string]fx.Rates
	deposits   map[string]DepositSnapshotRow
	brokerages map[string]BrokerageSnapshotRow
	writes     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		fx:         map[string]fx.Rates{},
		deposits:   map[string]DepositSnapshotRow{},
		brokerages: map[string]BrokerageSnapshotRow{},
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

func (f *fakeRepo) UpsertFxSnapshot(tx *sql.Tx, monthKey string, rates fx.Rates) error {
	f.fx[monthKey] = rates
	f.writes++
	return nil
}

func (f *fakeRepo) UpsertDepositSnapshot(tx *sql.Tx, row DepositSnapshotRow) error {
	f.deposits[row.AccountID.String()+row.MonthKey] = row
	f.writes++
	return nil
}

func (f *fakeRepo) UpsertBrokerageSnapshot(tx *sql.Tx, row BrokerageSnapshotRow) error {
	f.brokerages[row.AccountID.String()+row.MonthKey] = row
	f.writes++
	return nil
}

func (f *fakeRepo) UpsertMetalSnapshot(tx *sql.Tx, row MetalSnapshotRow) error { return nil }

func (f *fakeRepo) UpsertRealEstateSnapshot(tx *sql.Tx, row RealEstateSnapshotRow) error { return nil }

func dec(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestCreate_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	engine := New(repo, zerolog.Nop())

	walletID := uuid.New()
	accountID := uuid.New()
	in := Inputs{
		WalletID: walletID,
		MonthKey: "2025-11",
		BaseCCY:  domain.PLN,
		Rates:    fx.Rates{domain.PLN: dec("1")},
		DepositAccounts: []DepositAccountInput{
			{AccountID: accountID, Currency: domain.PLN, Available: dec("1000")},
		},
	}

	_, err := engine.Create(context.Background(), in)
	require.NoError(t, err)
	firstDeposit := repo.deposits[accountID.String()+"2025-11"]

	_, err = engine.Create(context.Background(), in)
	require.NoError(t, err)
	secondDeposit := repo.deposits[accountID.String()+"2025-11"]

	assert.Equal(t, firstDeposit, secondDeposit, "re-running with identical inputs must produce byte-identical rows")
	assert.Len(t, repo.deposits, 1, "second run must not create a new row, only overwrite")
}

func TestCreate_BrokerageFreezesNativeAndBase(t *testing.T) {
	repo := newFakeRepo()
	engine := New(repo, zerolog.Nop())

	accountID := uuid.New()
	in := Inputs{
		WalletID: uuid.New(),
		MonthKey: "2025-11",
		BaseCCY:  domain.PLN,
		Rates:    fx.Rates{domain.USD: dec("1"), domain.PLN: dec("4")},
		BrokerageAccounts: []BrokerageAccountInput{
			{
				AccountID: accountID,
				Currency:  domain.USD,
				LinkedCash: []valuate.CashAccount{
					{AccountID: uuid.New(), Currency: domain.USD, Available: dec("100")},
				},
				Holdings: []valuate.HoldingPosition{
					{Symbol: "AAPL", QuoteSymbol: "AAPL", Quantity: dec("2"), AvgCost: dec("40"), ReportCCY: domain.USD},
				},
				Quotes: fx.Quotes{"AAPL": {Price: dec("50"), Currency: domain.USD}},
			},
		},
	}

	_, err := engine.Create(context.Background(), in)
	require.NoError(t, err)

	row := repo.brokerages[accountID.String()+"2025-11"]
	assert.Equal(t, domain.USD, row.Currency)
	assert.True(t, dec("100").Equal(row.Cash), "Cash is in the account's own currency")
	assert.True(t, dec("100").Equal(row.Stocks), "2 * 50 USD, still in USD")
	assert.True(t, dec("400").Equal(row.CashBase), "CashBase frozen in wallet base currency")
	assert.True(t, dec("400").Equal(row.StocksBase))
}
