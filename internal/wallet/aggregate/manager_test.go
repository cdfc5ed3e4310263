package aggregate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
)

func dec(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestBuildTrees_OmitsMonthWithMissingFX(t *testing.T) {
	// a month with no FX row must be omitted from output
	walletID := uuid.New()
	accountID := uuid.New()

	wallet := WalletData{
		ID:      walletID,
		Name:    "main",
		BaseCCY: domain.PLN,
		DepositAccounts: []DepositAccountView{
			{
				AccountID: accountID,
				Currency:  domain.PLN,
				Available: dec("1000"),
				MonthSnapshots: map[string]SnapshotAmount{
					"2025-09": {Currency: domain.PLN, Available: dec("900")},
					"2025-10": {Currency: domain.PLN, Available: dec("950")},
				},
			},
		},
	}

	in := Input{
		Wallets:   []WalletData{wallet},
		MonthKeys: []string{"2025-09", "2025-10"},
		FXByMonth: map[string]fx.Rates{
			// 2025-09 deliberately absent
			"2025-10": {domain.PLN: dec("1")},
		},
		LiveRates: fx.Rates{domain.PLN: dec("1")},
	}

	mgr := New()
	trees := mgr.BuildTrees(context.Background(), in)
	require.Len(t, trees, 1)

	_, has09 := trees[0].Snapshots["2025-09"]
	assert.False(t, has09, "month with missing FX row must be omitted, never imputed as zero")

	snap10, has10 := trees[0].Snapshots["2025-10"]
	require.True(t, has10)
	assert.True(t, dec("950").Equal(snap10.CashDeposit))
}

func TestBuildTrees_BrokerageMonthsUseFrozenBaseValues(t *testing.T) {
	// the frozen cash_base/stocks_base columns are already in the wallet
	// base currency; a USD account's native figures must not be converted
	// a second time
	walletID := uuid.New()
	accountID := uuid.New()

	wallet := WalletData{
		ID:      walletID,
		Name:    "main",
		BaseCCY: domain.PLN,
		BrokerageAccounts: []BrokerageAccountView{
			{
				AccountID: accountID,
				Currency:  domain.USD,
				MonthSnapshots: map[string]BrokerageSnapshotAmount{
					"2025-10": {
						Currency: domain.USD,
						Cash:     dec("100"), Stocks: dec("200"),
						CashBase: dec("400"), StocksBase: dec("800"),
					},
				},
			},
		},
	}

	in := Input{
		Wallets:   []WalletData{wallet},
		MonthKeys: []string{"2025-10"},
		FXByMonth: map[string]fx.Rates{"2025-10": {domain.USD: dec("1"), domain.PLN: dec("4")}},
		LiveRates: fx.Rates{domain.PLN: dec("1")},
	}

	trees := New().BuildTrees(context.Background(), in)
	require.Len(t, trees, 1)

	snap, ok := trees[0].Snapshots["2025-10"]
	require.True(t, ok)
	assert.True(t, dec("400").Equal(snap.CashBroker), "cash_broker must read the frozen base value, not re-convert")
	assert.True(t, dec("800").Equal(snap.Stocks))
	assert.True(t, dec("1200").Equal(snap.Total()))
}

func TestBuildTrees_MonthOverMonthDeltas(t *testing.T) {
	accountID := uuid.New()

	wallet := WalletData{
		ID:      uuid.New(),
		BaseCCY: domain.PLN,
		DepositAccounts: []DepositAccountView{
			{
				AccountID: accountID,
				Currency:  domain.PLN,
				Available: dec("1100"),
				MonthSnapshots: map[string]SnapshotAmount{
					"2025-08": {Currency: domain.PLN, Available: dec("1000")},
					"2025-09": {Currency: domain.PLN, Available: dec("900")},
					"2025-10": {Currency: domain.PLN, Available: dec("1100")},
				},
			},
		},
	}

	one := fx.Rates{domain.PLN: dec("1")}
	in := Input{
		Wallets:   []WalletData{wallet},
		MonthKeys: []string{"2025-08", "2025-09", "2025-10"},
		FXByMonth: map[string]fx.Rates{"2025-08": one, "2025-09": one, "2025-10": one},
		LiveRates: one,
	}

	trees := New().BuildTrees(context.Background(), in)
	require.Len(t, trees, 1)

	_, hasFirst := trees[0].MoM["2025-08"]
	assert.False(t, hasFirst, "the window's first month has no previous month to compare against")

	mom09, ok := trees[0].MoM["2025-09"]
	require.True(t, ok)
	assert.True(t, dec("-0.1").Equal(mom09), "(900-1000)/1000 = -0.1")

	mom10, ok := trees[0].MoM["2025-10"]
	require.True(t, ok)
	assert.True(t, dec("0.22222222").Equal(mom10), "(1100-900)/900 at scale 8")
}

func TestBuildTrees_MoMNeverBridgesOmittedMonths(t *testing.T) {
	accountID := uuid.New()

	wallet := WalletData{
		ID:      uuid.New(),
		BaseCCY: domain.PLN,
		DepositAccounts: []DepositAccountView{
			{
				AccountID: accountID,
				Currency:  domain.PLN,
				Available: dec("1100"),
				MonthSnapshots: map[string]SnapshotAmount{
					"2025-08": {Currency: domain.PLN, Available: dec("1000")},
					"2025-09": {Currency: domain.PLN, Available: dec("900")},
					"2025-10": {Currency: domain.PLN, Available: dec("1100")},
				},
			},
		},
	}

	one := fx.Rates{domain.PLN: dec("1")}
	in := Input{
		Wallets:   []WalletData{wallet},
		MonthKeys: []string{"2025-08", "2025-09", "2025-10"},
		// 2025-09's FX row is missing: the month is omitted, and no delta
		// may span the gap from 2025-08 to 2025-10
		FXByMonth: map[string]fx.Rates{"2025-08": one, "2025-10": one},
		LiveRates: one,
	}

	trees := New().BuildTrees(context.Background(), in)
	require.Len(t, trees, 1)
	assert.Empty(t, trees[0].MoM)
}

func TestBuildTrees_ConsistencyOfMonthTotal(t *testing.T) {
	// total == sum of the five buckets
	total := WalletMonthTotal{
		CashDeposit: dec("100"),
		CashBroker:  dec("200"),
		Stocks:      dec("300"),
		Metals:      dec("50"),
		RealEstate:  dec("1000"),
	}
	expected := dec("1650")
	assert.True(t, expected.Equal(total.Total()))
}
