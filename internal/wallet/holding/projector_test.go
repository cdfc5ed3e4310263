package holding

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/walleterr"
)

func dec(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestReplay_BuyThenSell(t *testing.T) {
	// two BUYs then a partial SELL
	accountID, instrumentID := uuid.New(), uuid.New()
	events := []ReplayEvent{
		{ID: uuid.New(), Kind: domain.EventBuy, Quantity: dec("10"), Price: dec("100"), Currency: domain.USD, TradeAt: 1, SeqID: 1},
		{ID: uuid.New(), Kind: domain.EventBuy, Quantity: dec("10"), Price: dec("120"), Currency: domain.USD, TradeAt: 2, SeqID: 2},
		{ID: uuid.New(), Kind: domain.EventSell, Quantity: dec("5"), Price: dec("140"), Currency: domain.USD, TradeAt: 3, SeqID: 3},
	}

	res, err := Replay(accountID, instrumentID, events)
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(res.Position.Quantity))
	assert.True(t, dec("110.00000000").Equal(res.Position.AvgCost))
	require.Len(t, res.Gains, 1)
	assert.True(t, dec("150").Equal(res.Gains[0].Amount), "realized P&L = 5*(140-110) = 150")
}

func TestReplay_Split(t *testing.T) {
	// a 2:1 split after the BUY/SELL sequence above
	accountID, instrumentID := uuid.New(), uuid.New()
	events := []ReplayEvent{
		{ID: uuid.New(), Kind: domain.EventBuy, Quantity: dec("10"), Price: dec("100"), Currency: domain.USD, TradeAt: 1, SeqID: 1},
		{ID: uuid.New(), Kind: domain.EventBuy, Quantity: dec("10"), Price: dec("120"), Currency: domain.USD, TradeAt: 2, SeqID: 2},
		{ID: uuid.New(), Kind: domain.EventSell, Quantity: dec("5"), Price: dec("140"), Currency: domain.USD, TradeAt: 3, SeqID: 3},
		{ID: uuid.New(), Kind: domain.EventSplit, SplitRatio: dec("2"), TradeAt: 4, SeqID: 4},
	}

	res, err := Replay(accountID, instrumentID, events)
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(res.Position.Quantity))
	assert.True(t, dec("55.00000000").Equal(res.Position.AvgCost))

	totalCost := res.Position.Quantity.Mul(res.Position.AvgCost)
	assert.True(t, dec("1650").Sub(totalCost).Abs().LessThanOrEqual(dec("0.00000001")), "total cost preserved across split")
}

func TestReplay_SellBeyondQuantityRejected(t *testing.T) {
	accountID, instrumentID := uuid.New(), uuid.New()
	events := []ReplayEvent{
		{ID: uuid.New(), Kind: domain.EventBuy, Quantity: dec("5"), Price: dec("100"), Currency: domain.USD, TradeAt: 1, SeqID: 1},
		{ID: uuid.New(), Kind: domain.EventSell, Quantity: dec("10"), Price: dec("100"), Currency: domain.USD, TradeAt: 2, SeqID: 2},
	}

	_, err := Replay(accountID, instrumentID, events)
	require.Error(t, err)
	werr, ok := walleterr.As(err)
	require.True(t, ok)
	assert.Equal(t, walleterr.KindValidation, werr.Kind)
}

func TestReplay_QuantityNeverNegative(t *testing.T) {
	accountID, instrumentID := uuid.New(), uuid.New()
	events := []ReplayEvent{
		{ID: uuid.New(), Kind: domain.EventBuy, Quantity: dec("1"), Price: dec("1"), Currency: domain.USD, TradeAt: 1, SeqID: 1},
		{ID: uuid.New(), Kind: domain.EventSell, Quantity: dec("1"), Price: dec("1"), Currency: domain.USD, TradeAt: 2, SeqID: 2},
	}
	res, err := Replay(accountID, instrumentID, events)
	require.NoError(t, err)
	assert.True(t, res.Position.Quantity.GreaterThanOrEqual(domain.Zero))
}

func TestSort_OrdersByTradeAtThenSeqID(t *testing.T) {
	events := []ReplayEvent{
		{ID: uuid.New(), TradeAt: 2, SeqID: 1},
		{ID: uuid.New(), TradeAt: 1, SeqID: 2},
		{ID: uuid.New(), TradeAt: 1, SeqID: 1},
	}
	Sort(events)
	assert.Equal(t, int64(1), events[0].TradeAt)
	assert.Equal(t, int64(1), events[0].SeqID)
	assert.Equal(t, int64(1), events[1].TradeAt)
	assert.Equal(t, int64(2), events[1].SeqID)
	assert.Equal(t, int64(2), events[2].TradeAt)
}
