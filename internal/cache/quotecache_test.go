package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet/fx"
)

func TestQuoteCache_PutAndGet(t *testing.T) {
	c := New(time.Minute)
	price, _ := decimalFromString("123.45")
	err := c.Put(fx.Quotes{"AAPL": {Price: price, Currency: domain.USD}})
	require.NoError(t, err)

	got, ok := c.Get("AAPL")
	require.True(t, ok)
	assert.True(t, price.Equal(got.Price))
	assert.Equal(t, domain.USD, got.Currency)
}

func TestQuoteCache_MissingTracksUncachedSymbols(t *testing.T) {
	c := New(time.Minute)
	price, _ := decimalFromString("1")
	_ = c.Put(fx.Quotes{"AAPL": {Price: price, Currency: domain.USD}})

	missing := c.Missing([]string{"AAPL", "MSFT"})
	assert.Equal(t, []string{"MSFT"}, missing)
}

func TestQuoteCache_ExpiresAfterTTL(t *testing.T) {
	c := New(time.Millisecond)
	price, _ := decimalFromString("1")
	_ = c.Put(fx.Quotes{"AAPL": {Price: price, Currency: domain.USD}})

	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("AAPL")
	assert.False(t, ok, "entry past TTL must be treated as absent")
}
