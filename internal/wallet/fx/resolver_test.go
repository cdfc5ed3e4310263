package fx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/walletcore/internal/domain"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestConvert_Identity(t *testing.T) {
	x := d("123.45")
	got, ok := Convert(x, domain.USD, domain.USD, Rates{})
	require.True(t, ok)
	assert.True(t, x.Equal(got))
}

func TestConvert_MissingRate_ReturnsNoValue(t *testing.T) {
	_, ok := Convert(d("10"), domain.USD, domain.PLN, Rates{domain.USD: d("1")})
	assert.False(t, ok, "to_ccy absent from rates must yield no-value, not zero")

	_, ok = Convert(d("10"), domain.USD, domain.PLN, Rates{domain.PLN: d("4")})
	assert.False(t, ok, "from_ccy absent from rates must yield no-value, not zero")
}

func TestConvert_Composition(t *testing.T) {
	rates := Rates{
		domain.USD: d("1"),
		domain.PLN: d("4.0"),
		domain.EUR: d("0.9"),
	}
	x := d("100")
	direct, ok := Convert(x, domain.USD, domain.EUR, rates)
	require.True(t, ok)

	viaPLN, ok := Convert(x, domain.USD, domain.PLN, rates)
	require.True(t, ok)
	composed, ok := Convert(viaPLN, domain.PLN, domain.EUR, rates)
	require.True(t, ok)

	diff := direct.Sub(composed).Abs()
	assert.True(t, diff.LessThanOrEqual(d("0.00000001")), "composition must match direct conversion within 1 ulp at scale 8")
}

func TestConvert_MetalValuationExample(t *testing.T) {
	// quote price=2000 USD, rate USD->PLN=4.0 -> 8000.00 PLN
	rates := Rates{domain.USD: d("1"), domain.PLN: d("4.0")}
	got, ok := Convert(d("2000"), domain.USD, domain.PLN, rates)
	require.True(t, ok)
	assert.True(t, d("8000").Equal(got))
}

func TestQuoteFor_MissingSymbolOmitted(t *testing.T) {
	quotes := Quotes{"AAA": {Price: d("10"), Currency: domain.USD}}
	_, _, ok := QuoteFor("BBB", quotes)
	assert.False(t, ok)

	price, ccy, ok := QuoteFor("AAA", quotes)
	require.True(t, ok)
	assert.True(t, d("10").Equal(price))
	assert.Equal(t, domain.USD, ccy)
}
