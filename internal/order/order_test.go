package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNew_PendingWithFullRemaining(t *testing.T) {
	o := New("BTC-USDT", Buy, Limit, d("50000"), d("1.0"))
	assert.Equal(t, Pending, o.Status)
	assert.True(t, o.RemainingQuantity.Equal(d("1.0")))
	assert.True(t, o.OriginalQuantity.Equal(d("1.0")))
}

func TestFill_PartialThenFull(t *testing.T) {
	o := New("BTC-USDT", Buy, Limit, d("50000"), d("1.0"))

	o.Fill(d("0.4"))
	assert.Equal(t, PartiallyFilled, o.Status)
	assert.True(t, o.RemainingQuantity.Equal(d("0.6")))

	o.Fill(d("0.6"))
	assert.Equal(t, Filled, o.Status)
	assert.True(t, o.RemainingQuantity.IsZero())
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, Pending.Terminal())
	assert.False(t, PartiallyFilled.Terminal())
	assert.True(t, Filled.Terminal())
	assert.True(t, Cancelled.Terminal())
	assert.True(t, Rejected.Terminal())
}

func TestSide_Opposite(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}

func TestType_RequiresPriceAndCanRest(t *testing.T) {
	assert.False(t, Market.RequiresPrice())
	assert.True(t, Limit.RequiresPrice())
	assert.True(t, IOC.RequiresPrice())
	assert.True(t, FOK.RequiresPrice())

	assert.True(t, Limit.CanRest())
	assert.False(t, Market.CanRest())
	assert.False(t, IOC.CanRest())
	assert.False(t, FOK.CanRest())
}
