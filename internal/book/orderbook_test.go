package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchengine/internal/order"
)

func seqCounter() func() uint64 {
	var n uint64
	return func() uint64 {
		n++
		return n
	}
}

func limitOrder(side order.Side, price, qty string) *order.Order {
	return order.New("BTC-USDT", side, order.Limit, d(price), d(qty))
}

func restOn(t *testing.T, ob *OrderBook, side order.Side, price, qty string) *order.Order {
	t.Helper()
	o := limitOrder(side, price, qty)
	ob.Insert(o)
	return o
}

func TestOrderBook_BBO_EmptyBook(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	_, bidOK, _, askOK := ob.BBO()
	assert.False(t, bidOK)
	assert.False(t, askOK)
}

func TestOrderBook_BBO_ReflectsBestPrices(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	restOn(t, ob, order.Buy, "49990", "1.0")
	restOn(t, ob, order.Buy, "50000", "1.0")
	restOn(t, ob, order.Sell, "50010", "1.0")
	restOn(t, ob, order.Sell, "50020", "1.0")

	bid, bidOK, ask, askOK := ob.BBO()
	require.True(t, bidOK)
	require.True(t, askOK)
	assert.True(t, bid.Price.Equal(d("50000")))
	assert.True(t, ask.Price.Equal(d("50010")))
}

// A resting limit order fills completely against a crossing taker at
// the same price; the trade prints at the maker's price.
func TestMatchAgainst_LimitRestsThenFills(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	seq := seqCounter()

	maker := limitOrder(order.Buy, "50000", "1.0")
	ob.Insert(maker)

	taker := limitOrder(order.Sell, "50000", "1.0")
	price := taker.LimitPrice
	trades := ob.MatchAgainst(order.Sell, &price, taker, seq)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(d("50000")))
	assert.True(t, trades[0].Qty.Equal(d("1.0")))
	assert.Equal(t, maker.ID, trades[0].MakerOrderID)
	assert.Equal(t, taker.ID, trades[0].TakerOrderID)
	assert.Equal(t, order.Filled, taker.Status)
	assert.Equal(t, order.Filled, maker.Status)

	_, bidOK, _, askOK := ob.BBO()
	assert.False(t, bidOK)
	assert.False(t, askOK)
}

// A taker sweeping two levels pays each maker's resting price, so the
// better-priced level improves its fill.
func TestMatchAgainst_PriceImprovementAcrossLevels(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	seq := seqCounter()

	restOn(t, ob, order.Sell, "49990", "1.0")
	restOn(t, ob, order.Sell, "50000", "1.0")

	taker := order.New("BTC-USDT", order.Buy, order.Market, decimal.Zero, d("1.5"))
	trades := ob.MatchAgainst(order.Buy, nil, taker, seq)

	require.Len(t, trades, 2)
	assert.True(t, trades[0].Price.Equal(d("49990")))
	assert.True(t, trades[0].Qty.Equal(d("1.0")))
	assert.True(t, trades[1].Price.Equal(d("50000")))
	assert.True(t, trades[1].Qty.Equal(d("0.5")))
	assert.Equal(t, order.Filled, taker.Status)

	_, _, ask, askOK := ob.BBO()
	require.True(t, askOK)
	assert.True(t, ask.Price.Equal(d("50000")))
	assert.True(t, ask.Qty.Equal(d("0.5")))
}

// At the same price, the earlier-queued maker fills first.
func TestMatchAgainst_TimePriorityAtSamePrice(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	seq := seqCounter()

	a := restOn(t, ob, order.Buy, "50000", "1.0")
	b := restOn(t, ob, order.Buy, "50000", "1.0")

	taker := limitOrder(order.Sell, "50000", "1.5")
	price := taker.LimitPrice
	trades := ob.MatchAgainst(order.Sell, &price, taker, seq)

	require.Len(t, trades, 2)
	assert.Equal(t, a.ID, trades[0].MakerOrderID)
	assert.True(t, trades[0].Qty.Equal(d("1.0")))
	assert.Equal(t, b.ID, trades[1].MakerOrderID)
	assert.True(t, trades[1].Qty.Equal(d("0.5")))
}

// The trade price is always the maker's resting price, never worse
// than the taker's own limit.
func TestMatchAgainst_PriceNeverWorseThanTakerLimit(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	seq := seqCounter()

	restOn(t, ob, order.Sell, "49990", "1.0")

	taker := limitOrder(order.Buy, "50000", "1.0")
	price := taker.LimitPrice
	trades := ob.MatchAgainst(order.Buy, &price, taker, seq)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.LessThanOrEqual(d("50000")))
	assert.True(t, trades[0].Price.Equal(d("49990")))
}

func TestMatchAgainst_StopsAtPriceLimit(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	seq := seqCounter()

	restOn(t, ob, order.Sell, "50000", "1.0")
	restOn(t, ob, order.Sell, "50010", "1.0")

	taker := limitOrder(order.Buy, "50000", "2.0")
	price := taker.LimitPrice
	trades := ob.MatchAgainst(order.Buy, &price, taker, seq)

	require.Len(t, trades, 1)
	assert.True(t, taker.RemainingQuantity.Equal(d("1.0")))
	assert.Equal(t, order.PartiallyFilled, taker.Status)

	_, _, ask, askOK := ob.BBO()
	require.True(t, askOK)
	assert.True(t, ask.Price.Equal(d("50010")))
}

func TestCanFill_DoesNotMutateState(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	restOn(t, ob, order.Sell, "50000", "0.5")

	ok := ob.CanFill(order.Buy, ptr(d("50000")), d("1.0"))
	assert.False(t, ok)

	// Book must be completely unchanged.
	_, _, ask, askOK := ob.BBO()
	require.True(t, askOK)
	assert.True(t, ask.Price.Equal(d("50000")))
	assert.True(t, ask.Qty.Equal(d("0.5")))
}

func TestCanFill_TrueWhenLiquiditySuffices(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	restOn(t, ob, order.Sell, "50000", "0.5")
	restOn(t, ob, order.Sell, "50010", "0.5")

	assert.True(t, ob.CanFill(order.Buy, ptr(d("50010")), d("1.0")))
	assert.False(t, ob.CanFill(order.Buy, ptr(d("50000")), d("1.0")))
}

func TestCancel_RemovesRestingOrderAndCollapsesLevel(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	o := restOn(t, ob, order.Buy, "50000", "1.0")

	cancelled, ok := ob.Cancel(o.ID)
	require.True(t, ok)
	assert.Equal(t, order.Cancelled, cancelled.Status)

	_, bidOK, _, _ := ob.BBO()
	assert.False(t, bidOK)
}

// A second cancel of the same order reports not-found rather than
// panicking or corrupting the book.
func TestCancel_SecondCallReportsNotFound(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	o := restOn(t, ob, order.Buy, "50000", "1.0")

	_, ok := ob.Cancel(o.ID)
	require.True(t, ok)

	_, ok = ob.Cancel(o.ID)
	assert.False(t, ok)
}

// No depth snapshot may contain a zero-quantity level.
func TestDepth_NeverReportsEmptyLevel(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	seq := seqCounter()

	restOn(t, ob, order.Sell, "50000", "1.0")
	taker := order.New("BTC-USDT", order.Buy, order.Market, decimal.Zero, d("1.0"))
	ob.MatchAgainst(order.Buy, nil, taker, seq)

	_, asks := ob.Depth(0)
	assert.Empty(t, asks)
}

// The book must never observably cross.
func TestCrossed_FalseAfterNormalMatching(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	seq := seqCounter()

	restOn(t, ob, order.Buy, "49990", "1.0")
	restOn(t, ob, order.Sell, "50010", "1.0")
	assert.False(t, ob.Crossed())

	taker := limitOrder(order.Buy, "50010", "1.0")
	price := taker.LimitPrice
	ob.MatchAgainst(order.Buy, &price, taker, seq)
	assert.False(t, ob.Crossed())
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }
