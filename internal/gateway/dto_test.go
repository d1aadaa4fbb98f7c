package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchengine/internal/book"
	"matchengine/internal/engine"
	"matchengine/internal/eventbus"
	"matchengine/internal/order"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOrderRequest_ToOrder_ParsesSideAndType(t *testing.T) {
	req := orderRequest{Symbol: "BTC-USDT", Side: "buy", OrderType: "limit", Quantity: d("1"), LimitPrice: d("50000")}

	o, err := req.toOrder()
	require.NoError(t, err)
	assert.Equal(t, order.Buy, o.Side)
	assert.Equal(t, order.Limit, o.Type)
	assert.True(t, o.RemainingQuantity.Equal(d("1")))
}

func TestOrderRequest_ToOrder_RejectsUnknownSide(t *testing.T) {
	req := orderRequest{Symbol: "BTC-USDT", Side: "sideways", OrderType: "limit", Quantity: d("1")}

	_, err := req.toOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "side")
}

func TestOrderRequest_ToOrder_RejectsUnknownOrderType(t *testing.T) {
	req := orderRequest{Symbol: "BTC-USDT", Side: "buy", OrderType: "stop", Quantity: d("1")}

	_, err := req.toOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order_type")
}

func TestToSubmissionResponse_CarriesErrorText(t *testing.T) {
	res := engine.SubmissionResult{Status: order.Rejected, Err: engine.ErrInsufficientLiquidity}
	resp := toSubmissionResponse(res)
	assert.Equal(t, "REJECTED", resp.Status)
	assert.Contains(t, resp.Error, "liquidity")
}

func TestToBboResponse_OmitsMissingSides(t *testing.T) {
	snap := engine.BboSnapshot{Symbol: "BTC-USDT"}
	resp := toBboResponse(snap)
	assert.Nil(t, resp.Bid)
	assert.Nil(t, resp.Ask)
}

func TestToStreamEnvelope_BBO_RoundTripsSymbolAndSides(t *testing.T) {
	env := eventbus.Envelope{
		Kind: eventbus.KindBBO,
		Bbo: eventbus.BboEvent{
			Symbol: "BTC-USDT",
			Bid:    book.PriceQty{Price: d("49990"), Qty: d("1")},
			BidOK:  true,
		},
	}

	out := toStreamEnvelope(env)
	require.NotNil(t, out.Bbo)
	assert.Equal(t, "BTC-USDT", out.Bbo.Symbol)
	require.NotNil(t, out.Bbo.Bid)
	assert.True(t, out.Bbo.Bid.Price.Equal(d("49990")))
	assert.Nil(t, out.Bbo.Ask)
}
