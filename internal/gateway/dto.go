package gateway

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"matchengine/internal/book"
	"matchengine/internal/engine"
	"matchengine/internal/eventbus"
	"matchengine/internal/order"
)

// orderRequest is the wire shape of a submission. All numeric fields
// arrive in canonical decimal form as JSON strings so no binary float
// ever touches the wire.
type orderRequest struct {
	Symbol     string          `json:"symbol" binding:"required"`
	Side       string          `json:"side" binding:"required"`
	OrderType  string          `json:"order_type" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	LimitPrice decimal.Decimal `json:"limit_price"`
}

func parseSide(s string) (order.Side, bool) {
	switch s {
	case "BUY", "buy", "Buy":
		return order.Buy, true
	case "SELL", "sell", "Sell":
		return order.Sell, true
	default:
		return 0, false
	}
}

func parseOrderType(s string) (order.Type, bool) {
	switch s {
	case "MARKET", "market", "Market":
		return order.Market, true
	case "LIMIT", "limit", "Limit":
		return order.Limit, true
	case "IOC", "ioc", "Ioc":
		return order.IOC, true
	case "FOK", "fok", "Fok":
		return order.FOK, true
	default:
		return 0, false
	}
}

// toOrder converts a validated wire request into a core order.Order.
// Parsing happens exactly once, at this boundary: the core never
// re-validates shape, only business invariants it must enforce
// regardless of caller (quantity positivity, price presence).
func (r orderRequest) toOrder() (*order.Order, error) {
	side, ok := parseSide(r.Side)
	if !ok {
		return nil, &invalidFieldError{field: "side", value: r.Side}
	}
	typ, ok := parseOrderType(r.OrderType)
	if !ok {
		return nil, &invalidFieldError{field: "order_type", value: r.OrderType}
	}
	return order.New(r.Symbol, side, typ, r.LimitPrice, r.Quantity), nil
}

type invalidFieldError struct {
	field, value string
}

func (e *invalidFieldError) Error() string {
	return "gateway: invalid " + e.field + ": " + e.value
}

// tradeDTO, submissionResponse, etc. are the JSON egress shapes.
type tradeDTO struct {
	TradeID       uuid.UUID       `json:"trade_id"`
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	AggressorSide string          `json:"aggressor_side"`
	MakerOrderID  uuid.UUID       `json:"maker_order_id"`
	TakerOrderID  uuid.UUID       `json:"taker_order_id"`
	Timestamp     time.Time       `json:"timestamp"`
}

func toTradeDTO(t order.Trade) tradeDTO {
	return tradeDTO{
		TradeID:       t.ID,
		Symbol:        t.Symbol,
		Price:         t.Price,
		Quantity:      t.Qty,
		AggressorSide: t.AggressorSide.String(),
		MakerOrderID:  t.MakerOrderID,
		TakerOrderID:  t.TakerOrderID,
		Timestamp:     t.Timestamp,
	}
}

type submissionResponse struct {
	OrderID           uuid.UUID       `json:"order_id"`
	Status            string          `json:"status"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Trades            []tradeDTO      `json:"trades"`
	Error             string          `json:"error,omitempty"`
}

func toSubmissionResponse(r engine.SubmissionResult) submissionResponse {
	trades := make([]tradeDTO, 0, len(r.Trades))
	for _, t := range r.Trades {
		trades = append(trades, toTradeDTO(t))
	}
	resp := submissionResponse{
		OrderID:           r.OrderID,
		Status:            r.Status.String(),
		RemainingQuantity: r.RemainingQuantity,
		Trades:            trades,
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

type cancelResponse struct {
	Outcome string `json:"outcome"`
}

func toCancelResponse(r engine.CancelResult) cancelResponse {
	return cancelResponse{Outcome: r.Outcome.String()}
}

type priceQtyDTO struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

func toPriceQtyDTO(pq book.PriceQty) priceQtyDTO {
	return priceQtyDTO{Price: pq.Price, Qty: pq.Qty}
}

func toPriceQtyDTOs(pqs []book.PriceQty) []priceQtyDTO {
	out := make([]priceQtyDTO, 0, len(pqs))
	for _, pq := range pqs {
		out = append(out, toPriceQtyDTO(pq))
	}
	return out
}

type bboResponse struct {
	Symbol string       `json:"symbol"`
	Bid    *priceQtyDTO `json:"bid,omitempty"`
	Ask    *priceQtyDTO `json:"ask,omitempty"`
}

func toBboResponse(s engine.BboSnapshot) bboResponse {
	resp := bboResponse{Symbol: s.Symbol}
	if s.BidOK {
		dto := toPriceQtyDTO(s.Bid)
		resp.Bid = &dto
	}
	if s.AskOK {
		dto := toPriceQtyDTO(s.Ask)
		resp.Ask = &dto
	}
	return resp
}

type depthResponse struct {
	Symbol string        `json:"symbol"`
	Bids   []priceQtyDTO `json:"bids"`
	Asks   []priceQtyDTO `json:"asks"`
}

func toDepthResponse(s engine.DepthSnapshot) depthResponse {
	return depthResponse{
		Symbol: s.Symbol,
		Bids:   toPriceQtyDTOs(s.Bids),
		Asks:   toPriceQtyDTOs(s.Asks),
	}
}

// streamEnvelope is the JSON shape pushed to websocket subscribers,
// mirroring eventbus.Envelope's "exactly one populated field" discipline.
type streamEnvelope struct {
	Kind  string          `json:"kind"`
	Trade *tradeDTO       `json:"trade,omitempty"`
	Bbo   *bboStreamEvent `json:"bbo,omitempty"`
	Depth *depthResponse  `json:"depth,omitempty"`
}

type bboStreamEvent struct {
	Symbol string       `json:"symbol"`
	Bid    *priceQtyDTO `json:"bid,omitempty"`
	Ask    *priceQtyDTO `json:"ask,omitempty"`
}

func toStreamEnvelope(env eventbus.Envelope) streamEnvelope {
	switch env.Kind {
	case eventbus.KindTrade:
		dto := toTradeDTO(env.Trade.Trade)
		return streamEnvelope{Kind: "trade", Trade: &dto}
	case eventbus.KindBBO:
		evt := bboStreamEvent{Symbol: env.Bbo.Symbol}
		if env.Bbo.BidOK {
			dto := toPriceQtyDTO(env.Bbo.Bid)
			evt.Bid = &dto
		}
		if env.Bbo.AskOK {
			dto := toPriceQtyDTO(env.Bbo.Ask)
			evt.Ask = &dto
		}
		return streamEnvelope{Kind: "bbo", Bbo: &evt}
	case eventbus.KindDepth:
		d := depthResponse{
			Symbol: env.Depth.Symbol,
			Bids:   toPriceQtyDTOs(env.Depth.Bids),
			Asks:   toPriceQtyDTOs(env.Depth.Asks),
		}
		return streamEnvelope{Kind: "depth", Depth: &d}
	default:
		return streamEnvelope{Kind: "unknown"}
	}
}
