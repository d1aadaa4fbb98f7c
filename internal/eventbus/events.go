package eventbus

import (
	"matchengine/internal/book"
	"matchengine/internal/order"
)

// Kind identifies which of the three event streams a subscription or
// envelope belongs to.
type Kind int

const (
	KindTrade Kind = iota
	KindBBO
	KindDepth
)

func (k Kind) String() string {
	switch k {
	case KindTrade:
		return "trade"
	case KindBBO:
		return "bbo"
	case KindDepth:
		return "depth"
	default:
		return "unknown"
	}
}

// TradeEvent reports one execution.
type TradeEvent struct {
	Symbol string
	Trade  order.Trade
}

// BboEvent reports a change to the best bid/offer.
type BboEvent struct {
	Symbol string
	Bid    book.PriceQty
	BidOK  bool
	Ask    book.PriceQty
	AskOK  bool
}

// DepthEvent reports a change to the book's top levels. At most one is
// emitted per submission.
type DepthEvent struct {
	Symbol string
	Bids   []book.PriceQty
	Asks   []book.PriceQty
}

// Envelope carries exactly one populated event alongside its Kind.
// Subscribers only ever see the field matching their subscribed Kind.
type Envelope struct {
	Kind  Kind
	Trade TradeEvent
	Bbo   BboEvent
	Depth DepthEvent
}
