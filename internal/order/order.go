package order

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is an immutable identity plus mutable execution state.
// Identity fields are set at construction and never
// mutated; RemainingQuantity and Status change as the owning OrderBook
// matches against it. Callers must hold the owning symbol's lock before
// mutating RemainingQuantity/Status directly; Order itself enforces no
// concurrency discipline of its own.
type Order struct {
	ID         uuid.UUID
	Symbol     string
	Side       Side
	Type       Type
	LimitPrice decimal.Decimal // zero value iff Type == Market

	OriginalQuantity  decimal.Decimal
	RemainingQuantity decimal.Decimal
	Status            Status

	// SeqNum is the per-symbol monotonically increasing counter
	// assigned at lock acquisition; it is the tie-break for time
	// priority within a price level.
	SeqNum uint64
}

// New constructs a Pending order with RemainingQuantity set to the full
// requested quantity. It does not validate; the matching engine's
// Submit rejects a non-positive quantity and a missing or unexpected
// limit price at admission.
func New(symbol string, side Side, typ Type, limitPrice, qty decimal.Decimal) *Order {
	return &Order{
		ID:                uuid.New(),
		Symbol:            symbol,
		Side:              side,
		Type:              typ,
		LimitPrice:        limitPrice,
		OriginalQuantity:  qty,
		RemainingQuantity: qty,
		Status:            Pending,
	}
}

// Fill reduces RemainingQuantity by qty and advances Status. qty must
// not exceed RemainingQuantity.
func (o *Order) Fill(qty decimal.Decimal) {
	o.RemainingQuantity = o.RemainingQuantity.Sub(qty)
	if o.RemainingQuantity.IsZero() {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
}

func (o *Order) String() string {
	return fmt.Sprintf(
		"Order{ID:%s Symbol:%s Side:%s Type:%s Price:%s Remaining:%s/%s Status:%s Seq:%d}",
		o.ID, o.Symbol, o.Side, o.Type, o.LimitPrice, o.RemainingQuantity, o.OriginalQuantity,
		o.Status, o.SeqNum,
	)
}
