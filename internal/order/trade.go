package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is an immutable execution record emitted exactly once per match
// event. Price is always the maker's resting price; price improvement
// accrues to the taker.
type Trade struct {
	ID     uuid.UUID
	Symbol string
	Price  decimal.Decimal
	Qty    decimal.Decimal

	AggressorSide Side
	MakerOrderID  uuid.UUID
	TakerOrderID  uuid.UUID

	// SeqNum orders trades deterministically within a symbol by
	// lock-acquisition order. Timestamp is a wall-clock stamp served
	// separately for consumers that need one.
	SeqNum    uint64
	Timestamp time.Time
}

// NewTrade builds a Trade record for a maker/taker pair at the maker's
// resting price.
func NewTrade(symbol string, price, qty decimal.Decimal, aggressor Side, maker, taker uuid.UUID, seq uint64) Trade {
	return Trade{
		ID:            uuid.New(),
		Symbol:        symbol,
		Price:         price,
		Qty:           qty,
		AggressorSide: aggressor,
		MakerOrderID:  maker,
		TakerOrderID:  taker,
		SeqNum:        seq,
		Timestamp:     time.Now(),
	}
}
