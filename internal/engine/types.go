package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"matchengine/internal/book"
	"matchengine/internal/order"
)

// SubmissionResult is the terminal or resting outcome of a submit call:
// the order's final status, every Trade it generated, and the order's
// unfilled quantity. For a Limit order that quantity rests on the book;
// for the other types it does not rest (it was discarded, cancelled, or
// the whole order was rejected).
type SubmissionResult struct {
	OrderID           uuid.UUID
	Status            order.Status
	Trades            []order.Trade
	RemainingQuantity decimal.Decimal
	Err               error
}

// CancelOutcome is the disposition of a cancel call.
type CancelOutcome int

const (
	Cancelled CancelOutcome = iota
	NotFound
	AlreadyTerminal
)

func (c CancelOutcome) String() string {
	switch c {
	case Cancelled:
		return "CANCELLED"
	case NotFound:
		return "NOT_FOUND"
	case AlreadyTerminal:
		return "ALREADY_TERMINAL"
	default:
		return "UNKNOWN"
	}
}

// CancelResult is the result of a cancel call.
type CancelResult struct {
	Outcome CancelOutcome
}

// BboSnapshot is a read-consistent copy of one symbol's best bid/offer.
type BboSnapshot struct {
	Symbol string
	Bid    book.PriceQty
	BidOK  bool
	Ask    book.PriceQty
	AskOK  bool
}

// DepthSnapshot is a read-consistent copy of the top d levels per side.
type DepthSnapshot struct {
	Symbol string
	Bids   []book.PriceQty
	Asks   []book.PriceQty
}
