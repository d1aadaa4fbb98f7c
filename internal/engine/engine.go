// Package engine implements the MatchingEngine: it owns one OrderBook
// per symbol, routes submissions by order type, and publishes
// trade/BBO/depth deltas to an EventBus under the owning symbol's lock.
package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"matchengine/internal/book"
	"matchengine/internal/eventbus"
	"matchengine/internal/order"
)

// symbolState bundles one symbol's book, sequence counter, and known
// order registry behind a single mutex; every submit/cancel/snapshot
// for this symbol serializes through it.
type symbolState struct {
	mu     sync.Mutex
	book   *book.OrderBook
	seq    uint64
	orders map[uuid.UUID]*order.Order
}

func newSymbolState(symbol string) *symbolState {
	return &symbolState{
		book:   book.NewOrderBook(symbol),
		orders: make(map[uuid.UUID]*order.Order),
	}
}

func (s *symbolState) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// MatchingEngine owns one OrderBook per symbol and enforces per-symbol
// serialization. Different symbols proceed concurrently.
type MatchingEngine struct {
	bus *eventbus.Bus

	allowAny bool
	allowed  map[string]struct{}

	mu      sync.RWMutex
	symbols map[string]*symbolState
}

// New builds a MatchingEngine publishing to bus. If symbols is
// non-empty, submissions for any other symbol are Rejected at
// admission. An empty symbols list accepts any symbol, creating its
// book lazily on first submission.
func New(bus *eventbus.Bus, symbols ...string) *MatchingEngine {
	e := &MatchingEngine{
		bus:     bus,
		symbols: make(map[string]*symbolState),
	}
	if len(symbols) == 0 {
		e.allowAny = true
	} else {
		e.allowed = make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			e.allowed[s] = struct{}{}
		}
	}
	return e
}

// getOrCreateSymbol returns the symbolState for symbol, creating it if
// this is the first time it has been seen and it is permitted.
func (e *MatchingEngine) getOrCreateSymbol(symbol string) (*symbolState, bool) {
	e.mu.RLock()
	s, ok := e.symbols[symbol]
	e.mu.RUnlock()
	if ok {
		return s, true
	}

	if !e.allowAny {
		if _, permitted := e.allowed[symbol]; !permitted {
			return nil, false
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok = e.symbols[symbol]; ok {
		return s, true
	}
	s = newSymbolState(symbol)
	e.symbols[symbol] = s
	return s, true
}

// getSymbol returns the symbolState for symbol without creating one.
func (e *MatchingEngine) getSymbol(symbol string) (*symbolState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.symbols[symbol]
	return s, ok
}

// validate rejects malformed submissions before any lock is taken. The
// gateway only parses side and order type; quantity positivity and
// limit-price presence are checked here, for every caller.
func validate(o *order.Order) error {
	if o.OriginalQuantity.IsZero() || o.OriginalQuantity.IsNegative() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if o.Type.RequiresPrice() && (o.LimitPrice.IsZero() || o.LimitPrice.IsNegative()) {
		return fmt.Errorf("%w: %s order requires a positive limit price", ErrInvalidOrder, o.Type)
	}
	if o.Type == order.Market && !o.LimitPrice.IsZero() {
		return fmt.Errorf("%w: market order must not carry a limit price", ErrInvalidOrder)
	}
	return nil
}

// Submit routes o by its order type and returns its terminal or
// resting outcome.
func (e *MatchingEngine) Submit(o *order.Order) SubmissionResult {
	if err := validate(o); err != nil {
		o.Status = order.Rejected
		return SubmissionResult{OrderID: o.ID, Status: order.Rejected, RemainingQuantity: decimal.Zero, Err: err}
	}

	sym, ok := e.getOrCreateSymbol(o.Symbol)
	if !ok {
		o.Status = order.Rejected
		return SubmissionResult{OrderID: o.ID, Status: order.Rejected, RemainingQuantity: decimal.Zero, Err: ErrUnknownSymbol}
	}

	sym.mu.Lock()
	defer sym.mu.Unlock()

	o.SeqNum = sym.nextSeq()
	sym.orders[o.ID] = o

	bidBefore, bidOKBefore, askBefore, askOKBefore := sym.book.BBO()

	var trades []order.Trade
	var submitErr error
	rested := false

	switch o.Type {
	case order.Market:
		if !sym.book.CanFill(o.Side, nil, o.RemainingQuantity) {
			o.Status = order.Rejected
			submitErr = ErrInsufficientLiquidity
			break
		}
		trades = sym.book.MatchAgainst(o.Side, nil, o, sym.nextSeq)
		if o.RemainingQuantity.IsPositive() {
			// CanFill guaranteed this can't happen; a mismatch here is
			// a matcher defect, not a market condition.
			panic(fmt.Errorf("%w: market order left unfilled after a passing feasibility check", book.ErrInvariantViolation))
		}

	case order.Limit:
		limit := o.LimitPrice
		trades = sym.book.MatchAgainst(o.Side, &limit, o, sym.nextSeq)
		if o.RemainingQuantity.IsPositive() {
			sym.book.Insert(o)
			rested = true
		}

	case order.IOC:
		limit := o.LimitPrice
		trades = sym.book.MatchAgainst(o.Side, &limit, o, sym.nextSeq)
		if len(trades) == 0 {
			// Nothing filled: the whole order is cancelled. A partial
			// fill keeps PartiallyFilled and its remainder is discarded.
			o.Status = order.Cancelled
		}

	case order.FOK:
		limit := o.LimitPrice
		if !sym.book.CanFill(o.Side, &limit, o.RemainingQuantity) {
			o.Status = order.Cancelled
			submitErr = ErrFokUnfillable
			break
		}
		trades = sym.book.MatchAgainst(o.Side, &limit, o, sym.nextSeq)
		if o.RemainingQuantity.IsPositive() {
			panic(fmt.Errorf("%w: FOK order left unfilled after a passing feasibility check", book.ErrInvariantViolation))
		}

	default:
		o.Status = order.Rejected
		submitErr = fmt.Errorf("%w: unsupported order type %s", ErrInvalidOrder, o.Type)
	}

	if sym.book.Crossed() {
		panic(fmt.Errorf("%w: book crossed after matching for symbol %s", book.ErrInvariantViolation, o.Symbol))
	}

	e.publishDeltas(sym, o.Symbol, trades, len(trades) > 0 || rested, bidBefore, bidOKBefore, askBefore, askOKBefore)

	return SubmissionResult{
		OrderID:           o.ID,
		Status:            o.Status,
		Trades:            trades,
		RemainingQuantity: o.RemainingQuantity,
		Err:               submitErr,
	}
}

// Cancel looks up id within symbol and, if it is still live, removes
// it from the book. AlreadyTerminal covers a concurrent fill that
// consumed the order first, a repeated cancel of the same order, and an
// order of a type that never rests (such as a partially filled IOC).
func (e *MatchingEngine) Cancel(symbol string, id uuid.UUID) CancelResult {
	sym, ok := e.getSymbol(symbol)
	if !ok {
		return CancelResult{Outcome: NotFound}
	}

	sym.mu.Lock()
	defer sym.mu.Unlock()

	o, known := sym.orders[id]
	if !known {
		return CancelResult{Outcome: NotFound}
	}
	if o.Status.Terminal() || !o.Type.CanRest() {
		return CancelResult{Outcome: AlreadyTerminal}
	}

	bidBefore, bidOKBefore, askBefore, askOKBefore := sym.book.BBO()

	if _, found := sym.book.Cancel(id); !found {
		panic(fmt.Errorf("%w: order %s not terminal but absent from book", book.ErrInvariantViolation, id))
	}

	e.publishDeltas(sym, symbol, nil, true, bidBefore, bidOKBefore, askBefore, askOKBefore)

	return CancelResult{Outcome: Cancelled}
}

// BBO returns a read-consistent snapshot of symbol's best bid/offer.
func (e *MatchingEngine) BBO(symbol string) BboSnapshot {
	sym, ok := e.getSymbol(symbol)
	if !ok {
		return BboSnapshot{Symbol: symbol}
	}
	sym.mu.Lock()
	defer sym.mu.Unlock()

	bid, bidOK, ask, askOK := sym.book.BBO()
	return BboSnapshot{Symbol: symbol, Bid: bid, BidOK: bidOK, Ask: ask, AskOK: askOK}
}

// Snapshot returns a read-consistent copy of the top depth levels per
// side of symbol's book, taken under the symbol lock. An unseen symbol
// reports an empty book, not an error, since a book with no orders yet
// is a perfectly valid observation.
func (e *MatchingEngine) Snapshot(symbol string, depth int) DepthSnapshot {
	sym, ok := e.getSymbol(symbol)
	if !ok {
		return DepthSnapshot{Symbol: symbol}
	}
	sym.mu.Lock()
	defer sym.mu.Unlock()

	bids, asks := sym.book.Depth(depth)
	return DepthSnapshot{Symbol: symbol, Bids: bids, Asks: asks}
}

// Subscribe registers a consumer for trade, bbo, or depth events.
func (e *MatchingEngine) Subscribe(kind eventbus.Kind) *eventbus.Subscription {
	return e.bus.Subscribe(kind)
}

// Unsubscribe deregisters a consumer previously returned by Subscribe.
func (e *MatchingEngine) Unsubscribe(sub *eventbus.Subscription) {
	e.bus.Unsubscribe(sub)
}

// publishDeltas emits, in canonical order (trades in execution order,
// then bbo, then depth), every trade produced by this submission, a
// BboEvent if the top of book changed, and at most one DepthEvent if
// the book was mutated at all. mutated must be true whenever the book
// changed in any way, including insertions and cancellations below the
// best price that leave the BBO intact.
func (e *MatchingEngine) publishDeltas(
	sym *symbolState,
	symbol string,
	trades []order.Trade,
	mutated bool,
	bidBefore book.PriceQty, bidOKBefore bool,
	askBefore book.PriceQty, askOKBefore bool,
) {
	if e.bus == nil {
		return
	}

	for _, t := range trades {
		e.bus.PublishTrade(eventbus.TradeEvent{Symbol: symbol, Trade: t})
	}

	bidAfter, bidOKAfter, askAfter, askOKAfter := sym.book.BBO()
	bboChanged := bidOKBefore != bidOKAfter || askOKBefore != askOKAfter ||
		(bidOKAfter && !bidBefore.Price.Equal(bidAfter.Price)) ||
		(bidOKAfter && !bidBefore.Qty.Equal(bidAfter.Qty)) ||
		(askOKAfter && !askBefore.Price.Equal(askAfter.Price)) ||
		(askOKAfter && !askBefore.Qty.Equal(askAfter.Qty))

	if bboChanged {
		e.bus.PublishBBO(eventbus.BboEvent{
			Symbol: symbol,
			Bid:    bidAfter, BidOK: bidOKAfter,
			Ask: askAfter, AskOK: askOKAfter,
		})
	}

	if mutated {
		bids, asks := sym.book.Depth(0)
		e.bus.PublishDepth(eventbus.DepthEvent{Symbol: symbol, Bids: bids, Asks: asks})
	}
}
