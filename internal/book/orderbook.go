// Package book implements the per-symbol limit order book: FIFO price
// levels (level.go), the two ordered bid/ask collections, and the
// price-time priority matching primitives the engine package drives.
package book

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"matchengine/internal/order"
)

// ErrInvariantViolation marks a defect in the matcher: the book would
// otherwise be left in an inconsistent state. This is fatal and must
// never be recovered from silently.
var ErrInvariantViolation = errors.New("book: invariant violation")

type location struct {
	side  order.Side
	level *PriceLevel
	ord   *order.Order
}

// Levels is the ordered collection of PriceLevels for one side of the
// book, keyed by price and kept sorted by the comparator passed to
// NewOrderBook (descending for bids, ascending for asks) so Min always
// yields the best price in O(log L) insert/delete.
type Levels = btree.BTreeG[*PriceLevel]

// OrderBook holds one symbol's bid and ask price levels plus an
// order-id index for O(1) cancellation. It has no lock of its own; the
// owning engine.MatchingEngine serializes all access per symbol.
type OrderBook struct {
	Symbol string

	bids *Levels
	asks *Levels

	byID map[uuid.UUID]*location
}

// NewOrderBook constructs an empty book for symbol.
func NewOrderBook(symbol string) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price) // best bid (highest price) first
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price) // best ask (lowest price) first
	})
	return &OrderBook{
		Symbol: symbol,
		bids:   bids,
		asks:   asks,
		byID:   make(map[uuid.UUID]*location),
	}
}

func (book *OrderBook) levels(side order.Side) *Levels {
	if side == order.Buy {
		return book.bids
	}
	return book.asks
}

// PriceQty is a (price, aggregate quantity) pair, the unit BBO and
// Depth report in.
type PriceQty struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// BBO returns the best bid and best ask (price, aggregate quantity at
// that price), each in O(1) from the tree's extreme. A missing side is
// reported with its ok flag false.
func (book *OrderBook) BBO() (bid PriceQty, bidOK bool, ask PriceQty, askOK bool) {
	if lvl, ok := book.bids.Min(); ok {
		bid, bidOK = PriceQty{Price: lvl.Price, Qty: lvl.TotalQty}, true
	}
	if lvl, ok := book.asks.Min(); ok {
		ask, askOK = PriceQty{Price: lvl.Price, Qty: lvl.TotalQty}, true
	}
	return
}

// Depth returns the top d price levels per side, best price first. A
// depth of 0 or less returns every level.
func (book *OrderBook) Depth(d int) (bids, asks []PriceQty) {
	collect := func(levels *Levels) []PriceQty {
		out := make([]PriceQty, 0, max(d, 0))
		n := 0
		levels.Scan(func(lvl *PriceLevel) bool {
			out = append(out, PriceQty{Price: lvl.Price, Qty: lvl.TotalQty})
			n++
			return d <= 0 || n < d
		})
		return out
	}
	return collect(book.bids), collect(book.asks)
}

// Insert rests o at the tail of its side's price level, creating the
// level if absent. Only ever called for the residual quantity of a
// Limit order.
func (book *OrderBook) Insert(o *order.Order) {
	levels := book.levels(o.Side)
	probe := &PriceLevel{Price: o.LimitPrice}
	lvl, ok := levels.GetMut(probe)
	if !ok {
		lvl = NewPriceLevel(o.LimitPrice)
		levels.Set(lvl)
	}
	lvl.Enqueue(o)
	book.byID[o.ID] = &location{side: o.Side, level: lvl, ord: o}
}

// Cancel removes o from its resting level in O(1) via the order-id
// index, collapses the level if it is now empty, and marks o Cancelled.
// Reports ok=false if o is not currently resting in this book (it may
// have already matched, already been cancelled, or never rested).
func (book *OrderBook) Cancel(id uuid.UUID) (o *order.Order, ok bool) {
	loc, found := book.byID[id]
	if !found {
		return nil, false
	}
	delete(book.byID, id)
	loc.level.Remove(loc.ord)
	if loc.level.IsEmpty() {
		book.levels(loc.side).Delete(loc.level)
	}
	loc.ord.Status = order.Cancelled
	return loc.ord, true
}

// removeFromIndex drops a fully-consumed maker order from the order-id
// index; called during matching once a level's head is fully filled.
func (book *OrderBook) removeFromIndex(o *order.Order) {
	delete(book.byID, o.ID)
}

// CanFill is the read-only feasibility primitive used by FOK and Market
// admission: it sums cached level quantities on the opposite side of
// takerSide, walking best price outward, until the running total meets
// want or the next level violates priceLimit. It never mutates state.
func (book *OrderBook) CanFill(takerSide order.Side, priceLimit *decimal.Decimal, want decimal.Decimal) bool {
	levels := book.levels(takerSide.Opposite())
	sum := decimal.Zero
	levels.Scan(func(lvl *PriceLevel) bool {
		if priceLimit != nil && violatesLimit(takerSide, lvl.Price, *priceLimit) {
			return false
		}
		sum = sum.Add(lvl.TotalQty)
		return sum.LessThan(want)
	})
	return sum.GreaterThanOrEqual(want)
}

func violatesLimit(takerSide order.Side, levelPrice, limit decimal.Decimal) bool {
	if takerSide == order.Buy {
		return levelPrice.GreaterThan(limit) // buyer won't pay more than limit
	}
	return levelPrice.LessThan(limit) // seller won't accept less than limit
}

// MatchAgainst walks the opposite side of takerSide from best price
// outward, consuming resting orders FIFO against taker until either
// taker is fully filled, the opposite side is exhausted, or the next
// best opposite price violates priceLimit (nil priceLimit means no
// limit, i.e. a Market order). Trade price is always the maker's
// resting price. taker.RemainingQuantity/Status are
// mutated in place; nextSeq supplies the per-symbol sequence number
// each Trade is stamped with.
func (book *OrderBook) MatchAgainst(takerSide order.Side, priceLimit *decimal.Decimal, taker *order.Order, nextSeq func() uint64) []order.Trade {
	levels := book.levels(takerSide.Opposite())
	var trades []order.Trade

	for taker.RemainingQuantity.IsPositive() {
		lvl, ok := levels.MinMut()
		if !ok {
			break
		}
		if priceLimit != nil && violatesLimit(takerSide, lvl.Price, *priceLimit) {
			break
		}

		for taker.RemainingQuantity.IsPositive() {
			head := lvl.PeekHead()
			if head == nil {
				break
			}
			if head.RemainingQuantity.IsZero() {
				// Defensive: a zero-remaining order must never be
				// observable at a level's head.
				lvl.PopHead()
				book.removeFromIndex(head)
				continue
			}

			matchQty := decimal.Min(taker.RemainingQuantity, head.RemainingQuantity)
			trades = append(trades, order.NewTrade(
				book.Symbol, lvl.Price, matchQty, takerSide, head.ID, taker.ID, nextSeq(),
			))

			head.Fill(matchQty)
			taker.Fill(matchQty)
			lvl.TotalQty = lvl.TotalQty.Sub(matchQty)

			if head.RemainingQuantity.IsZero() {
				lvl.PopHead()
				book.removeFromIndex(head)
			}
		}

		if lvl.IsEmpty() {
			levels.Delete(lvl)
		}
	}

	return trades
}

// Crossed reports whether the book is in an illegally crossed state
// (best_bid >= best_ask). Used by property tests and as a defensive
// post-match assertion.
func (book *OrderBook) Crossed() bool {
	bid, bidOK, ask, askOK := book.BBO()
	if !bidOK || !askOK {
		return false
	}
	return bid.Price.GreaterThanOrEqual(ask.Price)
}
