package book

import (
	"container/list"

	"github.com/shopspring/decimal"

	"matchengine/internal/order"
)

// PriceLevel is a FIFO queue of resting orders at one price, plus the
// cached sum of their remaining quantities. The queue is backed by
// container/list so that the handle handed back on enqueue is a genuine
// O(1) removal handle regardless of where in the queue the order sits,
// rather than only amortizing removal from the front.
type PriceLevel struct {
	Price    decimal.Decimal
	orders   *list.List
	index    map[*order.Order]*list.Element
	TotalQty decimal.Decimal
}

// NewPriceLevel creates an empty level at the given price.
func NewPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:    price,
		orders:   list.New(),
		index:    make(map[*order.Order]*list.Element),
		TotalQty: decimal.Zero,
	}
}

// Enqueue appends o to the tail of the level and returns the handle
// needed for O(1) removal later.
func (lvl *PriceLevel) Enqueue(o *order.Order) *list.Element {
	elem := lvl.orders.PushBack(o)
	lvl.index[o] = elem
	lvl.TotalQty = lvl.TotalQty.Add(o.RemainingQuantity)
	return elem
}

// PeekHead returns the oldest order at this level, or nil if empty.
func (lvl *PriceLevel) PeekHead() *order.Order {
	front := lvl.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*order.Order)
}

// PopHead removes and returns the oldest order at this level.
func (lvl *PriceLevel) PopHead() *order.Order {
	front := lvl.orders.Front()
	if front == nil {
		return nil
	}
	o := front.Value.(*order.Order)
	lvl.orders.Remove(front)
	delete(lvl.index, o)
	lvl.TotalQty = lvl.TotalQty.Sub(o.RemainingQuantity)
	return o
}

// Remove deletes o from the level in O(1) using its cached list handle.
// Reports false if o is not resting at this level.
func (lvl *PriceLevel) Remove(o *order.Order) bool {
	elem, ok := lvl.index[o]
	if !ok {
		return false
	}
	lvl.orders.Remove(elem)
	delete(lvl.index, o)
	lvl.TotalQty = lvl.TotalQty.Sub(o.RemainingQuantity)
	return true
}

// DecrementHead reduces the head order's remaining quantity by delta
// and the level's cached total by the same amount, used while a head
// order is partially (not fully) consumed by a match.
func (lvl *PriceLevel) DecrementHead(delta decimal.Decimal) {
	head := lvl.PeekHead()
	if head == nil {
		return
	}
	head.Fill(delta)
	lvl.TotalQty = lvl.TotalQty.Sub(delta)
}

// IsEmpty reports whether the level has no remaining liquidity. A level
// with TotalQty == 0 must never be observable on the book; the
// OrderBook removes it as soon as this is true.
func (lvl *PriceLevel) IsEmpty() bool {
	return lvl.orders.Len() == 0 || lvl.TotalQty.IsZero()
}

// Len returns the number of resting orders at this level.
func (lvl *PriceLevel) Len() int {
	return lvl.orders.Len()
}

// Orders returns the resting orders in FIFO order. Used by snapshotting
// and tests; callers must not mutate the returned orders.
func (lvl *PriceLevel) Orders() []*order.Order {
	out := make([]*order.Order, 0, lvl.orders.Len())
	for e := lvl.orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*order.Order))
	}
	return out
}
