package book

import (
	"matchengine/internal/common"

	"github.com/tidwall/btree"
)

// Ladder is one side of a book: price levels ordered by the teacher's
// tidwall/btree (internal/engine/orderbook.go), generalized to a
// Money-keyed comparator so both bids (descending) and asks (ascending)
// share one implementation instead of the teacher's duplicated
// engine/order book.book/buy_book.go + sell_book.go pair.
type Ladder struct {
	tree *btree.BTreeG[*PriceLevel]
}

// newLadder builds a ladder with the given less-than comparator. Bids use
// a descending comparator (highest price first); asks ascending.
func newLadder(less func(a, b *PriceLevel) bool) *Ladder {
	return &Ladder{tree: btree.NewBTreeG(less)}
}

// NewBidLadder orders price levels highest-first.
func NewBidLadder() *Ladder {
	return newLadder(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price)
	})
}

// NewAskLadder orders price levels lowest-first.
func NewAskLadder() *Ladder {
	return newLadder(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price)
	})
}

// Insert appends an order at its price, creating the price level if it is
// new (spec §4.1).
func (l *Ladder) Insert(o *common.Order) {
	probe := &PriceLevel{Price: o.Price}
	level, found := l.tree.Get(probe)
	if !found {
		level = &PriceLevel{Price: o.Price}
		level.Append(o)
		l.tree.Set(level)
		return
	}
	level.Append(o)
}

// Best returns the top-of-book price level (lowest key for an ascending
// ladder, highest for a descending one) or nil if the ladder is empty.
func (l *Ladder) Best() *PriceLevel {
	level, ok := l.tree.Min()
	if !ok {
		return nil
	}
	return level
}

// Level returns the price level at exactly the given price, if any.
func (l *Ladder) Level(price common.Money) (*PriceLevel, bool) {
	return l.tree.Get(&PriceLevel{Price: price})
}

// DropIfEmpty removes the price key if its queue has no resting orders
// left (spec §4.1).
func (l *Ladder) DropIfEmpty(level *PriceLevel) {
	if level.Empty() {
		l.tree.Delete(level)
	}
}

// RemoveByID scans every price level for the given order id and removes
// it, dropping the level if it becomes empty. Returns the removed order,
// or nil if not found. Used by the cancellation path (spec §4.1).
func (l *Ladder) RemoveByID(orderID int64) *common.Order {
	var removed *common.Order
	l.tree.Scan(func(level *PriceLevel) bool {
		if o := level.RemoveByID(orderID); o != nil {
			removed = o
			return false
		}
		return true
	})
	if removed != nil {
		if level, ok := l.tree.Get(&PriceLevel{Price: removed.Price}); ok {
			l.DropIfEmpty(level)
		}
	}
	return removed
}

// Empty reports whether the ladder has no price levels at all.
func (l *Ladder) Empty() bool {
	_, ok := l.tree.Min()
	return !ok
}

// Len returns the number of distinct price levels.
func (l *Ladder) Len() int {
	return l.tree.Len()
}

// Levels returns every price level in ladder (best-first) order. Used by
// the Depth Aggregator (spec §4.11) and by snapshot serialization
// (spec §4.8).
func (l *Ladder) Levels() []*PriceLevel {
	out := make([]*PriceLevel, 0, l.tree.Len())
	l.tree.Scan(func(level *PriceLevel) bool {
		out = append(out, level)
		return true
	})
	return out
}
