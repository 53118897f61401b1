// Package book implements the order book data structure of spec §4.1: a
// priced, time-ordered bid/ask ladder pair with mutation primitives the
// matching strategies and the cancellation path both drive.
//
// The structure generalizes the teacher's btree-backed price-level design
// (internal/engine/orderbook.go in the reference pack) from a single
// in-process Equities book to a Money-priced, symbol-keyed book whose
// ladders round-trip through JSON for persistence (spec §4.8).
package book

import (
	"matchengine/internal/common"
)

// PriceLevel is one price point on a ladder: a FIFO queue of resting
// Orders sharing that price (spec §3 OrderBook invariant: all Orders at a
// key share that key's price).
type PriceLevel struct {
	Price  common.Money    `json:"price"`
	Orders []*common.Order `json:"orders"`
}

// Append adds an order to the tail of the queue (spec §4.1: insert =
// append to tail, creating the queue if empty).
func (pl *PriceLevel) Append(o *common.Order) {
	pl.Orders = append(pl.Orders, o)
}

// RemoveHead removes and returns the order at the head of the queue. It
// is used by the matching strategies once a maker is fully consumed.
func (pl *PriceLevel) RemoveHead() *common.Order {
	if len(pl.Orders) == 0 {
		return nil
	}
	head := pl.Orders[0]
	pl.Orders = pl.Orders[1:]
	return head
}

// RemoveByID removes a specific order by identity, scanning the queue
// rather than relying on structural equality (spec §4.1: "timestamps and
// residual quantities drift"). Remaining FIFO order is preserved. Used by
// the cancellation path.
func (pl *PriceLevel) RemoveByID(orderID int64) *common.Order {
	for i, o := range pl.Orders {
		if o.OrderID == orderID {
			removed := o
			pl.Orders = append(pl.Orders[:i], pl.Orders[i+1:]...)
			return removed
		}
	}
	return nil
}

// Empty reports whether the queue has no resting orders left (spec §4.1:
// drop an empty price key).
func (pl *PriceLevel) Empty() bool {
	return len(pl.Orders) == 0
}

// TotalRemaining sums the remaining quantity of every order at this level,
// used by the Depth Aggregator (spec §4.11).
func (pl *PriceLevel) TotalRemaining() common.Money {
	total := common.Zero
	for _, o := range pl.Orders {
		total = total.Add(o.Remaining())
	}
	return total
}
