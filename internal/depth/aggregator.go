// Package depth aggregates an OrderBook's ladders into the summarized
// view spec §4.11 defines: per-price totals plus best bid/ask/spread.
// Generalizes TanishqAgarwal-OrderMatchingEngine's OrderBook.GetDepth
// (a depth-limited iteration over red-black-tree price levels summing
// RemainingQuantity per level) to the btree-backed Ladder type and the
// Money-typed quantities this module uses.
package depth

import (
	"matchengine/internal/book"
	"matchengine/internal/common"
)

const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 50
)

// Level is one aggregated price point.
type Level struct {
	Price                common.Money `json:"price"`
	TotalRemainingQty    common.Money `json:"total_remaining_quantity"`
	OrderCount           int          `json:"order_count"`
}

// Snapshot is the aggregated view returned to callers.
type Snapshot struct {
	Symbol   string       `json:"symbol"`
	Bids     []Level      `json:"bids"`
	Asks     []Level      `json:"asks"`
	BestBid  *common.Money `json:"best_bid,omitempty"`
	BestAsk  *common.Money `json:"best_ask,omitempty"`
	Spread   *common.Money `json:"spread,omitempty"`
}

// ClampLimit normalizes a caller-supplied limit into [MinLimit,
// MaxLimit], defaulting an unset (0) limit to DefaultLimit.
func ClampLimit(limit int) int {
	if limit == 0 {
		return DefaultLimit
	}
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Aggregate builds a depth Snapshot from an OrderBook, stopping each
// side at limit price levels.
func Aggregate(ob *book.OrderBook, limit int) Snapshot {
	limit = ClampLimit(limit)
	snap := Snapshot{
		Symbol: ob.Symbol,
		Bids:   aggregateLadder(ob.Bids, limit),
		Asks:   aggregateLadder(ob.Asks, limit),
	}
	if bid := ob.BestBid(); bid != nil {
		p := bid.Price
		snap.BestBid = &p
	}
	if ask := ob.BestAsk(); ask != nil {
		p := ask.Price
		snap.BestAsk = &p
	}
	if spread, ok := ob.Spread(); ok {
		snap.Spread = &spread
	}
	return snap
}

func aggregateLadder(l *book.Ladder, limit int) []Level {
	levels := l.Levels()
	if len(levels) > limit {
		levels = levels[:limit]
	}
	out := make([]Level, 0, len(levels))
	for _, level := range levels {
		out = append(out, Level{
			Price:             level.Price,
			TotalRemainingQty: level.TotalRemaining(),
			OrderCount:        len(level.Orders),
		})
	}
	return out
}
