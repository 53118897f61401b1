package matching

import (
	"time"

	"matchengine/internal/book"
	"matchengine/internal/common"
)

// crossPredicate reports whether the incoming order may trade against a
// resting order at restingPrice. LIMIT supplies a real predicate (spec
// §4.2 step 1); MARKET passes nil to mean "always cross" (spec §4.3).
type crossPredicate func(restingPrice common.Money) bool

// sweep walks the opposite ladder in price-then-FIFO order, filling the
// incoming order against resting makers until either side is exhausted
// or the predicate stops matching. It is the one traversal both
// strategies share (spec §4.3: "Identical traversal and fill logic to
// LIMIT but without the price predicate").
func sweep(taker *common.Order, ob *book.OrderBook, now time.Time, predicate crossPredicate) MatchResult {
	result := MatchResult{Taker: taker}
	opposite := ob.Asks
	if taker.Side == common.Sell {
		opposite = ob.Bids
	}

	for taker.Remaining().IsPositive() {
		level := opposite.Best()
		if level == nil || level.Empty() {
			break
		}
		if predicate != nil && !predicate(level.Price) {
			break
		}

		for taker.Remaining().IsPositive() && !level.Empty() {
			maker := level.Orders[0]
			fillQty := common.Min(taker.Remaining(), maker.Remaining())

			taker.Fill(fillQty, now)
			maker.Fill(fillQty, now)

			result.Trades = append(result.Trades, newTrade(taker, maker, level.Price, fillQty, now))
			result.MutatedMakers = append(result.MutatedMakers, maker)

			if !maker.Remaining().IsPositive() {
				level.RemoveHead()
			}
		}

		opposite.DropIfEmpty(level)
	}

	return result
}

// newTrade assigns buy/sell order ids by side (spec §3: buy_order_id and
// sell_order_id refer to distinct orders with opposite sides) and prices
// the trade at the maker's price (spec GLOSSARY: Maker/Taker).
func newTrade(taker, maker *common.Order, price common.Money, qty common.Money, at time.Time) *common.Trade {
	t := &common.Trade{
		Symbol:    taker.Symbol,
		Price:     price,
		Quantity:  qty,
		CreatedAt: at,
	}
	if taker.Side == common.Buy {
		t.BuyOrderID = taker.OrderID
		t.SellOrderID = maker.OrderID
	} else {
		t.BuyOrderID = maker.OrderID
		t.SellOrderID = taker.OrderID
	}
	return t
}
