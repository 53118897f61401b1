package matching

import (
	"matchengine/internal/book"
	"matchengine/internal/common"
)

// LimitStrategy implements spec §4.2. Generalizes the teacher's
// handleLimit (internal/engine/orderbook.go): walk the opposite ladder
// while it crosses the incoming price, then rest any residual quantity
// on the incoming order's own side.
type LimitStrategy struct{}

func (LimitStrategy) Match(taker *common.Order, ob *book.OrderBook, clock Clock) (MatchResult, error) {
	now := clock()
	predicate := func(restingPrice common.Money) bool {
		if taker.Side == common.Buy {
			// BUY crosses iff ask <= incoming price.
			return restingPrice.LessThanOrEqual(taker.Price)
		}
		// SELL crosses iff bid >= incoming price.
		return restingPrice.GreaterThanOrEqual(taker.Price)
	}

	result := sweep(taker, ob, now, predicate)

	switch {
	case !taker.Remaining().IsPositive():
		taker.Status = common.Filled
	case taker.FilledQuantity.IsPositive():
		taker.Status = common.PartiallyFilled
		ob.Rest(taker)
	default:
		taker.Status = common.Open
		ob.Rest(taker)
	}
	return result, nil
}
