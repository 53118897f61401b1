package matching

import (
	"matchengine/internal/book"
	"matchengine/internal/common"
)

// MarketStrategy implements spec §4.3: identical traversal to LIMIT but
// with no price predicate, and the incoming order never rests.
type MarketStrategy struct{}

func (MarketStrategy) Match(taker *common.Order, ob *book.OrderBook, clock Clock) (MatchResult, error) {
	now := clock()
	result := sweep(taker, ob, now, nil)

	switch {
	case !taker.Remaining().IsPositive():
		taker.Status = common.Filled
	case taker.FilledQuantity.IsPositive():
		taker.Status = common.PartiallyFilled
	default:
		// Empty opposite ladder: no match occurred at all (spec §4.3).
		taker.Status = common.Rejected
	}
	return result, nil
}
