package matching

import (
	"time"

	"matchengine/internal/book"
	"matchengine/internal/common"
)

// Strategy computes a match result for one incoming order against a book.
// Implementations must not perform I/O or locking — the Matching
// Coordinator (internal/coordinator) owns serialization and persistence
// so a strategy can be cheaply re-run on an optimistic-lock retry
// (spec §4.4).
type Strategy interface {
	Match(taker *common.Order, ob *book.OrderBook, now Clock) (MatchResult, error)
}

// Clock supplies the current time to a strategy run, letting tests fix a
// deterministic timestamp without a global clock dependency.
type Clock func() time.Time

// For selects the strategy appropriate to an order's type (spec §4.4/§9).
func For(t common.OrderType) (Strategy, error) {
	switch t {
	case common.Limit:
		return LimitStrategy{}, nil
	case common.Market:
		return MarketStrategy{}, nil
	default:
		return nil, common.ErrInvalidOrderType
	}
}
