// Package matching implements the LIMIT and MARKET matching strategies of
// spec §4.2/§4.3: pure functions over (incoming Order, OrderBook) that
// compute fills, trades and residuals, generalizing the teacher's
// handleLimit/handleMarket sweep (internal/engine/orderbook.go) to a
// strategy interface dispatched by order type (spec §9 "Polymorphism").
package matching

import "matchengine/internal/common"

// MatchResult is the output of running a strategy: the (possibly
// mutated) incoming order, every Trade produced in execution order, and
// every maker Order that was mutated — including ones whose queue slot
// was removed (spec §4.2).
type MatchResult struct {
	Taker         *common.Order
	Trades        []*common.Trade
	MutatedMakers []*common.Order
}
