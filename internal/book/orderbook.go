package book

import (
	"time"

	"matchengine/internal/common"

	"github.com/shopspring/decimal"
)

var decimalTwo = decimal.NewFromInt(2)

// OrderBook is the per-symbol priced, time-ordered bid/ask ladder pair of
// spec §3/§4.1. Every Order resting in it has Status ∈ {OPEN,
// PARTIALLY_FILLED}, Type = LIMIT, and Remaining() > 0.
type OrderBook struct {
	Symbol    string
	Bids      *Ladder
	Asks      *Ladder
	Version   uint64
	UpdatedAt time.Time
}

// New creates an empty book for a symbol. Books are created lazily on
// first arrival for a symbol (spec §3 Lifecycle) by whatever owns the
// symbol-keyed map — see internal/coordinator.
func New(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		Bids:   NewBidLadder(),
		Asks:   NewAskLadder(),
	}
}

// ladderFor returns the ladder an order of the given side rests on.
func (b *OrderBook) ladderFor(side common.Side) *Ladder {
	if side == common.Buy {
		return b.Bids
	}
	return b.Asks
}

// oppositeLadder returns the ladder an order of the given side matches
// against.
func (b *OrderBook) oppositeLadder(side common.Side) *Ladder {
	if side == common.Buy {
		return b.Asks
	}
	return b.Bids
}

// Rest appends a LIMIT order to its own side's ladder (spec §4.2: "If the
// incoming Order is not fully matched it is appended to the tail of its
// own side's queue at its price").
func (b *OrderBook) Rest(o *common.Order) {
	b.ladderFor(o.Side).Insert(o)
}

// RemoveByID removes a resting order by identity from the given side's
// ladder (the other side is not searched), used by the cancellation path
// (spec §4.1/§8 scenario 7).
func (b *OrderBook) RemoveByID(side common.Side, orderID int64) *common.Order {
	return b.ladderFor(side).RemoveByID(orderID)
}

// BestBid returns the highest resting bid order, or nil if bids are empty.
func (b *OrderBook) BestBid() *common.Order {
	level := b.Bids.Best()
	if level == nil || level.Empty() {
		return nil
	}
	return level.Orders[0]
}

// BestAsk returns the lowest resting ask order, or nil if asks are empty.
func (b *OrderBook) BestAsk() *common.Order {
	level := b.Asks.Best()
	if level == nil || level.Empty() {
		return nil
	}
	return level.Orders[0]
}

// Spread returns best ask - best bid, and false if either side is empty
// (spec §4.11: spread is null iff either side is empty).
func (b *OrderBook) Spread() (common.Money, bool) {
	bid := b.BestBid()
	ask := b.BestAsk()
	if bid == nil || ask == nil {
		return common.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}

// Mid returns the midpoint of best bid and best ask.
func (b *OrderBook) Mid(bid, ask common.Money) common.Money {
	sum := bid.Add(ask)
	mid, err := common.NewMoney(sum.Decimal().Div(decimalTwo))
	if err != nil {
		return common.Zero
	}
	return mid
}

// Snapshot is the JSON-serializable form of a book (spec §4.8: "the
// ladders are serialized as a structured document"). Levels are stored
// best-first per side so deserialization restores ladder order without
// re-sorting, and each level's Orders slice preserves arrival (FIFO)
// order.
type Snapshot struct {
	Symbol    string        `json:"symbol"`
	Bids      []*PriceLevel `json:"bids"`
	Asks      []*PriceLevel `json:"asks"`
	Version   uint64        `json:"version"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ToSnapshot serializes the book for persistence.
func (b *OrderBook) ToSnapshot() Snapshot {
	return Snapshot{
		Symbol:    b.Symbol,
		Bids:      b.Bids.Levels(),
		Asks:      b.Asks.Levels(),
		Version:   b.Version,
		UpdatedAt: b.UpdatedAt,
	}
}

// FromSnapshot rebuilds a book from its serialized form, restoring the
// correct ordering discipline of each ladder and the FIFO order inside
// each price queue (spec §4.8/§8 round-trip law).
func FromSnapshot(s Snapshot) *OrderBook {
	b := New(s.Symbol)
	b.Version = s.Version
	b.UpdatedAt = s.UpdatedAt
	for _, level := range s.Bids {
		for _, o := range level.Orders {
			b.Bids.Insert(o)
		}
	}
	for _, level := range s.Asks {
		for _, o := range level.Orders {
			b.Asks.Insert(o)
		}
	}
	return b
}
