package common

import (
	"fmt"
	"time"
)

// Trade is the immutable record of one fill between a buy and a sell order
// (spec §3). The trade price always equals the maker's (resting order's)
// price.
type Trade struct {
	TradeID     int64     `json:"trade_id"`
	BuyOrderID  int64     `json:"buy_order_id"`
	SellOrderID int64     `json:"sell_order_id"`
	Symbol      string    `json:"symbol"`
	Price       Money     `json:"price"`
	Quantity    Money     `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{id=%d buy=%d sell=%d symbol=%s price=%v qty=%v at=%v}",
		t.TradeID, t.BuyOrderID, t.SellOrderID, t.Symbol, t.Price, t.Quantity,
		t.CreatedAt.Format(time.RFC3339),
	)
}
