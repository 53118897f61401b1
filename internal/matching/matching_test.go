package matching_test

import (
	"testing"
	"time"

	"matchengine/internal/book"
	"matchengine/internal/common"
	"matchengine/internal/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(t *testing.T, s string) common.Money {
	t.Helper()
	m, err := common.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func fixedClock(at time.Time) matching.Clock {
	return func() time.Time { return at }
}

func restingOrder(t *testing.T, id int64, symbol string, side common.Side, price, qty string) *common.Order {
	t.Helper()
	return &common.Order{
		OrderID:  id,
		UserID:   "maker",
		Symbol:   symbol,
		Side:     side,
		Type:     common.Limit,
		Price:    money(t, price),
		Quantity: money(t, qty),
		Status:   common.Open,
	}
}

// Scenario 1: full cross at equal price fully fills both orders, empties
// the book (spec §8 scenario 1).
func TestLimit_FullCross_EmptiesBook(t *testing.T) {
	ob := book.New("BTC-USD")
	sell := restingOrder(t, 1, "BTC-USD", common.Sell, "50000", "1.0")
	ob.Rest(sell)

	buy := &common.Order{OrderID: 2, UserID: "taker", Symbol: "BTC-USD", Side: common.Buy, Type: common.Limit,
		Price: money(t, "50000"), Quantity: money(t, "1.0")}

	strat := matching.LimitStrategy{}
	result, err := strat.Match(buy, ob, fixedClock(time.Now()))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.True(t, trade.Price.Cmp(money(t, "50000")) == 0)
	assert.True(t, trade.Quantity.Cmp(money(t, "1.0")) == 0)
	assert.Equal(t, int64(2), trade.BuyOrderID)
	assert.Equal(t, int64(1), trade.SellOrderID)
	assert.Equal(t, common.Filled, buy.Status)
	assert.Equal(t, common.Filled, sell.Status)
	assert.True(t, ob.Asks.Empty())
	assert.True(t, ob.Bids.Empty())
}

// Scenario 2: partial cross leaves the taker resting with remaining
// quantity (spec §8 scenario 2).
func TestLimit_PartialCross_RestsRemainder(t *testing.T) {
	ob := book.New("BTC-USD")
	ob.Rest(restingOrder(t, 1, "BTC-USD", common.Sell, "50000", "0.5"))

	buy := &common.Order{OrderID: 2, UserID: "taker", Symbol: "BTC-USD", Side: common.Buy, Type: common.Limit,
		Price: money(t, "50000"), Quantity: money(t, "1.0")}

	strat := matching.LimitStrategy{}
	result, err := strat.Match(buy, ob, fixedClock(time.Now()))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.True(t, result.Trades[0].Quantity.Cmp(money(t, "0.5")) == 0)
	assert.Equal(t, common.PartiallyFilled, buy.Status)
	assert.True(t, buy.Remaining().Cmp(money(t, "0.5")) == 0)

	level, ok := ob.Bids.Level(money(t, "50000"))
	require.True(t, ok)
	require.Len(t, level.Orders, 1)
	assert.Equal(t, int64(2), level.Orders[0].OrderID)
}

// Scenario 3: sweeps two levels, rests remainder at a third (spec §8
// scenario 3).
func TestLimit_MultiLevelSweep(t *testing.T) {
	ob := book.New("BTC-USD")
	ob.Rest(restingOrder(t, 1, "BTC-USD", common.Sell, "50000", "0.3"))
	ob.Rest(restingOrder(t, 2, "BTC-USD", common.Sell, "50100", "0.5"))
	ob.Rest(restingOrder(t, 3, "BTC-USD", common.Sell, "50200", "0.4"))

	buy := &common.Order{OrderID: 4, UserID: "taker", Symbol: "BTC-USD", Side: common.Buy, Type: common.Limit,
		Price: money(t, "50150"), Quantity: money(t, "1.0")}

	strat := matching.LimitStrategy{}
	result, err := strat.Match(buy, ob, fixedClock(time.Now()))
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)
	assert.True(t, result.Trades[0].Price.Cmp(money(t, "50000")) == 0)
	assert.True(t, result.Trades[0].Quantity.Cmp(money(t, "0.3")) == 0)
	assert.True(t, result.Trades[1].Price.Cmp(money(t, "50100")) == 0)
	assert.True(t, result.Trades[1].Quantity.Cmp(money(t, "0.5")) == 0)

	assert.Equal(t, common.PartiallyFilled, buy.Status)
	assert.True(t, buy.FilledQuantity.Cmp(money(t, "0.8")) == 0)
	assert.True(t, buy.Remaining().Cmp(money(t, "0.2")) == 0)

	bestAsk := ob.BestAsk()
	require.NotNil(t, bestAsk)
	assert.True(t, bestAsk.Price.Cmp(money(t, "50200")) == 0)
}

// Scenario 4: same-price makers consumed strictly in FIFO order (spec §8
// scenario 4).
func TestLimit_SamePriceFIFO(t *testing.T) {
	ob := book.New("BTC-USD")
	ob.Rest(restingOrder(t, 1, "BTC-USD", common.Sell, "50000", "0.3"))
	ob.Rest(restingOrder(t, 2, "BTC-USD", common.Sell, "50000", "0.5"))
	ob.Rest(restingOrder(t, 3, "BTC-USD", common.Sell, "50000", "0.2"))

	buy := &common.Order{OrderID: 4, UserID: "taker", Symbol: "BTC-USD", Side: common.Buy, Type: common.Limit,
		Price: money(t, "50000"), Quantity: money(t, "0.7")}

	strat := matching.LimitStrategy{}
	result, err := strat.Match(buy, ob, fixedClock(time.Now()))
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)
	assert.Equal(t, int64(1), result.Trades[0].SellOrderID)
	assert.True(t, result.Trades[0].Quantity.Cmp(money(t, "0.3")) == 0)
	assert.Equal(t, int64(2), result.Trades[1].SellOrderID)
	assert.True(t, result.Trades[1].Quantity.Cmp(money(t, "0.4")) == 0)

	assert.Equal(t, common.Filled, buy.Status)

	level, ok := ob.Asks.Level(money(t, "50000"))
	require.True(t, ok)
	require.Len(t, level.Orders, 2)
	assert.Equal(t, int64(2), level.Orders[0].OrderID)
	assert.True(t, level.Orders[0].Remaining().Cmp(money(t, "0.1")) == 0)
	assert.Equal(t, int64(3), level.Orders[1].OrderID)
	assert.True(t, level.Orders[1].Remaining().Cmp(money(t, "0.2")) == 0)
}

// Scenario 5: MARKET order partially filled by the only resting liquidity,
// never rests (spec §8 scenario 5).
func TestMarket_PartialFill_NeverRests(t *testing.T) {
	ob := book.New("BTC-USD")
	ob.Rest(restingOrder(t, 1, "BTC-USD", common.Sell, "50000", "0.5"))

	buy := &common.Order{OrderID: 2, UserID: "taker", Symbol: "BTC-USD", Side: common.Buy, Type: common.Market,
		Quantity: money(t, "1.0")}

	strat := matching.MarketStrategy{}
	result, err := strat.Match(buy, ob, fixedClock(time.Now()))
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.True(t, result.Trades[0].Quantity.Cmp(money(t, "0.5")) == 0)
	assert.Equal(t, common.PartiallyFilled, buy.Status)
	assert.True(t, ob.Bids.Empty())
}

// Scenario 6: MARKET against an empty opposite ladder is rejected with
// zero trades (spec §8 scenario 6).
func TestMarket_EmptyBook_Rejected(t *testing.T) {
	ob := book.New("BTC-USD")
	sell := &common.Order{OrderID: 1, UserID: "taker", Symbol: "BTC-USD", Side: common.Sell, Type: common.Market,
		Quantity: money(t, "0.1")}

	strat := matching.MarketStrategy{}
	result, err := strat.Match(sell, ob, fixedClock(time.Now()))
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, common.Rejected, sell.Status)
}

// LIMIT with no crossing rests untouched at the tail (spec §8 boundary
// behavior).
func TestLimit_NoCross_Rests(t *testing.T) {
	ob := book.New("BTC-USD")
	ob.Rest(restingOrder(t, 1, "BTC-USD", common.Sell, "50000", "1.0"))

	buy := &common.Order{OrderID: 2, UserID: "taker", Symbol: "BTC-USD", Side: common.Buy, Type: common.Limit,
		Price: money(t, "49000"), Quantity: money(t, "1.0")}

	strat := matching.LimitStrategy{}
	result, err := strat.Match(buy, ob, fixedClock(time.Now()))
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, common.Open, buy.Status)
	level, ok := ob.Bids.Level(money(t, "49000"))
	require.True(t, ok)
	assert.Len(t, level.Orders, 1)
}

func TestFor_UnknownType(t *testing.T) {
	_, err := matching.For(common.OrderType(99))
	assert.ErrorIs(t, err, common.ErrInvalidOrderType)
}
