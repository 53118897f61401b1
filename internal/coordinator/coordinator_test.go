package coordinator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"matchengine/internal/book"
	"matchengine/internal/common"
	"matchengine/internal/coordinator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"
)

type fakeStore struct {
	mu           sync.Mutex
	orders       map[int64]*common.Order
	versions     map[int64]int64
	trades       []*common.Trade
	books        map[string]book.Snapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   make(map[int64]*common.Order),
		versions: make(map[int64]int64),
		books:    make(map[string]book.Snapshot),
	}
}

func (f *fakeStore) InsertOrder(ctx context.Context, o *common.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	f.orders[o.OrderID] = &cp
	f.versions[o.OrderID] = 0
	return nil
}

func (f *fakeStore) UpdateOrderVersioned(ctx context.Context, o *common.Order, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.versions[o.OrderID] != expectedVersion {
		return common.ErrVersionConflict
	}
	cp := *o
	f.orders[o.OrderID] = &cp
	f.versions[o.OrderID]++
	return nil
}

func (f *fakeStore) GetOrder(ctx context.Context, orderID int64) (*common.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, 0, common.ErrNotFound
	}
	cp := *o
	return &cp, f.versions[orderID], nil
}

func (f *fakeStore) InsertTrades(ctx context.Context, trades []*common.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, trades...)
	return nil
}

func (f *fakeStore) LoadOrderBookSnapshot(ctx context.Context, symbol string) (*book.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.books[symbol]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := snap
	return &cp, nil
}

func (f *fakeStore) SaveOrderBookSnapshotVersioned(ctx context.Context, snap book.Snapshot, expectedVersion uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.books[snap.Symbol]
	if ok {
		if current.Version != expectedVersion {
			return common.ErrVersionConflict
		}
	} else if expectedVersion != 0 {
		return common.ErrVersionConflict
	}
	f.books[snap.Symbol] = snap
	return nil
}

type fakeSink struct {
	mu       sync.Mutex
	statuses []*common.Order
	trades   [][]*common.Trade
}

func (f *fakeSink) PublishStatus(ctx context.Context, o *common.Order, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	f.statuses = append(f.statuses, &cp)
}

func (f *fakeSink) PublishTrades(ctx context.Context, trades []*common.Trade, takerID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, trades)
}

type fakeRegistrar struct {
	mu       sync.Mutex
	symbols map[string]bool
}

func (f *fakeRegistrar) Register(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.symbols == nil {
		f.symbols = make(map[string]bool)
	}
	f.symbols[symbol] = true
}

func money(t *testing.T, s string) common.Money {
	t.Helper()
	m, err := common.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func TestCoordinator_SubmitOrder_MatchesAcrossTwoCalls(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	reg := &fakeRegistrar{}
	tb := &tomb.Tomb{}
	c := coordinator.New(tb, store, sink, reg, time.Now)

	sell := &common.Order{OrderID: 1, UserID: "maker", Symbol: "BTC-USD", Side: common.Sell, Type: common.Limit,
		Price: money(t, "100"), Quantity: money(t, "1")}
	require.NoError(t, c.SubmitOrder(context.Background(), sell))

	buy := &common.Order{OrderID: 2, UserID: "taker", Symbol: "BTC-USD", Side: common.Buy, Type: common.Limit,
		Price: money(t, "100"), Quantity: money(t, "1")}
	require.NoError(t, c.SubmitOrder(context.Background(), buy))

	assert.Equal(t, common.Filled, buy.Status)
	assert.Equal(t, common.Filled, sell.Status)
	assert.Len(t, store.trades, 1)

	tb.Kill(nil)
}

func TestCoordinator_SubmitOrder_RejectsInvalidOrder(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	reg := &fakeRegistrar{}
	tb := &tomb.Tomb{}
	c := coordinator.New(tb, store, sink, reg, time.Now)

	bad := &common.Order{OrderID: 1, Symbol: "BTC-USD", Side: common.Buy, Type: common.Limit,
		Price: money(t, "100"), Quantity: money(t, "0")}
	require.NoError(t, c.SubmitOrder(context.Background(), bad))
	assert.Equal(t, common.Rejected, bad.Status)

	tb.Kill(nil)
}

func TestCoordinator_CancelOrder_RemovesRestingOrder(t *testing.T) {
	store := newFakeStore()
	sink := &fakeSink{}
	reg := &fakeRegistrar{}
	tb := &tomb.Tomb{}
	c := coordinator.New(tb, store, sink, reg, time.Now)

	resting := &common.Order{OrderID: 1, UserID: "maker", Symbol: "BTC-USD", Side: common.Buy, Type: common.Limit,
		Price: money(t, "100"), Quantity: money(t, "1")}
	require.NoError(t, c.SubmitOrder(context.Background(), resting))

	require.NoError(t, c.CancelOrder(context.Background(), "BTC-USD", 1, "maker"))

	err := c.CancelOrder(context.Background(), "BTC-USD", 1, "maker")
	assert.ErrorIs(t, err, common.ErrNotFound)

	tb.Kill(nil)
}
