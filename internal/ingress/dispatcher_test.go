package ingress

import (
	"context"
	"testing"
	"time"

	"matchengine/internal/common"
	"matchengine/internal/events"
	"matchengine/internal/idempotency"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafka "github.com/segmentio/kafka-go"
)

type fakeCoordinator struct {
	submitted []*common.Order
	err       error
}

func (f *fakeCoordinator) SubmitOrder(ctx context.Context, o *common.Order) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = append(f.submitted, o)
	return nil
}

type fakePrimaryStore struct {
	orders map[int64]*common.Order
}

func (f *fakePrimaryStore) GetOrder(ctx context.Context, orderID int64) (*common.Order, int64, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, 0, common.ErrNotFound
	}
	cp := *o
	return &cp, 0, nil
}

func dialRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skip("redis not reachable at 127.0.0.1:6379, skipping integration test")
	}
	return rdb
}

func TestDispatcher_Process_SubmitsAndMarksProcessed(t *testing.T) {
	rdb := dialRedis(t)
	defer rdb.Close()
	idem := idempotency.New(rdb)
	coord := &fakeCoordinator{}
	price, err := common.ParseMoney("100")
	require.NoError(t, err)
	qty, err := common.ParseMoney("1")
	require.NoError(t, err)
	primary := &fakePrimaryStore{orders: map[int64]*common.Order{
		1: {OrderID: 1, UserID: "u1", Symbol: "BTC-USD", Side: common.Buy, Type: common.Limit,
			Price: price, Quantity: qty, Status: common.Pending},
	}}
	d := &Dispatcher{coordinator: coord, primary: primary, idem: idem}

	evt := events.NewOrderEvent{
		MessageID: "msg-process-1", OrderID: 1, UserID: "u1", Symbol: "BTC-USD",
		Side: common.Buy, Type: common.Limit, Price: &price, Quantity: qty, Timestamp: time.Now(),
	}
	data, err := events.Marshal(evt)
	require.NoError(t, err)

	msg := kafka.Message{Value: data}
	require.NoError(t, d.process(context.Background(), msg))
	require.Len(t, coord.submitted, 1)
	assert.Equal(t, int64(1), coord.submitted[0].OrderID)

	processed, err := idem.IsProcessed(context.Background(), "msg-process-1")
	require.NoError(t, err)
	assert.True(t, processed)

	// Second pass: already-processed message is skipped (no duplicate submit).
	require.NoError(t, d.process(context.Background(), msg))
	assert.Len(t, coord.submitted, 1)
}

func TestDispatcher_Process_AcknowledgesOrderNotFound(t *testing.T) {
	rdb := dialRedis(t)
	defer rdb.Close()
	idem := idempotency.New(rdb)
	coord := &fakeCoordinator{}
	primary := &fakePrimaryStore{orders: map[int64]*common.Order{}}
	d := &Dispatcher{coordinator: coord, primary: primary, idem: idem}

	qty, err := common.ParseMoney("1")
	require.NoError(t, err)
	evt := events.NewOrderEvent{MessageID: "msg-missing-1", OrderID: 404, UserID: "u1", Symbol: "BTC-USD",
		Side: common.Buy, Type: common.Market, Quantity: qty, Timestamp: time.Now()}
	data, err := events.Marshal(evt)
	require.NoError(t, err)

	require.NoError(t, d.process(context.Background(), kafka.Message{Value: data}))
	assert.Empty(t, coord.submitted)
}

func TestDispatcher_Process_AcknowledgesNonPendingOrder(t *testing.T) {
	rdb := dialRedis(t)
	defer rdb.Close()
	idem := idempotency.New(rdb)
	coord := &fakeCoordinator{}
	qty, err := common.ParseMoney("1")
	require.NoError(t, err)
	primary := &fakePrimaryStore{orders: map[int64]*common.Order{
		2: {OrderID: 2, UserID: "u2", Symbol: "ETH-USD", Side: common.Sell, Type: common.Market,
			Quantity: qty, Status: common.Filled},
	}}
	d := &Dispatcher{coordinator: coord, primary: primary, idem: idem}

	evt := events.NewOrderEvent{MessageID: "msg-filled-1", OrderID: 2, UserID: "u2", Symbol: "ETH-USD",
		Side: common.Sell, Type: common.Market, Quantity: qty, Timestamp: time.Now()}
	data, err := events.Marshal(evt)
	require.NoError(t, err)

	require.NoError(t, d.process(context.Background(), kafka.Message{Value: data}))
	assert.Empty(t, coord.submitted)
}
