package deadletter

import (
	"context"
	"testing"
	"time"

	"matchengine/internal/common"
	"matchengine/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafka "github.com/segmentio/kafka-go"
)

type fakeStore struct {
	order   *common.Order
	version int64
	updated *common.Order
}

func (f *fakeStore) GetOrder(ctx context.Context, orderID int64) (*common.Order, int64, error) {
	if f.order == nil {
		return nil, 0, common.ErrNotFound
	}
	cp := *f.order
	return &cp, f.version, nil
}

func (f *fakeStore) UpdateOrderVersioned(ctx context.Context, o *common.Order, expectedVersion int64) error {
	if expectedVersion != f.version {
		return common.ErrVersionConflict
	}
	cp := *o
	f.updated = &cp
	return nil
}

type fakePublisher struct {
	published *common.Order
	errMsg    string
}

func (f *fakePublisher) PublishStatusFailed(ctx context.Context, o *common.Order, errMsg string, at time.Time) {
	cp := *o
	f.published = &cp
	f.errMsg = errMsg
}

func TestHandleFailedOrder_TransitionsPendingToFailed(t *testing.T) {
	store := &fakeStore{order: &common.Order{OrderID: 1, UserID: "u1", Symbol: "BTC-USD", Status: common.Pending}, version: 2}
	pub := &fakePublisher{}
	h := &Handler{store: store, publisher: pub}

	qty, err := common.ParseMoney("1")
	require.NoError(t, err)
	evt := events.NewOrderEvent{OrderID: 1, UserID: "u1", Symbol: "BTC-USD", Side: common.Buy, Type: common.Market, Quantity: qty}
	data, err := events.Marshal(evt)
	require.NoError(t, err)

	h.handleFailedOrder(context.Background(), kafka.Message{Value: data})

	require.NotNil(t, store.updated)
	assert.Equal(t, common.Failed, store.updated.Status)
	require.NotNil(t, pub.published)
	assert.Equal(t, common.Failed, pub.published.Status)
}

func TestHandleFailedOrder_SkipsNonPendingOrder(t *testing.T) {
	store := &fakeStore{order: &common.Order{OrderID: 1, UserID: "u1", Symbol: "BTC-USD", Status: common.Filled}, version: 1}
	pub := &fakePublisher{}
	h := &Handler{store: store, publisher: pub}

	qty, err := common.ParseMoney("1")
	require.NoError(t, err)
	evt := events.NewOrderEvent{OrderID: 1, UserID: "u1", Symbol: "BTC-USD", Side: common.Buy, Type: common.Market, Quantity: qty}
	data, err := events.Marshal(evt)
	require.NoError(t, err)

	h.handleFailedOrder(context.Background(), kafka.Message{Value: data})

	assert.Nil(t, store.updated)
	assert.Nil(t, pub.published)
}
