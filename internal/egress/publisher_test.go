package egress_test

import (
	"context"
	"net"
	"testing"
	"time"

	"matchengine/internal/common"
	"matchengine/internal/egress"

	"github.com/stretchr/testify/require"
)

func requireKafka(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:9092", 200*time.Millisecond)
	if err != nil {
		t.Skip("kafka not reachable at 127.0.0.1:9092, skipping integration test")
	}
	conn.Close()
}

func money(t *testing.T, s string) common.Money {
	t.Helper()
	m, err := common.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func TestPublisher_PublishStatus_DoesNotPanic(t *testing.T) {
	requireKafka(t)
	p := egress.New(egress.Config{
		Brokers:        []string{"127.0.0.1:9092"},
		StatusTopic:    "order-status-update",
		TradeTopic:     "trade-output",
		StatusDLQTopic: "order-status-update-dlq",
		TradeDLQTopic:  "trade-output-dlq",
	})
	defer p.Close()

	o := &common.Order{OrderID: 1, UserID: "u1", Symbol: "BTC-USD", Side: common.Buy, Type: common.Limit,
		Price: money(t, "100"), Quantity: money(t, "1"), Status: common.Open}
	p.PublishStatus(context.Background(), o, time.Now())
}
