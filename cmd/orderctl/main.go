// Command orderctl is a CLI client that publishes order-input events and
// tails order-status-update events, generalizing the teacher's
// cmd/client/client.go (flag-parsed order parameters, a TCP dial, an
// async background reader goroutine) from a raw TCP wire protocol to a
// Kafka producer/consumer pair.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"matchengine/internal/common"
	"matchengine/internal/events"

	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"
)

func main() {
	brokers := flag.String("brokers", "127.0.0.1:9092", "Comma-separated Kafka broker addresses")
	userID := flag.String("user", "", "User id placing the order (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['place', 'watch']")

	symbol := flag.String("symbol", "BTC-USD", "Trading symbol")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	price := flag.String("price", "", "Limit price (required for -type=limit)")
	qty := flag.String("qty", "1", "Order quantity")
	orderID := flag.Int64("order-id", 0, "Order id to assign (compulsory for -action=place)")

	flag.Parse()

	if *userID == "" {
		fmt.Println("Error: -user is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	brokerList := strings.Split(*brokers, ",")

	switch strings.ToLower(*action) {
	case "place":
		if err := place(brokerList, *userID, *symbol, *sideStr, *typeStr, *price, *qty, *orderID); err != nil {
			log.Fatalf("orderctl: place order failed: %v", err)
		}
	case "watch":
		watch(brokerList, *userID)
	default:
		fmt.Printf("Error: unknown action %q\n", *action)
		os.Exit(1)
	}
}

func place(brokers []string, userID, symbol, sideStr, typeStr, priceStr, qtyStr string, orderID int64) error {
	side := common.Buy
	if strings.ToLower(sideStr) == "sell" {
		side = common.Sell
	}
	orderType := common.Limit
	if strings.ToLower(typeStr) == "market" {
		orderType = common.Market
	}

	qty, err := common.ParseMoney(qtyStr)
	if err != nil {
		return fmt.Errorf("parse qty: %w", err)
	}

	var price *common.Money
	if orderType == common.Limit {
		p, err := common.ParseMoney(priceStr)
		if err != nil {
			return fmt.Errorf("parse price: %w", err)
		}
		price = &p
	}

	evt := events.NewOrderEvent{
		MessageID:     uuid.NewString(),
		CorrelationID: uuid.NewString(),
		Timestamp:     time.Now(),
		OrderID:       orderID,
		UserID:        userID,
		Symbol:        symbol,
		Side:          side,
		Type:          orderType,
		Price:         price,
		Quantity:      qty,
	}
	data, err := events.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        "order-input",
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(symbol), Value: data}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	fmt.Printf("-> Sent %s %s order: %s %s @ %s\n", strings.ToUpper(sideStr), strings.ToUpper(typeStr), symbol, qtyStr, priceStr)
	return nil
}

// watch tails order-status-update events for the given user, printing
// each as it arrives, until interrupted.
func watch(brokers []string, userID string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       "order-status-update",
		GroupID:     "orderctl-" + userID,
		StartOffset: kafka.LastOffset,
	})
	defer reader.Close()

	fmt.Printf("Watching status updates for user '%s'...\n", userID)
	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			log.Printf("orderctl: read status event failed: %v", err)
			return
		}
		var evt events.OrderStatusEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Printf("orderctl: unmarshal status event failed: %v", err)
			continue
		}
		if evt.UserID != userID {
			continue
		}
		fmt.Printf("order %d: %s filled=%s remaining=%s reason=%s\n",
			evt.OrderID, evt.Status, evt.FilledQuantity, evt.RemainingQuantity, evt.Reason)
	}
}
