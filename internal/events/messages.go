// Package events defines the wire payloads of spec §6: new-order,
// order-status-update and trade-executed events, plus their DLQ twins.
// Generalizes the teacher's internal/net/messages.go (a length-prefixed
// binary TCP protocol) to JSON envelopes suited to Kafka records, since
// the core now talks to a broker instead of owning the client socket.
package events

import (
	"encoding/json"
	"time"

	"matchengine/internal/common"
)

// NewOrderEvent is the order-input payload (spec §6).
type NewOrderEvent struct {
	MessageID     string          `json:"message_id"`
	CorrelationID string          `json:"correlation_id"`
	Timestamp     time.Time       `json:"timestamp"`
	OrderID       int64           `json:"order_id"`
	UserID        string          `json:"user_id"`
	Symbol        string          `json:"symbol"`
	Side          common.Side     `json:"side"`
	Type          common.OrderType `json:"type"`
	Price         *common.Money   `json:"price,omitempty"`
	Quantity      common.Money    `json:"quantity"`
}

// StatusReason explains why an order-status-update event was emitted.
type StatusReason string

const (
	ReasonMatched         StatusReason = "MATCHED"
	ReasonCancelled       StatusReason = "CANCELLED"
	ReasonRejected        StatusReason = "REJECTED"
	ReasonProcessingError StatusReason = "PROCESSING_ERROR"
)

// OrderStatusEvent is the order-status-update payload (spec §6), keyed by
// user_id so a user's own updates stay in order.
type OrderStatusEvent struct {
	OrderID           int64         `json:"order_id"`
	UserID            string        `json:"user_id"`
	Symbol            string        `json:"symbol"`
	Status            common.Status `json:"status"`
	FilledQuantity    common.Money  `json:"filled_quantity"`
	RemainingQuantity common.Money  `json:"remaining_quantity"`
	Timestamp         time.Time     `json:"timestamp"`
	Reason            StatusReason  `json:"reason"`
	ErrorMessage      *string       `json:"error_message,omitempty"`
}

// TradeEvent is the trade-output payload (spec §6), keyed by symbol.
type TradeEvent struct {
	MessageID     string       `json:"message_id"`
	Timestamp     time.Time    `json:"timestamp"`
	TradeID       int64        `json:"trade_id"`
	BuyOrderID    int64        `json:"buy_order_id"`
	SellOrderID   int64        `json:"sell_order_id"`
	Symbol        string       `json:"symbol"`
	Price         common.Money `json:"price"`
	Quantity      common.Money `json:"quantity"`
	TakerOrderID  int64        `json:"taker_order_id"`
	MakerOrderID  int64        `json:"maker_order_id"`
}

// NewStatusEvent builds a status event from the current state of an
// order, matching the order-status-update schema of spec §6 exactly.
func NewStatusEvent(o *common.Order, reason StatusReason, errMsg *string, at time.Time) OrderStatusEvent {
	return OrderStatusEvent{
		OrderID:           o.OrderID,
		UserID:            o.UserID,
		Symbol:            o.Symbol,
		Status:            o.Status,
		FilledQuantity:    o.FilledQuantity,
		RemainingQuantity: o.Remaining(),
		Timestamp:         at,
		Reason:            reason,
		ErrorMessage:      errMsg,
	}
}

// NewTradeEvent builds a trade-executed event, tagging taker and maker
// (spec §4.4: "tagged with taker=incoming, maker=other").
func NewTradeEvent(messageID string, t *common.Trade, takerOrderID, makerOrderID int64, at time.Time) TradeEvent {
	return TradeEvent{
		MessageID:    messageID,
		Timestamp:    at,
		TradeID:      t.TradeID,
		BuyOrderID:   t.BuyOrderID,
		SellOrderID:  t.SellOrderID,
		Symbol:       t.Symbol,
		Price:        t.Price,
		Quantity:     t.Quantity,
		TakerOrderID: takerOrderID,
		MakerOrderID: makerOrderID,
	}
}

// Marshal/Unmarshal are thin wrappers kept together so every event type
// serializes the same way; swapping codecs later touches one file.
func Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func UnmarshalNewOrder(data []byte) (NewOrderEvent, error) {
	var e NewOrderEvent
	err := json.Unmarshal(data, &e)
	return e, err
}
