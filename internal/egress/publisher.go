// Package egress publishes order-status-update and trade-output events
// to Kafka. Generalizes the teacher's Server.ReportTrade/ReportError (a
// synchronous write to one ClientSession's TCP socket) into a
// partitioned topic publish: status events keyed by user_id so one
// user's updates stay ordered, trade events keyed by symbol.
package egress

import (
	"context"
	"time"

	"matchengine/internal/common"
	"matchengine/internal/events"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	kafka "github.com/segmentio/kafka-go"
)

// Config names the four egress topics (spec §6).
type Config struct {
	Brokers        []string
	StatusTopic    string
	TradeTopic     string
	StatusDLQTopic string
	TradeDLQTopic  string
}

// Publisher wraps the writers egress needs.
type Publisher struct {
	status    *kafka.Writer
	trade     *kafka.Writer
	statusDLQ *kafka.Writer
	tradeDLQ  *kafka.Writer
}

// New builds the producer configuration of spec §6 (acks=1, snappy
// compression, 16KB batches, 10ms linger, 3 retries) for each topic.
func New(cfg Config) *Publisher {
	mk := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Snappy,
			BatchBytes:   16 * 1024,
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  4,
			Async:        false,
		}
	}
	return &Publisher{
		status:    mk(cfg.StatusTopic),
		trade:     mk(cfg.TradeTopic),
		statusDLQ: mk(cfg.StatusDLQTopic),
		tradeDLQ:  mk(cfg.TradeDLQTopic),
	}
}

// Close closes all underlying writers.
func (p *Publisher) Close() error {
	for _, w := range []*kafka.Writer{p.status, p.trade, p.statusDLQ, p.tradeDLQ} {
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

// PublishStatus emits a status event keyed by user_id. A failed publish
// is logged and the event is written to the status DLQ topic; it is not
// retried further and never reverses a commit (spec §4.6): a status
// update is a best-effort notification, not the system of record.
func (p *Publisher) PublishStatus(ctx context.Context, o *common.Order, at time.Time) {
	p.publishStatusWithReason(ctx, o, reasonFor(o), nil, at)
}

// PublishStatusFailed emits a FAILED status event with an error message,
// used by the dead-letter handler (spec §4.12).
func (p *Publisher) PublishStatusFailed(ctx context.Context, o *common.Order, errMsg string, at time.Time) {
	p.publishStatusWithReason(ctx, o, events.ReasonProcessingError, &errMsg, at)
}

func (p *Publisher) publishStatusWithReason(ctx context.Context, o *common.Order, reason events.StatusReason, errMsg *string, at time.Time) {
	evt := events.NewStatusEvent(o, reason, errMsg, at)
	data, err := events.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Int64("order_id", o.OrderID).Msg("egress: marshal status event failed")
		return
	}
	msg := kafka.Message{Key: []byte(o.UserID), Value: data}
	if err := p.status.WriteMessages(ctx, msg); err != nil {
		log.Error().Err(err).Int64("order_id", o.OrderID).Msg("egress: publish status event failed, routing to dlq")
		if dlqErr := p.statusDLQ.WriteMessages(ctx, msg); dlqErr != nil {
			log.Error().Err(dlqErr).Int64("order_id", o.OrderID).Msg("egress: status dlq publish also failed")
		}
	}
}

func reasonFor(o *common.Order) events.StatusReason {
	switch o.Status {
	case common.Cancelled:
		return events.ReasonCancelled
	case common.Rejected, common.Failed:
		return events.ReasonRejected
	default:
		return events.ReasonMatched
	}
}

// PublishTrades emits one trade-output event per trade, tagging taker
// and maker order ids (spec §4.4/§6).
func (p *Publisher) PublishTrades(ctx context.Context, trades []*common.Trade, takerOrderID int64) {
	for _, t := range trades {
		makerOrderID := t.BuyOrderID
		if t.BuyOrderID == takerOrderID {
			makerOrderID = t.SellOrderID
		}
		evt := events.NewTradeEvent(uuid.NewString(), t, takerOrderID, makerOrderID, t.CreatedAt)
		data, err := events.Marshal(evt)
		if err != nil {
			log.Error().Err(err).Int64("trade_id", t.TradeID).Msg("egress: marshal trade event failed")
			continue
		}
		// A failed trade publish is logged and the event is written to the
		// trade DLQ topic; nothing is reversed, since the trade is already
		// durable in the primary store at this point (spec §4.6).
		msg := kafka.Message{Key: []byte(t.Symbol), Value: data}
		if err := p.trade.WriteMessages(ctx, msg); err != nil {
			log.Error().Err(err).Int64("trade_id", t.TradeID).Msg("egress: publish trade event failed, routing to dlq")
			if dlqErr := p.tradeDLQ.WriteMessages(ctx, msg); dlqErr != nil {
				log.Error().Err(dlqErr).Int64("trade_id", t.TradeID).Msg("egress: trade dlq publish also failed")
			}
		}
	}
}
