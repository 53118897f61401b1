// Package deadletter drains the order-input and trade-output dead
// letter topics. Generalizes the teacher's Server.ReportError (synchronous
// TCP error push) into a FAILED-state transition plus status-event
// publish for order-input-dlq; trade-output-dlq is drained without
// action since a trade is already durable by the time it would reach a
// DLQ (spec §4.12).
package deadletter

import (
	"context"
	"time"

	"matchengine/internal/common"
	"matchengine/internal/events"

	"github.com/rs/zerolog/log"
	kafka "github.com/segmentio/kafka-go"
	tomb "gopkg.in/tomb.v2"
)

// PrimaryStore is the slice of primary.Store the dead letter handler
// needs: look up the target order and persist its FAILED transition.
type PrimaryStore interface {
	GetOrder(ctx context.Context, orderID int64) (*common.Order, int64, error)
	UpdateOrderVersioned(ctx context.Context, o *common.Order, expectedVersion int64) error
}

// StatusPublisher is the slice of egress.Publisher the handler needs.
type StatusPublisher interface {
	PublishStatusFailed(ctx context.Context, o *common.Order, errMsg string, at time.Time)
}

// Config names the two DLQ topics.
type Config struct {
	Brokers        []string
	OrderInputDLQ  string
	TradeOutputDLQ string
	GroupID        string
}

// Handler consumes both dead letter topics.
type Handler struct {
	orderReader *kafka.Reader
	tradeReader *kafka.Reader
	store       PrimaryStore
	publisher   StatusPublisher
}

// New builds a Handler with readers for both DLQ topics, same consumer
// shape as the Ingress Dispatcher's reader (spec §6).
func New(cfg Config, store PrimaryStore, publisher StatusPublisher) *Handler {
	mk := func(topic string) *kafka.Reader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          topic,
			GroupID:        cfg.GroupID,
			StartOffset:    kafka.FirstOffset,
			CommitInterval: 0,
			MaxWait:        500 * time.Millisecond,
		})
	}
	return &Handler{
		orderReader: mk(cfg.OrderInputDLQ),
		tradeReader: mk(cfg.TradeOutputDLQ),
		store:       store,
		publisher:   publisher,
	}
}

// Close releases both readers.
func (h *Handler) Close() error {
	err1 := h.orderReader.Close()
	err2 := h.tradeReader.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Run drains both DLQ topics concurrently until the tomb starts dying.
func (h *Handler) Run(t *tomb.Tomb) error {
	t.Go(func() error { return h.drainOrderInputDLQ(t) })
	t.Go(func() error { return h.drainTradeOutputDLQ(t) })
	<-t.Dying()
	return nil
}

func (h *Handler) drainOrderInputDLQ(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		default:
		}
		ctx := t.Context(context.Background())
		msg, err := h.orderReader.FetchMessage(ctx)
		if err != nil {
			log.Error().Err(err).Msg("deadletter: fetch order-input-dlq failed")
			continue
		}
		h.handleFailedOrder(ctx, msg)
		// DLQ records must not re-loop: always acknowledge (spec §4.12).
		if err := h.orderReader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Msg("deadletter: commit order-input-dlq failed")
		}
	}
}

func (h *Handler) handleFailedOrder(ctx context.Context, msg kafka.Message) {
	evt, err := events.UnmarshalNewOrder(msg.Value)
	if err != nil {
		log.Error().Err(err).Msg("deadletter: unmarshal order-input-dlq record failed")
		return
	}
	o, version, err := h.store.GetOrder(ctx, evt.OrderID)
	if err != nil {
		log.Error().Err(err).Int64("order_id", evt.OrderID).Msg("deadletter: load target order failed")
		return
	}
	if o.Status != common.Pending {
		return
	}
	o.Status = common.Failed
	o.UpdatedAt = time.Now()
	if err := h.store.UpdateOrderVersioned(ctx, o, version); err != nil {
		log.Error().Err(err).Int64("order_id", o.OrderID).Msg("deadletter: persist FAILED transition failed")
		return
	}
	h.publisher.PublishStatusFailed(ctx, o, "processing failed permanently, routed to dead letter queue", o.UpdatedAt)
}

// drainTradeOutputDLQ drains without action: a trade reaching this topic
// was already durable at publish time (spec §4.12).
func (h *Handler) drainTradeOutputDLQ(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		default:
		}
		ctx := t.Context(context.Background())
		msg, err := h.tradeReader.FetchMessage(ctx)
		if err != nil {
			log.Error().Err(err).Msg("deadletter: fetch trade-output-dlq failed")
			continue
		}
		if err := h.tradeReader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Msg("deadletter: commit trade-output-dlq failed")
		}
	}
}
