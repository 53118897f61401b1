// Package ingress consumes the order-input topic and drives orders into
// the Matching Coordinator. Generalizes the teacher's
// internal/net/server.go session-handling split — a worker pool
// (handleConnection) feeding tasks to a single session handler loop —
// from TCP connection tasks to Kafka record tasks: here a single
// kafka.Reader fetches records and hands them to a utils.WorkerPool whose
// workers each run the full idempotency-check/dispatch/retry/commit
// sequence per spec §4.5.
package ingress

import (
	"context"
	"errors"
	"time"

	"matchengine/internal/common"
	"matchengine/internal/events"
	"matchengine/internal/idempotency"
	"matchengine/internal/utils"

	"github.com/rs/zerolog/log"
	kafka "github.com/segmentio/kafka-go"
	tomb "gopkg.in/tomb.v2"
)

// Coordinator is the slice of coordinator.Coordinator ingress needs.
type Coordinator interface {
	SubmitOrder(ctx context.Context, o *common.Order) error
}

// PrimaryStore is the slice of primary.Store ingress needs to resolve the
// Order a record refers to before dispatching it (spec §4.5 step 2).
type PrimaryStore interface {
	GetOrder(ctx context.Context, orderID int64) (*common.Order, int64, error)
}

// Config names the consumer configuration of spec §6.
type Config struct {
	Brokers     []string
	Topic       string
	DLQTopic    string
	GroupID     string
	Concurrency int
}

var retryBackoff = utils.Backoff{Base: 100 * time.Millisecond, Max: 400 * time.Millisecond}

const maxRetries = 3

// Dispatcher reads order-input records and applies them to the
// coordinator, retrying transient failures and routing exhausted
// records to the DLQ.
type Dispatcher struct {
	cfg         Config
	reader      *kafka.Reader
	dlqWriter   *kafka.Writer
	coordinator Coordinator
	primary     PrimaryStore
	idem        *idempotency.Store
	pool        utils.WorkerPool
}

// New builds a Dispatcher. The consumer configuration matches spec §6:
// auto-offset-reset=earliest, manual commit, fetch-min=1KB,
// max-poll-records=100 (MaxBytes bound here), session-timeout=30s,
// heartbeat=10s (via CommitInterval/HeartbeatInterval).
func New(cfg Config, coord Coordinator, primary PrimaryStore, idem *idempotency.Store) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		MinBytes:          1024,
		MaxBytes:          10 * 1024 * 1024,
		StartOffset:       kafka.FirstOffset,
		CommitInterval:    0, // manual commit (spec §6: auto-commit disabled)
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		MaxWait:           500 * time.Millisecond,
	})
	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}
	return &Dispatcher{
		cfg:         cfg,
		reader:      reader,
		dlqWriter:   dlqWriter,
		coordinator: coord,
		primary:     primary,
		idem:        idem,
		pool:        utils.NewWorkerPool(cfg.Concurrency),
	}
}

// Close releases the reader and DLQ writer.
func (d *Dispatcher) Close() error {
	err1 := d.reader.Close()
	err2 := d.dlqWriter.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Run fetches records and fans them out to the worker pool, blocking
// until the tomb starts dying. Fetch (not Read) is used so the offset is
// committed only after a record's effects are durable.
func (d *Dispatcher) Run(t *tomb.Tomb) error {
	t.Go(func() error {
		d.pool.Setup(t, d.handleTask)
		return nil
	})

	for {
		if t.Err() != tomb.ErrStillAlive && t.Err() != nil {
			return nil
		}
		select {
		case <-t.Dying():
			return nil
		default:
		}
		msg, err := d.reader.FetchMessage(t.Context(context.Background()))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Err(err).Msg("ingress: fetch failed")
			continue
		}
		d.pool.AddTask(msg)
	}
}

func (d *Dispatcher) handleTask(t *tomb.Tomb, task any) error {
	msg, ok := task.(kafka.Message)
	if !ok {
		return errors.New("ingress: unexpected task type")
	}
	ctx := t.Context(context.Background())
	if err := d.processWithRetry(ctx, msg); err != nil {
		log.Error().Err(err).Msg("ingress: record exhausted retries, routing to dlq")
		if dlqErr := d.routeToDLQ(ctx, msg, err); dlqErr != nil {
			log.Error().Err(dlqErr).Msg("ingress: dlq publish failed")
		}
	}
	if err := d.reader.CommitMessages(ctx, msg); err != nil {
		log.Error().Err(err).Msg("ingress: commit failed")
	}
	return nil
}

func (d *Dispatcher) processWithRetry(ctx context.Context, msg kafka.Message) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = d.process(ctx, msg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrTransientPersistence) && !errors.Is(err, common.ErrUpstreamUnavailable) {
			return err
		}
		time.Sleep(retryBackoff.Delay(attempt))
	}
	return err
}

// process implements spec §4.5's per-record steps: idempotency check,
// resolve the Order from the primary store (acknowledging a no-op if it
// is absent or already left PENDING — the safety net spec §4.7 relies on
// for a rare idempotency-key expiry), then dispatch.
func (d *Dispatcher) process(ctx context.Context, msg kafka.Message) error {
	evt, err := events.UnmarshalNewOrder(msg.Value)
	if err != nil {
		return err
	}

	processed, err := d.idem.IsProcessed(ctx, evt.MessageID)
	if err != nil {
		return common.ErrUpstreamUnavailable
	}
	if processed {
		log.Info().Str("message_id", evt.MessageID).Msg("ingress: duplicate message, skipping")
		return nil
	}

	o, _, err := d.primary.GetOrder(ctx, evt.OrderID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Warn().Int64("order_id", evt.OrderID).Msg("ingress: order not found, acknowledging")
			return nil
		}
		return common.ErrUpstreamUnavailable
	}
	if o.Status != common.Pending {
		log.Info().Int64("order_id", evt.OrderID).Str("status", o.Status.String()).
			Msg("ingress: order already processed on a prior delivery, acknowledging")
		return nil
	}

	if err := d.coordinator.SubmitOrder(ctx, o); err != nil {
		return err
	}

	if err := d.idem.MarkProcessed(ctx, evt.MessageID); err != nil {
		// The order's effects are already durable; a missed processed-mark
		// only risks a harmless re-submit that the target order's non-PENDING
		// state will short-circuit (spec §4.7).
		log.Warn().Err(err).Str("message_id", evt.MessageID).Msg("ingress: mark processed failed")
	}
	return nil
}

func (d *Dispatcher) routeToDLQ(ctx context.Context, msg kafka.Message, cause error) error {
	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = append(headers, kafka.Header{Key: "x-failure-reason", Value: []byte(cause.Error())})
	return d.dlqWriter.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers})
}
