// Package coordinator owns the per-symbol writer region spec §5
// requires: one goroutine per symbol, serially applying matching
// requests delivered over a channel, persisting results with bounded
// optimistic-concurrency retry, and publishing events best-effort after
// the writer region closes. Modeled on the teacher's
// internal/net/server.go goroutine-per-connection-plus-channel pattern,
// generalized from one channel per TCP client to one channel per
// symbol, and supervised the same way with gopkg.in/tomb.v2.
package coordinator

import (
	"context"
	"time"

	"matchengine/internal/book"
	"matchengine/internal/common"
	"matchengine/internal/matching"
	"matchengine/internal/utils"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// MaxPersistRetries bounds the optimistic-concurrency retry loop of
// spec §4.4.
const MaxPersistRetries = 3

var persistBackoff = utils.Backoff{Base: 10 * time.Millisecond, Max: 200 * time.Millisecond}

// PersistenceStore is the slice of *primary.Store the coordinator needs,
// kept as an interface (mirroring the teacher's net.Engine interface in
// internal/net/server.go) so symbol workers can be tested against an
// in-memory fake instead of a live Postgres instance.
type PersistenceStore interface {
	InsertOrder(ctx context.Context, o *common.Order) error
	UpdateOrderVersioned(ctx context.Context, o *common.Order, expectedVersion int64) error
	GetOrder(ctx context.Context, orderID int64) (*common.Order, int64, error)
	InsertTrades(ctx context.Context, trades []*common.Trade) error
	LoadOrderBookSnapshot(ctx context.Context, symbol string) (*book.Snapshot, error)
	SaveOrderBookSnapshotVersioned(ctx context.Context, snap book.Snapshot, expectedVersion uint64) error
}

// EventSink receives the taker's status update, every mutated maker's
// status update, and any produced trades after a symbol's writer region
// has released — spec §5's "persistence and publish happen after
// matching logic completes".
type EventSink interface {
	PublishStatus(ctx context.Context, o *common.Order, at time.Time)
	PublishTrades(ctx context.Context, trades []*common.Trade, takerID int64)
}

// CacheRegistrar registers a symbol for periodic cache sync on first
// match (spec §4.9). The snapshot each sync tick pushes comes from the
// primary store, not from this interface.
type CacheRegistrar interface {
	Register(symbol string)
}

// request is one unit of matching work submitted to a symbol's worker.
type request struct {
	order  *common.Order
	cancel *cancelRequest
	done   chan error
}

type cancelRequest struct {
	orderID int64
	userID  string
}

// symbolWorker owns exactly one OrderBook and processes requests off its
// channel strictly serially, satisfying spec §5's single-writer-per-symbol
// invariant.
type symbolWorker struct {
	symbol  string
	book    *book.OrderBook
	primary PersistenceStore
	sink    EventSink
	cache   CacheRegistrar
	clock   func() time.Time

	requests chan request
}

func newSymbolWorker(symbol string, p PersistenceStore, sink EventSink, cache CacheRegistrar, clock func() time.Time) *symbolWorker {
	return &symbolWorker{
		symbol:   symbol,
		book:     book.New(symbol),
		primary:  p,
		sink:     sink,
		cache:    cache,
		clock:    clock,
		requests: make(chan request, 256),
	}
}

// run drains requests until the tomb starts dying.
func (w *symbolWorker) run(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case req := <-w.requests:
			req.done <- w.handle(t.Context(context.Background()), req)
		}
	}
}

func (w *symbolWorker) handle(ctx context.Context, req request) error {
	if req.cancel != nil {
		return w.handleCancel(ctx, req.cancel)
	}
	return w.handleOrder(ctx, req.order)
}

func (w *symbolWorker) handleOrder(ctx context.Context, o *common.Order) error {
	if err := o.Validate(); err != nil {
		o.Status = common.Rejected
		w.sink.PublishStatus(ctx, o, w.clock())
		return nil
	}

	strategy, err := matching.For(o.Type)
	if err != nil {
		o.Status = common.Rejected
		w.sink.PublishStatus(ctx, o, w.clock())
		return nil
	}

	result, err := w.matchAndPersistWithRetry(ctx, o, strategy)
	if err != nil {
		return err
	}
	w.cache.Register(w.symbol)

	w.sink.PublishStatus(ctx, result.Taker, w.clock())
	for _, m := range result.MutatedMakers {
		w.sink.PublishStatus(ctx, m, w.clock())
	}
	if len(result.Trades) > 0 {
		w.sink.PublishTrades(ctx, result.Trades, result.Taker.OrderID)
	}
	return nil
}

// matchAndPersistWithRetry runs the strategy and its atomic persist step
// (order updates, trade inserts, book snapshot upsert), retrying the
// entire step — re-reading the book, re-matching against it, and
// re-persisting — up to MaxPersistRetries times when the book upsert
// hits a version conflict (spec §4.4). taker is reset to its
// pre-match state before each retry since strategy.Match mutates it
// in place.
func (w *symbolWorker) matchAndPersistWithRetry(ctx context.Context, taker *common.Order, strategy matching.Strategy) (matching.MatchResult, error) {
	pristine := *taker
	for attempt := 0; attempt <= MaxPersistRetries; attempt++ {
		expectedVersion := w.book.Version
		result, err := strategy.Match(taker, w.book, w.clock)
		if err != nil {
			return matching.MatchResult{}, err
		}
		w.book.Version++
		w.book.UpdatedAt = w.clock()

		err = w.persist(ctx, result, w.book.ToSnapshot(), expectedVersion)
		if err == nil {
			return result, nil
		}
		if err != common.ErrVersionConflict {
			return matching.MatchResult{}, err
		}
		log.Warn().Str("symbol", w.symbol).Int("attempt", attempt).
			Msg("book version conflict persisting match, retrying entire process step")

		if reloadErr := w.reloadBookFromPrimary(ctx); reloadErr != nil {
			return matching.MatchResult{}, reloadErr
		}
		*taker = pristine
		time.Sleep(persistBackoff.Delay(attempt))
	}
	return matching.MatchResult{}, common.ErrPersistenceConflict
}

// reloadBookFromPrimary rebuilds the in-memory book from the primary
// store's current document, used when a book-upsert version conflict
// means another writer moved the row since this worker last read it.
func (w *symbolWorker) reloadBookFromPrimary(ctx context.Context) error {
	snap, err := w.primary.LoadOrderBookSnapshot(ctx, w.symbol)
	if err != nil {
		if err == common.ErrNotFound {
			w.book = book.New(w.symbol)
			return nil
		}
		return err
	}
	w.book = book.FromSnapshot(*snap)
	return nil
}

func (w *symbolWorker) handleCancel(ctx context.Context, c *cancelRequest) error {
	side := common.Buy
	var o *common.Order
	if o = w.book.RemoveByID(side, c.orderID); o == nil {
		o = w.book.RemoveByID(common.Sell, c.orderID)
	}
	if o == nil {
		return common.ErrNotFound
	}
	if o.UserID != c.userID {
		// Put it back; this cancel request does not own the order.
		w.book.Rest(o)
		return common.ErrValidation
	}
	if o.Status.IsTerminal() {
		return common.ErrAlreadyTerminal
	}
	o.Status = common.Cancelled
	o.UpdatedAt = w.clock()
	w.book.Version++
	w.book.UpdatedAt = o.UpdatedAt

	if err := w.persistOrderWithRetry(ctx, o); err != nil {
		return err
	}
	w.sink.PublishStatus(ctx, o, w.clock())
	return nil
}

// persist writes the taker, every mutated maker, the trades produced by
// one matching pass, and the resulting book snapshot, retrying each
// order's versioned update up to MaxPersistRetries times on a conflict
// (spec §4.4). A book-snapshot conflict is returned to the caller as
// common.ErrVersionConflict so the whole process step can be retried.
func (w *symbolWorker) persist(ctx context.Context, result matching.MatchResult, snap book.Snapshot, expectedBookVersion uint64) error {
	if err := w.persistTakerInsertOrUpdate(ctx, result.Taker); err != nil {
		return err
	}
	for _, m := range result.MutatedMakers {
		if err := w.persistOrderWithRetry(ctx, m); err != nil {
			return err
		}
	}
	if err := w.primary.InsertTrades(ctx, result.Trades); err != nil {
		return err
	}
	return w.primary.SaveOrderBookSnapshotVersioned(ctx, snap, expectedBookVersion)
}

// persistTakerInsertOrUpdate inserts a brand-new taker at version 0; an
// already-known taker (e.g. a previously PENDING order being retried)
// goes through the versioned update path instead.
func (w *symbolWorker) persistTakerInsertOrUpdate(ctx context.Context, taker *common.Order) error {
	_, version, err := w.primary.GetOrder(ctx, taker.OrderID)
	if err != nil {
		if err == common.ErrNotFound {
			return w.primary.InsertOrder(ctx, taker)
		}
		return err
	}
	return w.persistOrderWithRetryFrom(ctx, taker, version)
}

func (w *symbolWorker) persistOrderWithRetry(ctx context.Context, o *common.Order) error {
	_, version, err := w.primary.GetOrder(ctx, o.OrderID)
	if err != nil {
		return err
	}
	return w.persistOrderWithRetryFrom(ctx, o, version)
}

func (w *symbolWorker) persistOrderWithRetryFrom(ctx context.Context, o *common.Order, version int64) error {
	var err error
	for attempt := 0; attempt <= MaxPersistRetries; attempt++ {
		err = w.primary.UpdateOrderVersioned(ctx, o, version)
		if err == nil {
			return nil
		}
		if err != common.ErrVersionConflict {
			return err
		}
		_, v, reloadErr := w.primary.GetOrder(ctx, o.OrderID)
		if reloadErr != nil {
			return reloadErr
		}
		version = v
		log.Warn().Str("symbol", w.symbol).Int64("order_id", o.OrderID).Int("attempt", attempt).
			Msg("version conflict persisting order, retrying")
		time.Sleep(persistBackoff.Delay(attempt))
	}
	return err
}
