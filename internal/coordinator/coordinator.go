package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"matchengine/internal/book"
	"matchengine/internal/common"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// Coordinator fans out requests to one symbolWorker per symbol, creating
// workers lazily on first use and supervising all of them under a single
// tomb so a fatal error in one symbol can be distinguished from a
// deliberate shutdown (spec §5: "two symbols may match in parallel").
type Coordinator struct {
	primary PersistenceStore
	sink    EventSink
	cache   CacheRegistrar
	clock   func() time.Time

	t *tomb.Tomb

	mu      sync.Mutex
	workers map[string]*symbolWorker
}

// New builds a Coordinator. clock defaults to time.Now when nil.
func New(t *tomb.Tomb, p PersistenceStore, sink EventSink, cache CacheRegistrar, clock func() time.Time) *Coordinator {
	if clock == nil {
		clock = time.Now
	}
	return &Coordinator{
		primary: p,
		sink:    sink,
		cache:   cache,
		clock:   clock,
		t:       t,
		workers: make(map[string]*symbolWorker),
	}
}

func (c *Coordinator) workerFor(symbol string) *symbolWorker {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workers[symbol]
	if ok {
		return w
	}
	w = newSymbolWorker(symbol, c.primary, c.sink, c.cache, c.clock)
	c.workers[symbol] = w
	c.t.Go(func() error {
		return w.run(c.t)
	})
	log.Info().Str("symbol", symbol).Msg("coordinator: started symbol worker")
	return w
}

// SubmitOrder enters an order into its symbol's writer region and blocks
// until that matching pass (including persistence) has completed or the
// context is cancelled.
func (c *Coordinator) SubmitOrder(ctx context.Context, o *common.Order) error {
	w := c.workerFor(o.Symbol)
	done := make(chan error, 1)
	select {
	case w.requests <- request{order: o, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.t.Dying():
		return fmt.Errorf("coordinator: shutting down")
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelOrder requests cancellation of an order resting in symbol's book,
// failing with common.ErrNotFound if it is not currently resting. An order
// that already reached a terminal status (filled, cancelled, rejected) no
// longer rests, so cancelling it also fails with common.ErrNotFound.
func (c *Coordinator) CancelOrder(ctx context.Context, symbol string, orderID int64, userID string) error {
	w := c.workerFor(symbol)
	done := make(chan error, 1)
	select {
	case w.requests <- request{cancel: &cancelRequest{orderID: orderID, userID: userID}, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.t.Dying():
		return fmt.Errorf("coordinator: shutting down")
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the live in-memory book for symbol for read-only use.
// The cache syncer does not use it; it pushes the primary store's copy.
// The second return is false if no worker for that symbol has been
// created yet.
func (c *Coordinator) Snapshot(symbol string) (book.Snapshot, bool) {
	c.mu.Lock()
	w, ok := c.workers[symbol]
	c.mu.Unlock()
	if !ok {
		return book.Snapshot{}, false
	}
	return w.book.ToSnapshot(), true
}

// Book returns the live OrderBook for symbol for read-only use (e.g. by
// the depth aggregator), or nil if no worker exists yet.
func (c *Coordinator) Book(symbol string) *book.OrderBook {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workers[symbol]
	if !ok {
		return nil
	}
	return w.book
}

// Restore seeds a symbol's worker with a recovered snapshot before
// ingress is enabled (spec §4.10).
func (c *Coordinator) Restore(symbol string, snap book.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workers[symbol]
	if !ok {
		w = newSymbolWorker(symbol, c.primary, c.sink, c.cache, c.clock)
		c.workers[symbol] = w
		c.t.Go(func() error {
			return w.run(c.t)
		})
	}
	w.book = book.FromSnapshot(snap)
}
