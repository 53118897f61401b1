package cache

import (
	"context"
	"sync"
	"time"

	"matchengine/internal/book"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	initialDelay = 10 * time.Second
	tickPeriod   = 5 * time.Second
)

// SnapshotSource loads the primary store's current book document for a
// registered symbol (spec §4.9: the scheduler "pushes each registered
// symbol's primary-store snapshot into the cache"), implemented by
// primary.Store.LoadOrderBookSnapshot.
type SnapshotSource func(ctx context.Context, symbol string) (book.Snapshot, bool)

// Syncer periodically pushes every registered symbol's primary snapshot
// into the cache (spec §4.9), supervised by a tomb like the teacher's
// connection-handling goroutines.
type Syncer struct {
	cache  *Cache
	source SnapshotSource

	mu      sync.Mutex
	symbols map[string]struct{}
}

// NewSyncer builds a syncer with no symbols registered yet; symbols are
// added as they first match (spec §4.9: "registered on first match").
func NewSyncer(c *Cache, source SnapshotSource) *Syncer {
	return &Syncer{cache: c, source: source, symbols: make(map[string]struct{})}
}

// Register adds a symbol to the periodic sync set. Idempotent.
func (s *Syncer) Register(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols[symbol] = struct{}{}
}

func (s *Syncer) registered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}

// Run blocks, ticking every tickPeriod after an initialDelay, until the
// tomb starts dying.
func (s *Syncer) Run(t *tomb.Tomb) error {
	select {
	case <-time.After(initialDelay):
	case <-t.Dying():
		return nil
	}

	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			s.tick(t.Context(context.Background()))
		}
	}
}

func (s *Syncer) tick(ctx context.Context) {
	if err := s.cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("cache sync: probe failed, skipping tick")
		return
	}
	for _, symbol := range s.registered() {
		snap, ok := s.source(ctx, symbol)
		if !ok {
			continue
		}
		if err := s.cache.Write(ctx, snap); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("cache sync: write failed")
		}
	}
}
