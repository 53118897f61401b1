// Package recovery runs once at boot, before ingress is enabled,
// reconciling each symbol's primary and cache copies by version and
// updated_at (spec §4.10).
package recovery

import (
	"context"

	"matchengine/internal/book"

	"github.com/rs/zerolog/log"
)

// PrimaryStore is the slice of primary.Store recovery needs.
type PrimaryStore interface {
	ListSymbols(ctx context.Context) ([]string, error)
	LoadOrderBookSnapshot(ctx context.Context, symbol string) (*book.Snapshot, error)
	SaveOrderBookSnapshot(ctx context.Context, snap book.Snapshot) error
}

// Cache is the slice of cache.Cache recovery needs.
type Cache interface {
	Ping(ctx context.Context) error
	Read(ctx context.Context, symbol string) (*book.Snapshot, error)
	Write(ctx context.Context, snap book.Snapshot) error
}

// Registrar registers a symbol for periodic cache sync once recovered.
type Registrar interface {
	Register(symbol string)
}

// Seeder seeds a coordinator's in-memory book for a symbol from a
// recovered snapshot.
type Seeder interface {
	Restore(symbol string, snap book.Snapshot)
}

// Runner performs the boot-time reconciliation pass.
type Runner struct {
	primary   PrimaryStore
	cache     Cache
	registrar Registrar
	seeder    Seeder
}

// New builds a Runner.
func New(primary PrimaryStore, cache Cache, registrar Registrar, seeder Seeder) *Runner {
	return &Runner{primary: primary, cache: cache, registrar: registrar, seeder: seeder}
}

// Run reconciles every symbol present in the primary store.
func (r *Runner) Run(ctx context.Context) error {
	symbols, err := r.primary.ListSymbols(ctx)
	if err != nil {
		return err
	}

	cacheUp := r.cache.Ping(ctx) == nil
	if !cacheUp {
		log.Warn().Msg("recovery: cache unreachable, falling back to primary for all symbols")
	}

	for _, symbol := range symbols {
		if err := r.reconcile(ctx, symbol, cacheUp); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("recovery: reconcile failed")
			continue
		}
		r.registrar.Register(symbol)
	}
	return nil
}

func (r *Runner) reconcile(ctx context.Context, symbol string, cacheUp bool) error {
	primarySnap, primaryErr := r.primary.LoadOrderBookSnapshot(ctx, symbol)

	if !cacheUp {
		return r.useSnapshot(symbol, primarySnap, primaryErr)
	}

	cacheSnap, cacheErr := r.cache.Read(ctx, symbol)

	switch {
	case primaryErr != nil && cacheErr != nil:
		return nil
	case primaryErr != nil:
		r.seeder.Restore(symbol, *cacheSnap)
		return nil
	case cacheErr != nil:
		r.seeder.Restore(symbol, *primarySnap)
		return r.cache.Write(ctx, *primarySnap)
	}

	if newer(*primarySnap, *cacheSnap) {
		r.seeder.Restore(symbol, *primarySnap)
		return r.cache.Write(ctx, *primarySnap)
	}
	r.seeder.Restore(symbol, *cacheSnap)
	return r.primary.SaveOrderBookSnapshot(ctx, *cacheSnap)
}

func (r *Runner) useSnapshot(symbol string, snap *book.Snapshot, err error) error {
	if err != nil {
		return nil
	}
	r.seeder.Restore(symbol, *snap)
	return nil
}

// newer reports whether a is the more recent of the two snapshots, by
// version first and then by updated_at (spec §4.10).
func newer(a, b book.Snapshot) bool {
	if a.Version != b.Version {
		return a.Version > b.Version
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}
