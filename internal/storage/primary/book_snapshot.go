package primary

import (
	"context"
	"encoding/json"
	"fmt"

	"matchengine/internal/book"
)

// ListSymbols returns every symbol with at least one order on record,
// the set the recovery runner reconciles at boot (spec §4.10).
func (s *Store) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT symbol FROM orders`)
	if err != nil {
		return nil, fmt.Errorf("primary: list symbols: %w", err)
	}
	defer rows.Close()
	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("primary: scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// LoadOrderBookSnapshot loads and deserializes a symbol's book document.
// Levels keep the best-first order and FIFO queues they were stored in;
// nothing is re-sorted here. book.FromSnapshot rebuilds the ladders when
// a book is restored from it (spec §4.8).
func (s *Store) LoadOrderBookSnapshot(ctx context.Context, symbol string) (*book.Snapshot, error) {
	row, err := s.LoadBookSnapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}
	snap := book.Snapshot{Symbol: row.Symbol, Version: row.Version, UpdatedAt: row.UpdatedAt}
	if err := json.Unmarshal(row.Bids, &snap.Bids); err != nil {
		return nil, fmt.Errorf("primary: unmarshal bids: %w", err)
	}
	if err := json.Unmarshal(row.Asks, &snap.Asks); err != nil {
		return nil, fmt.Errorf("primary: unmarshal asks: %w", err)
	}
	return &snap, nil
}

// SaveOrderBookSnapshotVersioned writes snap as the current document for
// its symbol, failing with common.ErrVersionConflict if the row has moved
// past expectedVersion — the Matching Coordinator's atomic book-upsert
// step (spec §4.4: "upsert the book snapshot with an incremented
// version... on version conflict at book upsert, retry the entire
// process step").
func (s *Store) SaveOrderBookSnapshotVersioned(ctx context.Context, snap book.Snapshot, expectedVersion uint64) error {
	bids, err := json.Marshal(snap.Bids)
	if err != nil {
		return fmt.Errorf("primary: marshal bids: %w", err)
	}
	asks, err := json.Marshal(snap.Asks)
	if err != nil {
		return fmt.Errorf("primary: marshal asks: %w", err)
	}
	return s.SaveBookSnapshotVersioned(ctx, BookRow{
		Symbol: snap.Symbol, Bids: bids, Asks: asks, UpdatedAt: snap.UpdatedAt,
	}, expectedVersion)
}

// SaveOrderBookSnapshot writes snap as the current document for its
// symbol, overwriting whatever version was there (used by the recovery
// runner when the cache copy is determined to be newer: spec §4.10 step
// 3, "set its version equal to the current primary version, then
// perform the conditional update").
func (s *Store) SaveOrderBookSnapshot(ctx context.Context, snap book.Snapshot) error {
	existing, err := s.LoadBookSnapshot(ctx, snap.Symbol)
	expected := uint64(0)
	if err == nil {
		expected = existing.Version
	}
	bids, err := json.Marshal(snap.Bids)
	if err != nil {
		return fmt.Errorf("primary: marshal bids: %w", err)
	}
	asks, err := json.Marshal(snap.Asks)
	if err != nil {
		return fmt.Errorf("primary: marshal asks: %w", err)
	}
	return s.SaveBookSnapshotVersioned(ctx, BookRow{
		Symbol: snap.Symbol, Bids: bids, Asks: asks, UpdatedAt: snap.UpdatedAt,
	}, expected)
}
