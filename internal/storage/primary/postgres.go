package primary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchengine/internal/common"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is a pgx-backed implementation of the primary system of record.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool against dsn. Callers own its lifetime and should
// Close it on shutdown.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("primary: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("primary: ping: %w", err)
	}
	return pool, nil
}

// InsertOrder writes a brand-new order row at version 0.
func (s *Store) InsertOrder(ctx context.Context, o *common.Order) error {
	const q = `
		INSERT INTO orders (order_id, user_id, symbol, side, order_type, price, quantity,
			filled_quantity, status, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0,$10,$11)`
	var price *decimal.Decimal
	if o.Type == common.Limit {
		d := o.Price.Decimal()
		price = &d
	}
	_, err := s.pool.Exec(ctx, q,
		o.OrderID, o.UserID, o.Symbol, o.Side.String(), o.Type.String(), price,
		o.Quantity.Decimal(), o.FilledQuantity.Decimal(), o.Status.String(), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("primary: insert order: %w", err)
	}
	return nil
}

// UpdateOrderVersioned persists a mutated order only if its current row
// is still at expectedVersion, per spec §4.4's optimistic concurrency
// requirement. A zero affected row count means a concurrent writer won
// the race; callers should reload and retry.
func (s *Store) UpdateOrderVersioned(ctx context.Context, o *common.Order, expectedVersion int64) error {
	const q = `
		UPDATE orders SET filled_quantity=$1, status=$2, version=version+1, updated_at=$3
		WHERE order_id=$4 AND version=$5`
	tag, err := s.pool.Exec(ctx, q, o.FilledQuantity.Decimal(), o.Status.String(), o.UpdatedAt, o.OrderID, expectedVersion)
	if err != nil {
		return fmt.Errorf("primary: update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrVersionConflict
	}
	return nil
}

// GetOrder loads an order and its current version.
func (s *Store) GetOrder(ctx context.Context, orderID int64) (*common.Order, int64, error) {
	const q = `
		SELECT order_id, user_id, symbol, side, order_type, price, quantity, filled_quantity,
			status, version, created_at, updated_at
		FROM orders WHERE order_id=$1`
	row := s.pool.QueryRow(ctx, q, orderID)
	return scanOrder(row)
}

func scanOrder(row pgx.Row) (*common.Order, int64, error) {
	var (
		o          common.Order
		side, typ  string
		status     string
		price      *decimal.Decimal
		qty, fqty  decimal.Decimal
		version    int64
	)
	if err := row.Scan(&o.OrderID, &o.UserID, &o.Symbol, &side, &typ, &price, &qty, &fqty,
		&status, &version, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, common.ErrNotFound
		}
		return nil, 0, fmt.Errorf("primary: scan order: %w", err)
	}
	var err error
	if o.Side, err = parseSide(side); err != nil {
		return nil, 0, err
	}
	if o.Type, err = parseOrderType(typ); err != nil {
		return nil, 0, err
	}
	if o.Status, err = parseStatus(status); err != nil {
		return nil, 0, err
	}
	if price != nil {
		if o.Price, err = common.NewMoney(*price); err != nil {
			return nil, 0, err
		}
	}
	if o.Quantity, err = common.NewMoney(qty); err != nil {
		return nil, 0, err
	}
	if o.FilledQuantity, err = common.NewMoney(fqty); err != nil {
		return nil, 0, err
	}
	return &o, version, nil
}

// InsertTrades writes the trades produced by one matching pass alongside
// the taker's and every mutated maker's versioned update, in a single
// transaction so a crash mid-write never leaves trades without their
// corresponding order state.
func (s *Store) InsertTrades(ctx context.Context, trades []*common.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("primary: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
		INSERT INTO trades (trade_id, buy_order_id, sell_order_id, symbol, price, quantity, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	for _, t := range trades {
		if _, err := tx.Exec(ctx, q, t.TradeID, t.BuyOrderID, t.SellOrderID, t.Symbol,
			t.Price.Decimal(), t.Quantity.Decimal(), t.CreatedAt); err != nil {
			return fmt.Errorf("primary: insert trade %d: %w", t.TradeID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("primary: commit trades: %w", err)
	}
	return nil
}

// BookRow is the order_books table's single-row-per-symbol document
// (spec §4.8): serialized ladders plus version/updated_at.
type BookRow struct {
	Symbol    string
	Bids      []byte
	Asks      []byte
	Version   uint64
	UpdatedAt time.Time
}

// SaveBookSnapshotVersioned writes a symbol's book document, honoring
// the same conditional-version-update discipline as orders. A zero
// rows-affected result (including the first-ever write racing another
// writer) is surfaced as a conflict.
func (s *Store) SaveBookSnapshotVersioned(ctx context.Context, row BookRow, expectedVersion uint64) error {
	const q = `
		INSERT INTO order_books (symbol, bids, asks, version, updated_at)
		VALUES ($1,$2,$3,1,$4)
		ON CONFLICT (symbol) DO UPDATE
			SET bids=$2, asks=$3, version=order_books.version+1, updated_at=$4
			WHERE order_books.version=$5`
	tag, err := s.pool.Exec(ctx, q, row.Symbol, row.Bids, row.Asks, row.UpdatedAt, expectedVersion)
	if err != nil {
		return fmt.Errorf("primary: save book snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrVersionConflict
	}
	return nil
}

// LoadBookSnapshot reads a symbol's book document, if any.
func (s *Store) LoadBookSnapshot(ctx context.Context, symbol string) (*BookRow, error) {
	const q = `SELECT symbol, bids, asks, version, updated_at FROM order_books WHERE symbol=$1`
	row := s.pool.QueryRow(ctx, q, symbol)
	var r BookRow
	if err := row.Scan(&r.Symbol, &r.Bids, &r.Asks, &r.Version, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("primary: load book snapshot: %w", err)
	}
	return &r, nil
}

func parseSide(s string) (common.Side, error) {
	switch s {
	case "BUY":
		return common.Buy, nil
	case "SELL":
		return common.Sell, nil
	default:
		return 0, fmt.Errorf("primary: unknown side %q", s)
	}
}

func parseOrderType(s string) (common.OrderType, error) {
	switch s {
	case "LIMIT":
		return common.Limit, nil
	case "MARKET":
		return common.Market, nil
	default:
		return 0, fmt.Errorf("primary: unknown order type %q", s)
	}
}

func parseStatus(s string) (common.Status, error) {
	switch s {
	case "PENDING":
		return common.Pending, nil
	case "OPEN":
		return common.Open, nil
	case "PARTIALLY_FILLED":
		return common.PartiallyFilled, nil
	case "FILLED":
		return common.Filled, nil
	case "CANCELLED":
		return common.Cancelled, nil
	case "REJECTED":
		return common.Rejected, nil
	case "FAILED":
		return common.Failed, nil
	default:
		return 0, fmt.Errorf("primary: unknown status %q", s)
	}
}
