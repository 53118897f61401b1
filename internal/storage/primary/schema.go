// Package primary persists orders, trades and order-book metadata to
// Postgres via pgx, the durable system of record behind the Redis cache
// (spec §4.8). Table layout is modeled on lightsgoout-go-quantcup's
// db.go (orders/deals tables, explicit enum side column), generalized
// from that project's int-cents price column to the NUMERIC columns
// spec §6 requires for arbitrary-precision money, and given an explicit
// version column for the optimistic-concurrency update spec §4.4 needs.
package primary

import "context"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS orders (
	order_id         bigint primary key,
	user_id          text not null,
	symbol           text not null,
	side             text not null,
	order_type       text not null,
	price            numeric(38,8),
	quantity         numeric(38,8) not null,
	filled_quantity  numeric(38,8) not null default 0,
	status           text not null,
	version          bigint not null default 0,
	created_at       timestamptz not null,
	updated_at       timestamptz not null
);

CREATE INDEX IF NOT EXISTS idx_orders_symbol_status ON orders (symbol, status);

CREATE TABLE IF NOT EXISTS trades (
	trade_id       bigint primary key,
	buy_order_id   bigint not null references orders(order_id),
	sell_order_id  bigint not null references orders(order_id),
	symbol         text not null,
	price          numeric(38,8) not null,
	quantity       numeric(38,8) not null,
	created_at     timestamptz not null
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades (symbol, created_at);

CREATE TABLE IF NOT EXISTS order_books (
	symbol      text primary key,
	bids        jsonb not null default '[]',
	asks        jsonb not null default '[]',
	version     bigint not null default 0,
	updated_at  timestamptz not null
);
`

// EnsureSchema creates the tables used by this package if they do not
// already exist. Intended for local/dev bootstrapping; production
// deployments are expected to run migrations out of band.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaDDL)
	return err
}
