// Package cache mirrors a symbol's order book into Redis under the key
// layout of spec §6, so reads that do not need strict consistency (depth
// queries, status lookups) can avoid the primary store. Uses a single
// long-lived *redis.Client and go-redis's pipelining API for the atomic
// batch write spec §4.9 requires.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"matchengine/internal/book"
	"matchengine/internal/common"

	"github.com/redis/go-redis/v9"
)

// Cache is a Redis-backed mirror of order book ladders.
type Cache struct {
	rdb *redis.Client
}

// New wraps an existing Redis client.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Ping probes cache availability; callers skip a sync tick or fall back
// to primary on error (spec §4.9, §4.10).
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func pricesKey(symbol string, side common.Side) string {
	return fmt.Sprintf("orderbook:%s:%s:prices", symbol, sideTag(side))
}

func priceListKey(symbol string, side common.Side, price common.Money) string {
	return fmt.Sprintf("orderbook:%s:%s:price:%s", symbol, sideTag(side), price.String())
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

func metadataKey(symbol string) string {
	return fmt.Sprintf("orderbook:%s:metadata", symbol)
}

func sideTag(side common.Side) string {
	if side == common.Buy {
		return "bids"
	}
	return "asks"
}

// score applies the bids-descending/asks-ascending sort convention
// (spec §4.9: "−price for bids so the natural range yields descending").
func score(side common.Side, price common.Money) float64 {
	f, _ := price.Decimal().Float64()
	if side == common.Buy {
		return -f
	}
	return f
}

// Write replaces a symbol's cached ladders atomically: delete the old
// price sets and metadata, then re-insert (clearing the order-id list of
// each price being written before refilling it), all inside one pipelined
// transaction so readers never observe a half-written symbol (spec
// §4.9's "partial visibility must not occur").
func (c *Cache) Write(ctx context.Context, snap book.Snapshot) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, side := range []common.Side{common.Buy, common.Sell} {
			pipe.Del(ctx, pricesKey(snap.Symbol, side))
		}
		pipe.Del(ctx, metadataKey(snap.Symbol))

		writeLadder := func(side common.Side, levels []*book.PriceLevel) error {
			for _, level := range levels {
				pipe.ZAdd(ctx, pricesKey(snap.Symbol, side), redis.Z{
					Score: score(side, level.Price), Member: level.Price.String(),
				})
				listKey := priceListKey(snap.Symbol, side, level.Price)
				pipe.Del(ctx, listKey)
				ids := make([]any, len(level.Orders))
				for i, o := range level.Orders {
					ids[i] = o.OrderID
					fields, err := orderFields(o)
					if err != nil {
						return err
					}
					pipe.HSet(ctx, orderKey(o.OrderID), fields)
				}
				if len(ids) > 0 {
					pipe.RPush(ctx, listKey, ids...)
				}
			}
			return nil
		}
		if err := writeLadder(common.Buy, snap.Bids); err != nil {
			return err
		}
		if err := writeLadder(common.Sell, snap.Asks); err != nil {
			return err
		}

		pipe.HSet(ctx, metadataKey(snap.Symbol), map[string]any{
			"version":    snap.Version,
			"updated_at": snap.UpdatedAt.Format(time.RFC3339Nano),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: write snapshot: %w", err)
	}
	return nil
}

func orderFields(o *common.Order) (map[string]any, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("cache: marshal order %d: %w", o.OrderID, err)
	}
	return map[string]any{"json": string(data)}, nil
}

// Read reconstructs a symbol's snapshot from the cache, restoring ladder
// order from the sorted-set/list layout.
func (c *Cache) Read(ctx context.Context, symbol string) (*book.Snapshot, error) {
	meta, err := c.rdb.HGetAll(ctx, metadataKey(symbol)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: read metadata: %w", err)
	}
	if len(meta) == 0 {
		return nil, common.ErrNotFound
	}
	version, err := strconv.ParseUint(meta["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cache: parse version: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, meta["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("cache: parse updated_at: %w", err)
	}

	bids, err := c.readLadder(ctx, symbol, common.Buy)
	if err != nil {
		return nil, err
	}
	asks, err := c.readLadder(ctx, symbol, common.Sell)
	if err != nil {
		return nil, err
	}
	return &book.Snapshot{Symbol: symbol, Bids: bids, Asks: asks, Version: version, UpdatedAt: updatedAt}, nil
}

func (c *Cache) readLadder(ctx context.Context, symbol string, side common.Side) ([]*book.PriceLevel, error) {
	withScores, err := c.rdb.ZRangeWithScores(ctx, pricesKey(symbol, side), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: read price set: %w", err)
	}
	levels := make([]*book.PriceLevel, 0, len(withScores))
	for _, z := range withScores {
		priceStr := z.Member.(string)
		price, err := common.ParseMoney(priceStr)
		if err != nil {
			return nil, fmt.Errorf("cache: parse price %q: %w", priceStr, err)
		}
		ids, err := c.rdb.LRange(ctx, priceListKey(symbol, side, price), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("cache: read order id list: %w", err)
		}
		level := &book.PriceLevel{Price: price}
		for _, idStr := range ids {
			orderID, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cache: parse order id %q: %w", idStr, err)
			}
			o, err := c.readOrder(ctx, orderID)
			if err != nil {
				return nil, err
			}
			level.Append(o)
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func (c *Cache) readOrder(ctx context.Context, orderID int64) (*common.Order, error) {
	data, err := c.rdb.HGet(ctx, orderKey(orderID), "json").Result()
	if err != nil {
		return nil, fmt.Errorf("cache: read order %d: %w", orderID, err)
	}
	var o common.Order
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return nil, fmt.Errorf("cache: unmarshal order %d: %w", orderID, err)
	}
	return &o, nil
}
