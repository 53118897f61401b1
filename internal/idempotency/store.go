// Package idempotency guards against duplicate order-input processing
// using the two Redis key families of spec §6: a "sent" mark written by
// producers and a "processed" mark written once ingress has committed an
// order's effects, both with a 24h TTL. Uses one shared redis.Client for
// the life of the process and go-redis's SetNX return value for the
// atomic check-and-set of "sent" marks.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttl = 24 * time.Hour

// Store deduplicates message ids against Redis.
type Store struct {
	rdb *redis.Client
}

// New wraps an existing Redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func sentKey(messageID string) string { return fmt.Sprintf("idempotency:sent:%s", messageID) }
func processedKey(messageID string) string {
	return fmt.Sprintf("idempotency:processed:%s", messageID)
}

// MarkSent records that a message_id was produced, returning false if it
// was already marked (the producer retried after an ack timeout).
func (s *Store) MarkSent(ctx context.Context, messageID string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, sentKey(messageID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: mark sent: %w", err)
	}
	return ok, nil
}

// IsProcessed reports whether a message_id has already been committed by
// ingress, per spec §4.5's duplicate-detection step.
func (s *Store) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, processedKey(messageID)).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: check processed: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records that a message_id's effects have been committed.
func (s *Store) MarkProcessed(ctx context.Context, messageID string) error {
	if err := s.rdb.Set(ctx, processedKey(messageID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: mark processed: %w", err)
	}
	return nil
}
