package idempotency_test

import (
	"context"
	"testing"
	"time"

	"matchengine/internal/idempotency"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func dialRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skip("redis not reachable at 127.0.0.1:6379, skipping integration test")
	}
	return rdb
}

func TestStore_MarkSent_IsFalseOnSecondCall(t *testing.T) {
	rdb := dialRedis(t)
	defer rdb.Close()
	s := idempotency.New(rdb)
	ctx := context.Background()

	first, err := s.MarkSent(ctx, "msg-1")
	require.NoError(t, err)
	require.True(t, first)

	second, err := s.MarkSent(ctx, "msg-1")
	require.NoError(t, err)
	require.False(t, second)
}

func TestStore_MarkProcessed_ThenIsProcessed(t *testing.T) {
	rdb := dialRedis(t)
	defer rdb.Close()
	s := idempotency.New(rdb)
	ctx := context.Background()

	processed, err := s.IsProcessed(ctx, "msg-2")
	require.NoError(t, err)
	require.False(t, processed)

	require.NoError(t, s.MarkProcessed(ctx, "msg-2"))

	processed, err = s.IsProcessed(ctx, "msg-2")
	require.NoError(t, err)
	require.True(t, processed)
}
