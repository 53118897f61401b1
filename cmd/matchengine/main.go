// Command matchengine wires the matching engine's components together:
// config, primary store, cache, coordinator, ingress dispatcher, egress
// publisher, cache-sync scheduler, recovery runner, and dead letter
// handler. Shape follows the teacher's cmd/server/server.go (signal
// context, a background Run goroutine per long-lived component, block
// on ctx.Done()), generalized from one TCP server to several
// tomb-supervised components.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"matchengine/internal/book"
	"matchengine/internal/config"
	"matchengine/internal/coordinator"
	"matchengine/internal/deadletter"
	"matchengine/internal/egress"
	"matchengine/internal/idempotency"
	"matchengine/internal/ingress"
	"matchengine/internal/recovery"
	"matchengine/internal/storage/cache"
	"matchengine/internal/storage/primary"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.With().Caller().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(".", "/etc/matchengine")
	if err != nil {
		log.Fatal().Err(err).Msg("matchengine: load config failed")
	}

	pool, err := pgxpool.New(ctx, cfg.Primary.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("matchengine: connect primary store failed")
	}
	defer pool.Close()

	primaryStore := primary.New(pool)
	if err := primaryStore.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("matchengine: ensure schema failed")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.Addr})
	defer rdb.Close()
	bookCache := cache.New(rdb)
	idem := idempotency.New(rdb)

	t, ctx := tomb.WithContext(ctx)

	publisher := egress.New(egress.Config{
		Brokers:        cfg.Egress.Brokers,
		StatusTopic:    cfg.Egress.StatusTopic,
		TradeTopic:     cfg.Egress.TradeTopic,
		StatusDLQTopic: cfg.Egress.StatusDLQTopic,
		TradeDLQTopic:  cfg.Egress.TradeDLQTopic,
	})
	defer publisher.Close()

	syncer := cache.NewSyncer(bookCache, func(ctx context.Context, symbol string) (book.Snapshot, bool) {
		snap, err := primaryStore.LoadOrderBookSnapshot(ctx, symbol)
		if err != nil {
			return book.Snapshot{}, false
		}
		return *snap, true
	})
	coord := coordinator.New(t, primaryStore, publisher, syncer, nil)
	t.Go(func() error { return syncer.Run(t) })

	if cfg.Recovery.Enabled {
		runner := recovery.New(primaryStore, bookCache, syncer, coord)
		if err := runner.Run(ctx); err != nil {
			log.Error().Err(err).Msg("matchengine: recovery pass failed")
		}
	}

	dispatcher := ingress.New(ingress.Config{
		Brokers:     cfg.Ingress.Brokers,
		Topic:       cfg.Ingress.Topic,
		DLQTopic:    cfg.Ingress.DLQTopic,
		GroupID:     cfg.Ingress.GroupID,
		Concurrency: cfg.Ingress.Concurrency,
	}, coord, primaryStore, idem)
	defer dispatcher.Close()
	t.Go(func() error { return dispatcher.Run(t) })

	dlq := deadletter.New(deadletter.Config{
		Brokers:        cfg.Ingress.Brokers,
		OrderInputDLQ:  cfg.Ingress.DLQTopic,
		TradeOutputDLQ: cfg.Egress.TradeDLQTopic,
		GroupID:        cfg.Ingress.GroupID + "-deadletter",
	}, primaryStore, publisher)
	defer dlq.Close()
	t.Go(func() error { return dlq.Run(t) })

	log.Info().Msg("matchengine: running")
	<-ctx.Done()
	t.Kill(nil)
	_ = t.Wait()
	log.Info().Msg("matchengine: shut down")
}
