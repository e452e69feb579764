package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lmcosta/snapsight/internal/config"
	"github.com/lmcosta/snapsight/internal/docstore"
	"github.com/lmcosta/snapsight/internal/logging"
	"github.com/lmcosta/snapsight/internal/notify"
	"github.com/lmcosta/snapsight/internal/repository"
)

// The notifier runs independently of the api and worker: it may start, crash
// and restart without coordination with producers, and unacknowledged
// messages are simply redelivered to the next instance.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.New("notifier")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	pool, err := docstore.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := docstore.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}
	history := repository.NewNotificationRepository(docstore.NewPostgresStore(pool))

	consumer := notify.NewConsumer(history, cfg.NotifyMaxInFlightBytes, log)

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.NotifyMaxInFlight,
		Queues:      map[string]int{notify.QueueNotifications: 1},
	})

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Info().
		Int("max_in_flight", cfg.NotifyMaxInFlight).
		Int64("max_in_flight_bytes", cfg.NotifyMaxInFlightBytes).
		Msg("notifier started")
	if err := server.Run(consumer.Handler()); err != nil {
		log.Error().Err(err).Msg("notifier stopped")
		os.Exit(1)
	}
}
