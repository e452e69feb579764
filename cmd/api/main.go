package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lmcosta/snapsight/internal/api"
	"github.com/lmcosta/snapsight/internal/blobstore"
	"github.com/lmcosta/snapsight/internal/config"
	"github.com/lmcosta/snapsight/internal/docstore"
	"github.com/lmcosta/snapsight/internal/logging"
	"github.com/lmcosta/snapsight/internal/pipeline"
	"github.com/lmcosta/snapsight/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.New("api")

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
	store := docstore.NewPostgresStore(pool)
	results := repository.NewResultRepository(store)
	notifications := repository.NewNotificationRepository(store)

	blobs, err := blobstore.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure bucket")
	}

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()
	trigger := func(ctx context.Context, t pipeline.Trigger) error {
		return pipeline.EnqueueAnalyze(ctx, queueClient, t)
	}

	srv := api.New(cfg, results, notifications, blobs, trigger, log)
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("api stopped")
		os.Exit(1)
	}
}
