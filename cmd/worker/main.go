package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lmcosta/snapsight/internal/blobstore"
	"github.com/lmcosta/snapsight/internal/config"
	"github.com/lmcosta/snapsight/internal/docstore"
	"github.com/lmcosta/snapsight/internal/logging"
	"github.com/lmcosta/snapsight/internal/notify"
	"github.com/lmcosta/snapsight/internal/pipeline"
	"github.com/lmcosta/snapsight/internal/repository"
	"github.com/lmcosta/snapsight/internal/vision"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.New("worker")

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
	results := repository.NewResultRepository(docstore.NewPostgresStore(pool))

	blobs, err := blobstore.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}

	detector := vision.NewGoogleClient(cfg.VisionAPIKey, cfg.VisionEndpoint)
	aggregator := vision.NewAggregator(detector, log)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()
	publisher := notify.NewPublisher(queueClient, cfg.NotifyMaxRetry)

	orchestrator := pipeline.New(
		blobs,
		aggregator,
		results,
		publisher,
		cfg.AllowedExtensions,
		cfg.OutputPrefix,
		log,
	)

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AnalysisWorkers,
		Queues:      map[string]int{pipeline.QueueAnalysis: 1},
	})

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Info().Int("workers", cfg.AnalysisWorkers).Msg("worker started")
	if err := server.Run(orchestrator.Handler()); err != nil {
		log.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
}
