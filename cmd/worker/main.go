package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vericase/vericase-docs/internal/config"
	"github.com/vericase/vericase-docs/internal/database"
	"github.com/vericase/vericase-docs/internal/extract"
	"github.com/vericase/vericase-docs/internal/objectstore"
	"github.com/vericase/vericase-docs/internal/repository"
	"github.com/vericase/vericase-docs/internal/search"
	"github.com/vericase/vericase-docs/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	docs := repository.NewPgDocumentRepository(pool)

	store, err := objectstore.NewMinioStore(cfg)
	if err != nil {
		log.Fatalf("init object store: %v", err)
	}

	index, err := search.New(cfg)
	if err != nil {
		log.Fatalf("init search: %v", err)
	}
	if err := index.EnsureIndex(ctx); err != nil {
		log.Fatalf("ensure index: %v", err)
	}

	extractor := extract.New(cfg.TikaURL, log)
	processor := worker.NewProcessor(docs, store, index, extractor, log)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.WorkerCount,
			Logger:      log,
		},
	)

	if err := srv.Start(processor.Handler()); err != nil {
		log.Fatalf("start worker: %v", err)
	}
	log.WithField("concurrency", cfg.WorkerCount).Info("ingestion worker running")

	<-ctx.Done()
	log.Info("shutting down worker")
	srv.Shutdown()
}
