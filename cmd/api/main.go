package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vericase/vericase-docs/internal/api"
	"github.com/vericase/vericase-docs/internal/auth"
	"github.com/vericase/vericase-docs/internal/config"
	"github.com/vericase/vericase-docs/internal/database"
	"github.com/vericase/vericase-docs/internal/extract"
	"github.com/vericase/vericase-docs/internal/objectstore"
	"github.com/vericase/vericase-docs/internal/queue"
	"github.com/vericase/vericase-docs/internal/repository"
	"github.com/vericase/vericase-docs/internal/search"
	"github.com/vericase/vericase-docs/internal/share"
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
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	docs := repository.NewPgDocumentRepository(pool)
	users := repository.NewPgUserRepository(pool)
	shareRepo := repository.NewPgShareRepository(pool)

	store, err := objectstore.NewMinioStore(cfg)
	if err != nil {
		log.Fatalf("init object store: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("ensure bucket: %v", err)
	}

	index, err := search.New(cfg)
	if err != nil {
		log.Fatalf("init search: %v", err)
	}
	if err := index.EnsureIndex(ctx); err != nil {
		log.Fatalf("ensure index: %v", err)
	}

	var enqueuer queue.Enqueuer
	if cfg.InlineWorker {
		extractor := extract.New(cfg.TikaURL, log)
		processor := worker.NewProcessor(docs, store, index, extractor, log)
		inline := queue.NewInlinePool(processor.ProcessDocument, cfg.WorkerCount, log)
		inline.Start(ctx)
		enqueuer = inline
		log.Info("running with inline ingestion workers")
	} else {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		enqueuer = queue.NewAsynqEnqueuer(client)
	}

	shares := share.NewService(shareRepo, docs, store, cfg.SignedURLTTL, log)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpire)

	srv := api.New(cfg, docs, users, store, index, shares, enqueuer, tokens, log)
	if err := srv.Run(ctx); err != nil {
		log.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}
