package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hendrikreh/chessmate/internal/config"
	"github.com/hendrikreh/chessmate/internal/embedclient"
	"github.com/hendrikreh/chessmate/internal/repository"
	"github.com/hendrikreh/chessmate/internal/vectorstore"
	"github.com/hendrikreh/chessmate/internal/worker"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&showHelp, "h", false, "Show help information")
	flag.Parse()

	if showHelp {
		showHelpMessage()
		return
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	pool, err := repository.Open(cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database pool")
	}
	defer pool.Close()
	repo := repository.New(pool)

	embedder := embedclient.New(
		cfg.OpenAI.EmbeddingEndpoint,
		cfg.OpenAI.APIKey,
		cfg.OpenAI.RetryMaxAttempts,
		time.Duration(cfg.OpenAI.RetryBaseDelayMs)*time.Millisecond,
	)
	vectors := vectorstore.NewClient(cfg.Qdrant.URL, vectorstore.WithLogger(log.Logger))
	if err := vectors.EnsureCollection(context.Background(), cfg.Qdrant.Collection, 1536, "Cosine"); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure vector collection")
	}

	w := worker.New(repo, embedder, vectors, worker.Config{
		PollInterval: time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second,
		BatchSize:    cfg.Worker.BatchSize,
		Concurrency:  cfg.Worker.Concurrency,
		Collection:   cfg.Qdrant.Collection,
	}, log.Logger)

	w.Start()
	log.Info().Msg("embedding worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down embedding worker, draining in-flight jobs...")
	w.Stop()
	log.Info().Msg("embedding worker exited")
}

func showHelpMessage() {
	fmt.Println(`chessmate-worker

DESCRIPTION:
    Polls for Pending embedding jobs, requests vectors from the
    configured embedding provider, upserts them into the vector store,
    and marks each job Completed or Failed.

USAGE:
    chessmate-worker [OPTIONS]

OPTIONS:
    -h, --help    Show this help message

CONFIGURATION:
    DATABASE_URL, OPENAI_API_KEY, OPENAI_EMBEDDING_ENDPOINT, QDRANT_URL,
    CHESSMATE_WORKER_POLL_INTERVAL_SECONDS, CHESSMATE_WORKER_BATCH_SIZE,
    CHESSMATE_WORKER_CONCURRENCY.

BEHAVIOR:
    - Stateless across restarts; all durable state lives in the database.
    - Graceful shutdown on SIGINT/SIGTERM drains the in-flight batch.
`)
}
