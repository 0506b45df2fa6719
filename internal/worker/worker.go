// Package worker runs the claim/embed/upsert/mark loop described in spec
// §4.7, polling the repository for Pending embedding jobs and driving
// them to Completed or Failed. A cancellable context plus a WaitGroup
// gives it a Start/Stop lifecycle that drains in-flight work instead of
// abandoning it on shutdown.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hendrikreh/chessmate/internal/embedclient"
	"github.com/hendrikreh/chessmate/internal/errs"
	"github.com/hendrikreh/chessmate/internal/repository"
	"github.com/hendrikreh/chessmate/internal/vectorstore"
)

// Embedder is the subset of embedclient.Client the worker depends on;
// tests substitute a stub.
type Embedder interface {
	Embed(ctx context.Context, fens []string) ([][]float32, error)
}

// VectorUpserter is the subset of vectorstore.Hook the worker depends on.
type VectorUpserter interface {
	UpsertPoints(ctx context.Context, collection string, points []vectorstore.Point) error
}

// JobStore is the subset of *repository.Repository the worker depends on,
// so tests can substitute an in-memory store without a live database.
type JobStore interface {
	ClaimPendingJobs(ctx context.Context, limit int) ([]repository.Job, error)
	VectorPayloadForJob(ctx context.Context, jobID string) (repository.VectorPayload, error)
	MarkJobCompleted(ctx context.Context, jobID, vectorID string) error
	MarkJobFailed(ctx context.Context, jobID, message string) error
}

var _ Embedder = (*embedclient.Client)(nil)
var _ VectorUpserter = (*vectorstore.Client)(nil)
var _ JobStore = (*repository.Repository)(nil)

// Config tunes the loop (spec §4.7/§6).
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
	Collection   string
}

// Worker drains Pending embedding_jobs rows, embeds their FENs, upserts
// the resulting vectors, and marks each job Completed or Failed. It is
// stateless across restarts; all durable state lives in the repository.
type Worker struct {
	repo     JobStore
	embedder Embedder
	vectors  VectorUpserter
	cfg      Config
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Worker. cfg zero-values fall back to spec §6 defaults.
func New(repo JobStore, embedder Embedder, vectors VectorUpserter, cfg Config, logger zerolog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Collection == "" {
		cfg.Collection = "chessmate_positions"
	}
	return &Worker{repo: repo, embedder: embedder, vectors: vectors, cfg: cfg, logger: logger}
}

// Start launches the poll loop in a background goroutine.
func (w *Worker) Start() {
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.wg.Add(1)
	go w.run()
}

// Stop signals the loop to exit and waits for the in-flight batch to
// finish draining before returning (spec §4.7's graceful-shutdown note).
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		n, err := w.runOnce(w.ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("embedding batch failed")
			sleep(w.ctx, w.cfg.PollInterval)
			continue
		}
		if n == 0 {
			sleep(w.ctx, w.cfg.PollInterval)
		}
	}
}

// runOnce claims up to BatchSize jobs and processes them concurrently
// (bounded by Concurrency), returning how many jobs were claimed.
func (w *Worker) runOnce(ctx context.Context) (int, error) {
	jobs, err := w.repo.ClaimPendingJobs(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	// Claimed jobs run under a context that Stop does not cancel, so each
	// in-flight job still completes or is marked failed during shutdown.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(w.cfg.Concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			w.processJob(gctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return len(jobs), nil
}

func (w *Worker) processJob(ctx context.Context, job repository.Job) {
	vectors, err := w.embedder.Embed(ctx, []string{job.FEN})
	if err != nil {
		w.fail(ctx, job, err)
		return
	}
	if len(vectors) != 1 {
		w.fail(ctx, job, errs.Transport("embedding provider returned wrong vector count", false, nil))
		return
	}

	payload, err := w.repo.VectorPayloadForJob(ctx, job.ID)
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	vectorID := repository.HashFEN(job.FEN)
	point := vectorstore.Point{
		ID:     vectorID,
		Vector: vectors[0],
		Payload: map[string]any{
			"game_id":      payload.GameID,
			"fen":          payload.FEN,
			"white":        payload.White,
			"black":        payload.Black,
			"opening_slug": payload.OpeningSlug,
		},
	}
	if err := w.vectors.UpsertPoints(ctx, w.cfg.Collection, []vectorstore.Point{point}); err != nil {
		w.fail(ctx, job, err)
		return
	}

	if err := w.repo.MarkJobCompleted(ctx, job.ID, vectorID); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("marking job completed failed")
	}
}

func (w *Worker) fail(ctx context.Context, job repository.Job, cause error) {
	if err := w.repo.MarkJobFailed(ctx, job.ID, errs.SanitizeErr(cause)); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("marking job failed failed")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
