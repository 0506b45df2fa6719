package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hendrikreh/chessmate/internal/errs"
	"github.com/hendrikreh/chessmate/internal/repository"
	"github.com/hendrikreh/chessmate/internal/vectorstore"
)

type fakeStore struct {
	mu        sync.Mutex
	pending   []repository.Job
	completed []string
	failed    map[string]string
}

func newFakeStore(jobs ...repository.Job) *fakeStore {
	return &fakeStore{pending: jobs, failed: map[string]string{}}
}

func (f *fakeStore) ClaimPendingJobs(ctx context.Context, limit int) ([]repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil, nil
	}
	n := limit
	if n > len(f.pending) {
		n = len(f.pending)
	}
	claimed := f.pending[:n]
	f.pending = f.pending[n:]
	return claimed, nil
}

func (f *fakeStore) VectorPayloadForJob(ctx context.Context, jobID string) (repository.VectorPayload, error) {
	return repository.VectorPayload{GameID: "g1", FEN: "fen-" + jobID, White: "Alice", Black: "Bob", OpeningSlug: "sicilian"}, nil
}

func (f *fakeStore) MarkJobCompleted(ctx context.Context, jobID, vectorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, jobID)
	return nil
}

func (f *fakeStore) MarkJobFailed(ctx context.Context, jobID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[jobID] = message
	return nil
}

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) Embed(ctx context.Context, fens []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(fens))
	for i := range fens {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

type fakeVectors struct {
	mu     sync.Mutex
	points []vectorstore.Point
	err    error
}

func (v *fakeVectors) UpsertPoints(ctx context.Context, collection string, points []vectorstore.Point) error {
	if v.err != nil {
		return v.err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.points = append(v.points, points...)
	return nil
}

func TestRunOnceCompletesJobsOnSuccess(t *testing.T) {
	store := newFakeStore(repository.Job{ID: "j1", PositionID: "p1", FEN: "8/8/8/8/8/8/8/8 w - - 0 1"})
	w := New(store, &fakeEmbedder{}, &fakeVectors{}, Config{BatchSize: 4, Concurrency: 2}, zerolog.Nop())

	n, err := w.runOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "claimed")
	assert.Equal(t, []string{"j1"}, store.completed)
}

func TestRunOnceMarksJobFailedOnEmbedError(t *testing.T) {
	store := newFakeStore(repository.Job{ID: "j1", FEN: "bad"})
	w := New(store, &fakeEmbedder{err: errs.Transport("provider down", true, nil)}, &fakeVectors{}, Config{}, zerolog.Nop())

	_, err := w.runOnce(context.Background())
	require.NoError(t, err)
	assert.Contains(t, store.failed, "j1")
	assert.Empty(t, store.completed)
}

func TestRunOnceMarksJobFailedOnUpsertError(t *testing.T) {
	store := newFakeStore(repository.Job{ID: "j2", FEN: "8/8/8/8/8/8/8/8 w - - 0 1"})
	w := New(store, &fakeEmbedder{}, &fakeVectors{err: errs.Transport("store unreachable", true, nil)}, Config{}, zerolog.Nop())

	_, err := w.runOnce(context.Background())
	require.NoError(t, err)
	assert.Contains(t, store.failed, "j2", "expected job j2 marked failed after upsert error")
}

func TestRunOnceReturnsZeroWhenNoPendingJobs(t *testing.T) {
	store := newFakeStore()
	w := New(store, &fakeEmbedder{}, &fakeVectors{}, Config{}, zerolog.Nop())

	n, err := w.runOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "claimed")
}

func TestStopDrainsInFlightWork(t *testing.T) {
	store := newFakeStore(repository.Job{ID: "j3", FEN: "8/8/8/8/8/8/8/8 w - - 0 1"})
	w := New(store, &fakeEmbedder{}, &fakeVectors{}, Config{PollInterval: time.Millisecond}, zerolog.Nop())

	w.Start()
	time.Sleep(20 * time.Millisecond)
	w.Stop()

	assert.Equal(t, []string{"j3"}, store.completed)
}
