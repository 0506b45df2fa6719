package repository

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(capacity int) *Pool {
	return &Pool{slots: make(chan struct{}, capacity)}
}

func TestStatsInitiallyIdle(t *testing.T) {
	p := newTestPool(10)
	s := p.Stats()
	assert.Equal(t, Stats{Capacity: 10, InUse: 0, Waiting: 0}, s)
}

func TestWithConnectionTracksInUse(t *testing.T) {
	p := newTestPool(1)
	err := p.withConnection(context.Background(), func(_ *sql.DB) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stats().InUse, "InUse after release")
}

func TestWithConnectionWaitingIncrementsUnderContention(t *testing.T) {
	p := newTestPool(1)
	var wg sync.WaitGroup
	blockFirst := make(chan struct{})
	unblockFirst := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = p.withConnection(context.Background(), func(_ *sql.DB) error {
			close(blockFirst)
			<-unblockFirst
			return nil
		})
	}()

	<-blockFirst
	secondStarted := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(secondStarted)
		_ = p.withConnection(context.Background(), func(_ *sql.DB) error { return nil })
	}()
	<-secondStarted
	time.Sleep(10 * time.Millisecond)

	assert.GreaterOrEqual(t, p.Stats().Waiting, 1, "waiting while first holder is busy")

	close(unblockFirst)
	wg.Wait()
}

func TestWithConnectionRespectsContextCancellation(t *testing.T) {
	p := newTestPool(1)
	unblock := make(chan struct{})
	go p.withConnection(context.Background(), func(_ *sql.DB) error {
		<-unblock
		return nil
	})
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.withConnection(ctx, func(_ *sql.DB) error { return nil })
	require.Error(t, err, "expected context deadline error while waiting for a slot")
	close(unblock)
}
