// Package repository persists games, positions, and embedding jobs over
// database/sql, fronted by a fixed-capacity connection pool (spec §4.6/§5).
package repository

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/lib/pq"

	"github.com/hendrikreh/chessmate/internal/errs"
)

// Stats is a snapshot of pool occupancy (spec §4.6).
type Stats struct {
	Capacity int
	InUse    int
	Waiting  int
}

// Pool wraps a *sql.DB with a fixed-capacity semaphore so callers never
// oversubscribe the underlying driver's connections, and reports the
// {capacity, in_use, waiting} counters the worker and health endpoint read.
type Pool struct {
	db    *sql.DB
	slots chan struct{}

	mu      sync.Mutex
	inUse   int
	waiting int
}

// Open connects to dsn and sizes the pool to capacity (CHESSMATE_DB_POOL_SIZE,
// default 10 — spec §6).
func Open(dsn string, capacity int) (*Pool, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errs.DbError(errs.Sanitize(err.Error()), err)
	}
	db.SetMaxOpenConns(capacity)
	return &Pool{db: db, slots: make(chan struct{}, capacity)}, nil
}

// Close releases the underlying *sql.DB.
func (p *Pool) Close() error {
	return p.db.Close()
}

// Stats returns the current {capacity, in_use, waiting} snapshot (spec §4.6).
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Capacity: cap(p.slots), InUse: p.inUse, Waiting: p.waiting}
}

// withConnection increments waiting on entry, transitions to in_use once a
// slot is acquired, and decrements on exit on every path — including ctx
// cancellation while waiting (spec §4.6).
func (p *Pool) withConnection(ctx context.Context, f func(*sql.DB) error) error {
	p.mu.Lock()
	p.waiting++
	p.mu.Unlock()

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		p.mu.Lock()
		p.waiting--
		p.mu.Unlock()
		return ctx.Err()
	}

	p.mu.Lock()
	p.waiting--
	p.inUse++
	p.mu.Unlock()

	defer func() {
		<-p.slots
		p.mu.Lock()
		p.inUse--
		p.mu.Unlock()
	}()

	return f(p.db)
}
