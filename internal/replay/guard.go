// Package replay enforces at-most-once processing of settlement rounds.
//
// A key is committed only after its settlement succeeded upstream. While a
// settlement is running its key is marked in-flight, so a concurrent request
// for the same key waits for the outcome instead of racing it.
package replay

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAlreadyProcessed is returned by Acquire when the key has been committed.
var ErrAlreadyProcessed = errors.New("round already processed")

// Guard is an in-memory set of processed round keys. It is safe for
// concurrent use.
type Guard struct {
	mu        sync.Mutex
	committed map[string]time.Time
	inFlight  map[string]chan struct{}
	retention time.Duration
	now       func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithRetention evicts committed keys once they are older than d.
// Zero keeps keys for the lifetime of the process.
func WithRetention(d time.Duration) Option {
	return func(g *Guard) {
		g.retention = d
	}
}

// WithClock overrides the time source used for retention.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// NewGuard creates an empty guard.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		committed: make(map[string]time.Time),
		inFlight:  make(map[string]chan struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Has reports whether key has been committed.
func (g *Guard) Has(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.hasLocked(key)
}

// Commit records key as processed. Committing a present key is a no-op.
func (g *Guard) Commit(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.commitLocked(key)
}

// Acquire atomically checks key and marks it in-flight. The returned channel
// must be handed to Complete or Release exactly once.
//
// If another caller holds key, Acquire waits until that caller finishes:
// a committed outcome yields ErrAlreadyProcessed, a released one lets this
// caller take the key. Context cancellation aborts the wait.
func (g *Guard) Acquire(ctx context.Context, key string) (chan struct{}, error) {
	for {
		g.mu.Lock()
		if g.hasLocked(key) {
			g.mu.Unlock()
			return nil, ErrAlreadyProcessed
		}
		wait, busy := g.inFlight[key]
		if !busy {
			done := make(chan struct{})
			g.inFlight[key] = done
			g.mu.Unlock()
			return done, nil
		}
		g.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Complete commits key and wakes any waiters.
func (g *Guard) Complete(key string, done chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.commitLocked(key)
	g.releaseLocked(key, done)
	g.evictExpiredLocked()
}

// Release drops the in-flight marker without committing, so the round can be
// settled by a later request.
func (g *Guard) Release(key string, done chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.releaseLocked(key, done)
}

// Len returns the number of committed keys.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.evictExpiredLocked()
	return len(g.committed)
}

func (g *Guard) hasLocked(key string) bool {
	at, ok := g.committed[key]
	if !ok {
		return false
	}
	if g.expired(at) {
		delete(g.committed, key)
		return false
	}
	return true
}

func (g *Guard) commitLocked(key string) {
	if g.hasLocked(key) {
		return
	}
	g.committed[key] = g.now()
}

func (g *Guard) releaseLocked(key string, done chan struct{}) {
	if cur, ok := g.inFlight[key]; ok && cur == done {
		delete(g.inFlight, key)
	}
	close(done)
}

func (g *Guard) expired(at time.Time) bool {
	return g.retention > 0 && g.now().Sub(at) > g.retention
}

// evictExpiredLocked must be called with mu held.
func (g *Guard) evictExpiredLocked() {
	if g.retention <= 0 {
		return
	}
	for key, at := range g.committed {
		if g.expired(at) {
			delete(g.committed, key)
		}
	}
}
