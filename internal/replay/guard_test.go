package replay

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_HasCommit(t *testing.T) {
	g := NewGuard()

	assert.False(t, g.Has("w1:r1"))
	g.Commit("w1:r1")
	assert.True(t, g.Has("w1:r1"))
	assert.False(t, g.Has("w1:r2"))

	// idempotent
	g.Commit("w1:r1")
	assert.True(t, g.Has("w1:r1"))
	assert.Equal(t, 1, g.Len())
}

func TestGuard_AcquireComplete(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	done, err := g.Acquire(ctx, "w1:r1")
	require.NoError(t, err)
	assert.False(t, g.Has("w1:r1"), "in-flight key must not count as committed")

	g.Complete("w1:r1", done)
	assert.True(t, g.Has("w1:r1"))

	_, err = g.Acquire(ctx, "w1:r1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestGuard_AcquireRelease(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	done, err := g.Acquire(ctx, "w1:r1")
	require.NoError(t, err)
	g.Release("w1:r1", done)

	assert.False(t, g.Has("w1:r1"))

	done, err = g.Acquire(ctx, "w1:r1")
	require.NoError(t, err, "released key must be acquirable again")
	g.Release("w1:r1", done)
}

func TestGuard_ConcurrentAcquireSettlesOnce(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	var settled, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, err := g.Acquire(ctx, "w1:r1")
			if err != nil {
				assert.ErrorIs(t, err, ErrAlreadyProcessed)
				rejected.Add(1)
				return
			}
			time.Sleep(time.Millisecond)
			settled.Add(1)
			g.Complete("w1:r1", done)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), settled.Load())
	assert.Equal(t, int32(19), rejected.Load())
}

func TestGuard_WaiterTakesOverAfterRelease(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	first, err := g.Acquire(ctx, "w1:r1")
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() {
		done, err := g.Acquire(ctx, "w1:r1")
		if err == nil {
			g.Complete("w1:r1", done)
		}
		acquired <- err
	}()

	time.Sleep(10 * time.Millisecond)
	g.Release("w1:r1", first)

	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter did not proceed after release")
	}
	assert.True(t, g.Has("w1:r1"))
}

func TestGuard_AcquireContextCancelled(t *testing.T) {
	g := NewGuard()

	first, err := g.Acquire(context.Background(), "w1:r1")
	require.NoError(t, err)
	defer g.Release("w1:r1", first)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx, "w1:r1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuard_Retention(t *testing.T) {
	now := time.Unix(1700000000, 0)
	g := NewGuard(
		WithRetention(time.Minute),
		WithClock(func() time.Time { return now }),
	)

	g.Commit("w1:r1")
	now = now.Add(30 * time.Second)
	g.Commit("w1:r2")
	assert.True(t, g.Has("w1:r1"))

	now = now.Add(31 * time.Second)
	assert.False(t, g.Has("w1:r1"))
	assert.True(t, g.Has("w1:r2"))
	assert.Equal(t, 1, g.Len())
}

func TestGuard_NoRetentionKeepsKeys(t *testing.T) {
	now := time.Unix(1700000000, 0)
	g := NewGuard(WithClock(func() time.Time { return now }))

	g.Commit("w1:r1")
	now = now.Add(365 * 24 * time.Hour)
	assert.True(t, g.Has("w1:r1"))
}
