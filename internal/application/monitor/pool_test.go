package monitor_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/oddbot/internal/application/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 2
	var active, peak, done atomic.Int32
	release := make(chan struct{})

	pool := monitor.NewPool(context.Background(), workers, 16, func(_ context.Context, _ string) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		done.Add(1)
	})

	for _, ref := range []string{"a", "b", "c", "d", "e", "f"} {
		require.True(t, pool.Submit(ref))
	}

	require.Eventually(t, func() bool { return active.Load() == workers }, time.Second, time.Millisecond)
	close(release)

	require.NoError(t, pool.Drain(context.Background()))
	assert.Equal(t, int32(6), done.Load())
	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestPool_SubmitAfterClose(t *testing.T) {
	pool := monitor.NewPool(context.Background(), 1, 1, func(context.Context, string) {})
	pool.Close()
	pool.Close()

	assert.False(t, pool.Submit("ref"))
	assert.NoError(t, pool.Drain(context.Background()))
}

func TestPool_DrainDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	pool := monitor.NewPool(context.Background(), 1, 1, func(context.Context, string) { <-release })
	require.True(t, pool.Submit("stuck"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Drain(ctx), context.DeadlineExceeded)
}

func TestPool_CancelledContextReachesJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var seen []error

	pool := monitor.NewPool(ctx, 1, 4, func(ctx context.Context, _ string) {
		<-ctx.Done()
		mu.Lock()
		seen = append(seen, ctx.Err())
		mu.Unlock()
	})
	require.True(t, pool.Submit("a"))
	require.True(t, pool.Submit("b"))
	cancel()

	require.NoError(t, pool.Drain(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 2)
}

func TestTracker_Track(t *testing.T) {
	pending := monitor.NewPendingBets()
	var ran sync.WaitGroup
	ran.Add(1)
	pool := monitor.NewPool(context.Background(), 1, 4, func(_ context.Context, ref string) {
		// la entrada existe cuando el worker empieza
		_, ok := pending.Get(ref)
		assert.True(t, ok)
		pending.Remove(ref)
		ran.Done()
	})
	tracker := monitor.NewTracker(pending, pool)

	assert.True(t, tracker.Track(pendingBet("ref-1")))
	ran.Wait()
	require.NoError(t, pool.Drain(context.Background()))

	// pool cerrado: la entrada se revierte
	assert.False(t, tracker.Track(pendingBet("ref-2")))
	assert.Equal(t, 0, pending.Len())
}

func TestTracker_DuplicateReference(t *testing.T) {
	pending := monitor.NewPendingBets()
	release := make(chan struct{})
	pool := monitor.NewPool(context.Background(), 1, 4, func(context.Context, string) { <-release })
	tracker := monitor.NewTracker(pending, pool)

	assert.True(t, tracker.Track(pendingBet("ref-1")))
	assert.False(t, tracker.Track(pendingBet("ref-1")))
	assert.Equal(t, 1, pending.Len())

	close(release)
	require.NoError(t, pool.Drain(context.Background()))
}

func TestPool_RunsMonitorEndToEnd(t *testing.T) {
	checker := &mockChecker{results: statuses("PENDING_ACCEPTANCE", "LOSS")}
	mon, pending, _ := newMonitor(t, monitor.DefaultConfig(), checker)

	pool := monitor.NewPool(context.Background(), 2, 4, func(ctx context.Context, ref string) {
		_, _ = mon.Watch(ctx, ref)
	})
	require.True(t, pool.Submit("ref-1"))
	require.NoError(t, pool.Drain(context.Background()))

	assert.Equal(t, 2, checker.Calls())
	assert.Equal(t, 0, pending.Len())
}
