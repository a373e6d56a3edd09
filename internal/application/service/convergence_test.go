package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingReloader struct {
	calls int32
}

func (r *countingReloader) Reload(ctx context.Context, customerID int64) error {
	atomic.AddInt32(&r.calls, 1)
	return nil
}

func newTestScheduler(t *testing.T, backend *stubBackend, loader SnapshotReloader, delay time.Duration) (*ConvergenceScheduler, *int32) {
	t.Helper()
	log := zap.NewNop()
	var summaries int32
	th := NewRefreshThrottle(5*time.Millisecond, log)
	c := NewConvergenceScheduler(backend, loader, th,
		func() { atomic.AddInt32(&summaries, 1) },
		delay, time.Second, log,
	)
	t.Cleanup(func() {
		c.Stop()
		th.Stop()
	})
	return c, &summaries
}

func TestAfterWriteReloadsImmediatelyThenOnceDelayed(t *testing.T) {
	backend := &stubBackend{}
	loader := &countingReloader{}
	c, summaries := newTestScheduler(t, backend, loader, 25*time.Millisecond)

	c.AfterWrite(context.Background(), 42)

	// The immediate pass completed before AfterWrite returned.
	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.recalcCalls))
	assert.False(t, c.IsRefreshing(42))
	assert.GreaterOrEqual(t, atomic.LoadInt32(summaries), int32(1))

	// The trailing pass fires once after the settle window.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&loader.calls) == 2
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loader.calls))
}

func TestAfterWriteCoalescesDelayedPasses(t *testing.T) {
	backend := &stubBackend{}
	loader := &countingReloader{}
	c, _ := newTestScheduler(t, backend, loader, 40*time.Millisecond)

	// Two writes in quick succession: two immediate passes, but the settle
	// timer restarts so only one trailing pass runs.
	c.AfterWrite(context.Background(), 42)
	c.AfterWrite(context.Background(), 42)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loader.calls))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&loader.calls) == 3
	}, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&loader.calls))
}

func TestIsRefreshingDuringImmediatePass(t *testing.T) {
	backend := &stubBackend{}
	started := make(chan struct{})
	release := make(chan struct{})
	loader := &blockingReloader{started: started, release: release}
	c, _ := newTestScheduler(t, backend, loader, time.Hour)

	done := make(chan struct{})
	go func() {
		c.AfterWrite(context.Background(), 7)
		close(done)
	}()

	<-started
	assert.True(t, c.IsRefreshing(7))
	assert.False(t, c.IsRefreshing(8))
	close(release)
	<-done
	assert.False(t, c.IsRefreshing(7))
}

type blockingReloader struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingReloader) Reload(ctx context.Context, customerID int64) error {
	close(r.started)
	<-r.release
	return nil
}

func TestStopCancelsDelayedPass(t *testing.T) {
	backend := &stubBackend{}
	loader := &countingReloader{}
	c, _ := newTestScheduler(t, backend, loader, 20*time.Millisecond)

	c.AfterWrite(context.Background(), 42)
	c.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.calls))
}

func TestForceReloadSkipsDelayedPass(t *testing.T) {
	backend := &stubBackend{}
	loader := &countingReloader{}
	c, summaries := newTestScheduler(t, backend, loader, 10*time.Millisecond)

	c.ForceReload(context.Background(), 42)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&backend.recalcCalls))
	assert.GreaterOrEqual(t, atomic.LoadInt32(summaries), int32(1))

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loader.calls))
}
