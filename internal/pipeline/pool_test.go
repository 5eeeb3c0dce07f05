package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorkbot/gork/internal/logging"
)

func runPool[J any](t *testing.T, p *Pool[J]) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("pool did not stop")
		}
	}
}

func TestPoolRunsJobs(t *testing.T) {
	var mu sync.Mutex
	var got []int
	p := NewPool(2, 10, func(_ context.Context, n int) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	}, logging.New(nil, "silent"))

	stop := runPool(t, p)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(i))
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	}, time.Second, 5*time.Millisecond)
	stop()

	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, got)
}

func TestPoolQueueFull(t *testing.T) {
	p := NewPool(1, 2, func(context.Context, int) {}, logging.New(nil, "silent"))

	require.NoError(t, p.Submit(1))
	require.NoError(t, p.Submit(2))
	assert.ErrorIs(t, p.Submit(3), ErrQueueFull)
	assert.Equal(t, 2, p.Pending())
}

func TestPoolDrainsOnShutdown(t *testing.T) {
	var handled atomic.Int32
	release := make(chan struct{})
	p := NewPool(1, 10, func(ctx context.Context, _ int) {
		<-release
		assert.NoError(t, ctx.Err())
		handled.Add(1)
	}, logging.New(nil, "silent"))

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Submit(i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	cancel()
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}
	assert.Equal(t, int32(3), handled.Load())
	assert.ErrorIs(t, p.Submit(4), ErrPoolClosed)
}

func TestPoolRecoversPanics(t *testing.T) {
	var handled atomic.Int32
	p := NewPool(1, 10, func(_ context.Context, n int) {
		if n == 0 {
			panic("boom")
		}
		handled.Add(1)
	}, logging.New(nil, "silent"))

	stop := runPool(t, p)
	defer stop()
	require.NoError(t, p.Submit(0))
	require.NoError(t, p.Submit(1))

	assert.Eventually(t, func() bool { return handled.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestNewPoolClampsSizes(t *testing.T) {
	p := NewPool(0, -1, func(context.Context, int) {}, logging.New(nil, "silent"))
	assert.Equal(t, 1, p.workers)
	assert.ErrorIs(t, p.Submit(1), ErrQueueFull)
}
