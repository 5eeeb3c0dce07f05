package pipeline

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/gorkbot/gork/internal/logging"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("pipeline: queue full")

	// ErrPoolClosed is returned by Submit after the pool stopped.
	ErrPoolClosed = errors.New("pipeline: pool closed")
)

// Pool runs jobs on a fixed number of workers fed by a bounded queue.
// Submit never blocks; callers shed load on ErrQueueFull.
type Pool[J any] struct {
	jobs    chan J
	workers int
	handle  func(context.Context, J)
	log     *logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a pool. It does nothing until Run is called, but Submit
// may queue jobs before that.
func NewPool[J any](workers, queueSize int, handle func(context.Context, J), log *logging.Logger) *Pool[J] {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool[J]{
		jobs:    make(chan J, queueSize),
		workers: workers,
		handle:  handle,
		log:     log.Sub("pool"),
	}
}

// Submit queues a job without waiting.
func (p *Pool[J]) Submit(job J) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs.
func (p *Pool[J]) Pending() int { return len(p.jobs) }

// Run starts the workers and blocks until ctx is cancelled. Jobs already
// queued at that point are still drained, with a context that is no longer
// tied to ctx's cancellation.
func (p *Pool[J]) Run(ctx context.Context) error {
	drainCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range p.jobs {
				p.run(drainCtx, job)
			}
		}()
	}
	p.log.Info().Int("workers", p.workers).Int("queue", cap(p.jobs)).Msg("worker pool started")

	<-ctx.Done()

	p.mu.Lock()
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	wg.Wait()
	p.log.Info().Msg("worker pool stopped")
	return nil
}

func (p *Pool[J]) run(ctx context.Context, job J) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Str("stack", string(debug.Stack())).
				Msgf("job panic: %v", r)
		}
	}()
	p.handle(ctx, job)
}
