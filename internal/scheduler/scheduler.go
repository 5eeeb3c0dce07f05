// Package scheduler runs one-shot jobs at arbitrary wall-clock times.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorkbot/gork/internal/logging"
)

// ErrDuplicateJob is returned when scheduling an id that is still pending.
var ErrDuplicateJob = errors.New("scheduler: duplicate job id")

// Func is the callback a job runs when it fires.
type Func func(ctx context.Context) error

// JobInfo describes a pending job.
type JobInfo struct {
	ID     string    `json:"id"`
	FireAt time.Time `json:"fireAt"`
}

// Scheduler keeps pending jobs ordered by fire time and fires them from a
// ticker loop. Every firing runs in its own goroutine so a slow callback
// never holds back the fire time of another job.
type Scheduler struct {
	mu    sync.Mutex
	queue jobQueue
	byID  map[string]*job
	seq   uint64

	tick    time.Duration
	sem     chan struct{}
	now     func() time.Time
	log     *logging.Logger
	onFired func(id string, err error)

	runCtx   context.Context
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTick sets the trigger loop interval.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithMaxConcurrent bounds how many callbacks run at once. Firing is never
// delayed by the bound, only execution.
func WithMaxConcurrent(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithFiredHook registers a function called after every callback returns.
func WithFiredHook(fn func(id string, err error)) Option {
	return func(s *Scheduler) { s.onFired = fn }
}

// New creates a Scheduler. The loop does not run until Start.
func New(log *logging.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		byID:   make(map[string]*job),
		tick:   time.Second,
		sem:    make(chan struct{}, 16),
		now:    time.Now,
		log:    log.Sub("scheduler"),
		runCtx: context.Background(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule registers run to fire at fireAt. A fireAt in the past fires on
// the next tick.
func (s *Scheduler) Schedule(id string, fireAt time.Time, run Func) error {
	if run == nil {
		return fmt.Errorf("scheduler: job %q has no callback", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, id)
	}
	s.seq++
	j := &job{id: id, fireAt: fireAt, run: run, seq: s.seq}
	heap.Push(&s.queue, j)
	s.byID[id] = j

	s.log.Debug().Str("job", id).Time("fire_at", fireAt).Msg("job scheduled")
	return nil
}

// Cancel removes a pending job. It returns false when the job is unknown or
// has already fired.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, j.index)
	delete(s.byID, id)

	s.log.Debug().Str("job", id).Msg("job cancelled")
	return true
}

// Pending lists pending jobs ordered by fire time.
func (s *Scheduler) Pending() []JobInfo {
	s.mu.Lock()
	snapshot := make(jobQueue, len(s.queue))
	for i, j := range s.queue {
		snapshot[i] = &job{id: j.id, fireAt: j.fireAt, seq: j.seq}
	}
	s.mu.Unlock()

	heap.Init(&snapshot)
	out := make([]JobInfo, 0, len(snapshot))
	for snapshot.Len() > 0 {
		j := heap.Pop(&snapshot).(*job)
		out = append(out, JobInfo{ID: j.id, FireAt: j.fireAt})
	}
	return out
}

// Len returns the number of pending jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Start runs the trigger loop until ctx is cancelled or Stop is called, then
// waits for in-flight callbacks to return.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	s.log.Info().Dur("tick", s.tick).Int("pending", s.Len()).Msg("scheduler started")
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopping")
			s.wg.Wait()
			return nil
		case <-s.stopCh:
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.fireDue(s.now())
		}
	}
}

// Stop halts the trigger loop. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// fireDue pops every job due at now and launches its callback.
func (s *Scheduler) fireDue(now time.Time) int {
	s.mu.Lock()
	var due []*job
	for s.queue.Len() > 0 && !s.queue[0].fireAt.After(now) {
		j := heap.Pop(&s.queue).(*job)
		delete(s.byID, j.id)
		due = append(due, j)
	}
	ctx := s.runCtx
	s.mu.Unlock()

	for _, j := range due {
		s.wg.Add(1)
		go s.execute(ctx, j)
	}
	return len(due)
}

func (s *Scheduler) execute(ctx context.Context, j *job) {
	defer s.wg.Done()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.log.Warn().Str("job", j.id).Msg("job abandoned on shutdown")
		return
	}
	defer func() { <-s.sem }()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error().Str("job", j.id).Interface("panic", r).Msg("job panicked")
		}
		if s.onFired != nil {
			s.onFired(j.id, err)
		}
	}()

	s.log.Debug().Str("job", j.id).Dur("lateness", s.now().Sub(j.fireAt)).Msg("job firing")
	err = j.run(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("job", j.id).Msg("job failed")
	}
}
