package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScheduler(opts ...Option) *Scheduler {
	opts = append([]Option{WithTick(10 * time.Millisecond)}, opts...)
	return New(logging.New(nil, "silent"), opts...)
}

func startScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func noop(context.Context) error { return nil }

func TestScheduleDuplicate(t *testing.T) {
	s := testScheduler()
	fireAt := time.Now().Add(time.Hour)

	require.NoError(t, s.Schedule("R1", fireAt, noop))
	err := s.Schedule("R1", fireAt, noop)
	assert.ErrorIs(t, err, ErrDuplicateJob)
	assert.Equal(t, 1, s.Len())
}

func TestScheduleNilCallback(t *testing.T) {
	s := testScheduler()
	assert.Error(t, s.Schedule("x", time.Now(), nil))
	assert.Equal(t, 0, s.Len())
}

func TestCancel(t *testing.T) {
	s := testScheduler()
	assert.False(t, s.Cancel("missing"))

	require.NoError(t, s.Schedule("a", time.Now().Add(time.Hour), noop))
	require.NoError(t, s.Schedule("b", time.Now().Add(2*time.Hour), noop))
	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a"))

	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)

	// The id can be reused once cancelled.
	require.NoError(t, s.Schedule("a", time.Now().Add(time.Hour), noop))
}

func TestPendingOrder(t *testing.T) {
	s := testScheduler()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Schedule("late", base.Add(3*time.Hour), noop))
	require.NoError(t, s.Schedule("early", base.Add(time.Hour), noop))
	require.NoError(t, s.Schedule("tie-first", base.Add(2*time.Hour), noop))
	require.NoError(t, s.Schedule("tie-second", base.Add(2*time.Hour), noop))

	var ids []string
	for _, j := range s.Pending() {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"early", "tie-first", "tie-second", "late"}, ids)
}

func TestFireDuePopsOnlyDueJobs(t *testing.T) {
	s := testScheduler()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	var fired sync.Map
	mark := func(id string) Func {
		return func(context.Context) error {
			fired.Store(id, true)
			return nil
		}
	}
	require.NoError(t, s.Schedule("past", base.Add(-time.Minute), mark("past")))
	require.NoError(t, s.Schedule("now", base, mark("now")))
	require.NoError(t, s.Schedule("future", base.Add(time.Minute), mark("future")))

	assert.Equal(t, 2, s.fireDue(base))
	s.wg.Wait()

	_, ok := fired.Load("past")
	assert.True(t, ok)
	_, ok = fired.Load("now")
	assert.True(t, ok)
	_, ok = fired.Load("future")
	assert.False(t, ok)

	assert.False(t, s.Cancel("past"))
	assert.Equal(t, 1, s.Len())
}

func TestPastJobFiresOnNextTick(t *testing.T) {
	s := testScheduler()
	fired := make(chan struct{})
	require.NoError(t, s.Schedule("old", time.Now().Add(-time.Hour), func(context.Context) error {
		close(fired)
		return nil
	}))

	startScheduler(t, s)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("past-due job did not fire")
	}
}

func TestJobFiresExactlyOnce(t *testing.T) {
	s := testScheduler()
	var count atomic.Int32
	require.NoError(t, s.Schedule("R1", time.Now().Add(100*time.Millisecond), func(context.Context) error {
		count.Add(1)
		return nil
	}))

	startScheduler(t, s)

	require.Eventually(t, func() bool { return count.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
	assert.False(t, s.Cancel("R1"))
}

func TestCancelledJobNeverFires(t *testing.T) {
	s := testScheduler()
	var count atomic.Int32
	require.NoError(t, s.Schedule("c", time.Now().Add(50*time.Millisecond), func(context.Context) error {
		count.Add(1)
		return nil
	}))
	require.True(t, s.Cancel("c"))

	startScheduler(t, s)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}

func TestSlowJobDoesNotBlockSiblings(t *testing.T) {
	s := testScheduler(WithMaxConcurrent(4))
	release := make(chan struct{})
	fastDone := make(chan struct{})

	require.NoError(t, s.Schedule("slow", time.Now(), func(ctx context.Context) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}))
	require.NoError(t, s.Schedule("fast", time.Now(), func(context.Context) error {
		close(fastDone)
		return nil
	}))

	startScheduler(t, s)

	select {
	case <-fastDone:
	case <-time.After(time.Second):
		t.Fatal("fast job blocked by slow job")
	}
	close(release)
}

func TestFailuresAndPanicsAreContained(t *testing.T) {
	var mu sync.Mutex
	results := map[string]error{}
	s := testScheduler(WithFiredHook(func(id string, err error) {
		mu.Lock()
		results[id] = err
		mu.Unlock()
	}))

	require.NoError(t, s.Schedule("boom", time.Now(), func(context.Context) error { panic("kaboom") }))
	require.NoError(t, s.Schedule("fail", time.Now(), func(context.Context) error { return errors.New("send failed") }))
	require.NoError(t, s.Schedule("ok", time.Now(), noop))

	startScheduler(t, s)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 3
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorContains(t, results["boom"], "kaboom")
	assert.EqualError(t, results["fail"], "send failed")
	assert.NoError(t, results["ok"])
}

func TestStop(t *testing.T) {
	s := testScheduler()
	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	s.Stop()
	s.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

type fakeSource struct {
	reminders []domain.Reminder
	err       error
}

func (f *fakeSource) PendingReminders(context.Context) ([]domain.Reminder, error) {
	return f.reminders, f.err
}

func TestRehydrate(t *testing.T) {
	s := testScheduler()
	now := time.Now()
	src := &fakeSource{reminders: []domain.Reminder{
		{ID: 1, RemindAt: now.Add(-time.Hour), Message: "overdue"},
		{ID: 2, RemindAt: now.Add(time.Hour), Message: "later"},
	}}
	require.NoError(t, s.Schedule("2", now.Add(time.Hour), noop))

	var built []int64
	n, err := Rehydrate(context.Background(), s, src, func(r domain.Reminder) Func {
		built = append(built, r.ID)
		return noop
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1, 2}, built)

	pending := s.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "1", pending[0].ID)
}

func TestRehydrateSourceError(t *testing.T) {
	s := testScheduler()
	_, err := Rehydrate(context.Background(), s, &fakeSource{err: errors.New("db down")}, func(domain.Reminder) Func { return noop })
	assert.ErrorContains(t, err, "db down")
}

func TestReminderJobID(t *testing.T) {
	assert.Equal(t, "42", ReminderJobID(42))
}
