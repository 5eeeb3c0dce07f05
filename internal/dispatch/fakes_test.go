package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/scheduler"
)

type sent struct {
	Kind    string
	To      string
	Text    string
	ReplyTo string
	Media   domain.Media
}

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sent
	media    map[string]domain.Media
	pictures map[string]domain.Media
	failSend error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{media: map[string]domain.Media{}, pictures: map[string]domain.Media{}}
}

func (f *fakeMessenger) record(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		return f.failSend
	}
	f.sent = append(f.sent, s)
	return nil
}

func (f *fakeMessenger) Sent() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

func (f *fakeMessenger) SendText(_ context.Context, to, text, replyTo string) error {
	return f.record(sent{Kind: "text", To: to, Text: text, ReplyTo: replyTo})
}

func (f *fakeMessenger) SendImage(_ context.Context, to string, m domain.Media, caption, replyTo string) error {
	return f.record(sent{Kind: "image", To: to, Text: caption, ReplyTo: replyTo, Media: m})
}

func (f *fakeMessenger) SendVideo(_ context.Context, to string, m domain.Media, caption, replyTo string) error {
	return f.record(sent{Kind: "video", To: to, Text: caption, ReplyTo: replyTo, Media: m})
}

func (f *fakeMessenger) SendSticker(_ context.Context, to string, m domain.Media) error {
	return f.record(sent{Kind: "sticker", To: to, Media: m})
}

func (f *fakeMessenger) SendAudio(_ context.Context, to string, m domain.Media) error {
	return f.record(sent{Kind: "audio", To: to, Media: m})
}

func (f *fakeMessenger) FetchMedia(_ context.Context, id string) (domain.Media, error) {
	m, ok := f.media[id]
	if !ok {
		return domain.Media{}, fmt.Errorf("no media %s", id)
	}
	return m, nil
}

func (f *fakeMessenger) ProfilePicture(_ context.Context, number string) (domain.Media, error) {
	m, ok := f.pictures[number]
	if !ok {
		return domain.Media{}, fmt.Errorf("no picture for %s", number)
	}
	return m, nil
}

type fakeHistory struct {
	mu    sync.Mutex
	lines []domain.StoredMessage
}

func (f *fakeHistory) Append(_ context.Context, m domain.StoredMessage) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = int64(len(f.lines) + 1)
	f.lines = append(f.lines, m)
	return m.ID, nil
}

func (f *fakeHistory) Recent(_ context.Context, chatID string, limit int) ([]domain.StoredMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.StoredMessage
	for _, l := range f.lines {
		if l.ChatID == chatID {
			out = append(out, l)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeReminders struct {
	mu   sync.Mutex
	rows map[int64]*domain.Reminder
	next int64
}

func newFakeReminders() *fakeReminders {
	return &fakeReminders{rows: map[int64]*domain.Reminder{}}
}

func (f *fakeReminders) Create(_ context.Context, r domain.Reminder) (domain.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	r.ID = f.next
	r.CreatedAt = time.Now()
	cp := r
	f.rows[r.ID] = &cp
	return r, nil
}

func (f *fakeReminders) PendingFor(_ context.Context, remoteID string) ([]domain.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reminder
	for id := int64(1); id <= f.next; id++ {
		r, ok := f.rows[id]
		if ok && r.RemoteID == remoteID && r.Status() == domain.ReminderPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReminders) MarkFired(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status() != domain.ReminderPending {
		return false, nil
	}
	now := time.Now()
	r.FiredAt = &now
	return true, nil
}

func (f *fakeReminders) Cancel(_ context.Context, id int64, remoteID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status() != domain.ReminderPending || (remoteID != "" && r.RemoteID != remoteID) {
		return false, nil
	}
	now := time.Now()
	r.CancelledAt = &now
	return true, nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	jobs      map[string]scheduler.Func
	at        map[string]time.Time
	cancelled []string
	err       error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[string]scheduler.Func{}, at: map[string]time.Time{}}
}

func (f *fakeScheduler) Schedule(id string, fireAt time.Time, run scheduler.Func) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.jobs[id]; ok {
		return scheduler.ErrDuplicateJob
	}
	f.jobs[id] = run
	f.at[id] = fireAt
	return nil
}

func (f *fakeScheduler) Cancel(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jobs[id]
	delete(f.jobs, id)
	f.cancelled = append(f.cancelled, id)
	return ok
}

func (f *fakeScheduler) job(id string) scheduler.Func {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id]
}
