package gateway

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/gorkbot/gork/internal/logging"
)

const (
	// subscriberQueue is how many frames may wait for a slow operator
	// before events start being dropped for that connection.
	subscriberQueue = 64
	writeTimeout    = 10 * time.Second
)

// Subscriber is an authenticated operator connection on the event feed.
// All writes go through one queue drained by a single writer goroutine,
// so publishing an event never waits on a socket.
type Subscriber struct {
	ConnID      string
	Info        ClientInfo
	ConnectedAt time.Time

	conn    *websocket.Conn
	events  map[string]bool // nil relays everything
	out     chan Frame
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
	log     *logging.Logger
}

// NewSubscriber wraps an authenticated connection. events narrows the feed
// to the named hook events; an empty list subscribes to all of them. The
// writer is not running until Run is called.
func NewSubscriber(conn *websocket.Conn, info ClientInfo, events []string, log *logging.Logger) *Subscriber {
	s := &Subscriber{
		ConnID:      uuid.New().String(),
		Info:        info,
		ConnectedAt: time.Now(),
		conn:        conn,
		out:         make(chan Frame, subscriberQueue),
		done:        make(chan struct{}),
		log:         log,
	}
	if len(events) > 0 {
		s.events = make(map[string]bool, len(events))
		for _, e := range events {
			s.events[e] = true
		}
	}
	return s
}

// Wants reports whether the subscriber asked for event.
func (s *Subscriber) Wants(event string) bool {
	return s.events == nil || s.events[event]
}

// Dropped returns how many events were discarded because the queue was full.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// Run writes queued frames to the socket until the subscriber is closed or
// a write fails.
func (s *Subscriber) Run() {
	for {
		select {
		case f := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(f); err != nil {
				s.log.Debug().Err(err).Str("connId", s.ConnID).Msg("feed write failed")
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Send queues a frame, waiting for room. Used for responses, which must
// not be lost while the connection is alive.
func (s *Subscriber) Send(frame Frame) error {
	select {
	case <-s.done:
		return ErrSubscriberClosed
	default:
	}
	select {
	case s.out <- frame:
		return nil
	case <-s.done:
		return ErrSubscriberClosed
	}
}

// offer queues an event frame without waiting. A full queue drops it.
func (s *Subscriber) offer(frame Frame) bool {
	select {
	case <-s.done:
		return false
	case s.out <- frame:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Respond sends a success response for the given request ID.
func (s *Subscriber) Respond(reqID string, payload any) error {
	f, err := NewResponse(reqID, payload)
	if err != nil {
		return err
	}
	return s.Send(f)
}

// RespondError sends an error response for the given request ID.
func (s *Subscriber) RespondError(reqID string, errShape ErrorShape) error {
	return s.Send(NewErrorResponse(reqID, errShape))
}

// ReadFrame reads the next frame from the socket.
func (s *Subscriber) ReadFrame() (Frame, error) {
	var f Frame
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		return f, err
	}
	err = json.Unmarshal(msg, &f)
	return f, err
}

// Close stops the writer and closes the socket. Safe to call more than once.
func (s *Subscriber) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}

// Feed fans hook events out to the connected subscribers.
type Feed struct {
	mu   sync.RWMutex
	subs map[string]*Subscriber
	log  *logging.Logger
}

// NewFeed creates a feed with no subscribers.
func NewFeed(log *logging.Logger) *Feed {
	return &Feed{subs: make(map[string]*Subscriber), log: log}
}

// Add registers a subscriber.
func (f *Feed) Add(s *Subscriber) {
	f.mu.Lock()
	f.subs[s.ConnID] = s
	f.mu.Unlock()
	f.log.Info().Str("connId", s.ConnID).Str("client", s.Info.ID).Msg("subscriber joined")
}

// Remove unregisters a subscriber, logging how many events it missed.
func (f *Feed) Remove(connID string) {
	f.mu.Lock()
	s, ok := f.subs[connID]
	delete(f.subs, connID)
	f.mu.Unlock()
	if ok {
		f.log.Info().Str("connId", connID).Int64("dropped", s.Dropped()).Msg("subscriber left")
	}
}

// Count returns the number of subscribers.
func (f *Feed) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Dropped sums the events discarded across current subscribers.
func (f *Feed) Dropped() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var n int64
	for _, s := range f.subs {
		n += s.Dropped()
	}
	return n
}

// Publish encodes the event once and offers it to every subscriber that
// wants it. It returns the number of subscribers that accepted the frame.
func (f *Feed) Publish(event string, payload any, seq int64) int {
	frame, err := NewEvent(event, payload, seq)
	if err != nil {
		f.log.Warn().Err(err).Str("event", event).Msg("encoding feed event")
		return 0
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	delivered := 0
	for _, s := range f.subs {
		if !s.Wants(event) {
			continue
		}
		if s.offer(frame) {
			delivered++
		} else {
			f.log.Debug().Str("connId", s.ConnID).Str("event", event).Msg("subscriber queue full, event dropped")
		}
	}
	return delivered
}

// CloseAll closes and forgets every subscriber.
func (f *Feed) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.subs {
		s.Close()
		delete(f.subs, id)
	}
}
