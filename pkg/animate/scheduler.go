package animate

import (
	"sync"
	"time"
)

// DefaultFPS is the frame rate used when none is configured.
const DefaultFPS = 60

// FrameID identifies a requested frame. The zero value is never issued.
type FrameID uint64

// FrameFunc is called once with the frame time.
type FrameFunc func(now time.Time)

// Scheduler queues one-shot frame callbacks.
type Scheduler interface {
	// RequestFrame queues fn for the next frame.
	RequestFrame(fn FrameFunc) FrameID
	// CancelFrame drops a queued callback. Unknown or already-run ids are
	// ignored.
	CancelFrame(id FrameID)
	// Pending returns the number of queued callbacks.
	Pending() int
}

// ===== TimerScheduler =====

// TimerScheduler fires each requested frame on its own timer, one frame
// interval after the request.
type TimerScheduler struct {
	interval time.Duration

	mu     sync.Mutex
	next   FrameID
	timers map[FrameID]*time.Timer
}

// NewTimerScheduler creates a scheduler running at fps frames per second.
// Non-positive values select DefaultFPS.
func NewTimerScheduler(fps int) *TimerScheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &TimerScheduler{
		interval: time.Second / time.Duration(fps),
		timers:   make(map[FrameID]*time.Timer),
	}
}

// Interval returns the time between frames.
func (s *TimerScheduler) Interval() time.Duration { return s.interval }

// RequestFrame implements Scheduler.
func (s *TimerScheduler) RequestFrame(fn FrameFunc) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.timers[id] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()
		if live {
			fn(time.Now())
		}
	})
	return id
}

// CancelFrame implements Scheduler.
func (s *TimerScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending implements Scheduler.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ===== ManualScheduler =====

// ManualScheduler queues frames until Step is called.
type ManualScheduler struct {
	mu    sync.Mutex
	next  FrameID
	queue []queued
}

type queued struct {
	id FrameID
	fn FrameFunc
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// RequestFrame implements Scheduler.
func (s *ManualScheduler) RequestFrame(fn FrameFunc) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.queue = append(s.queue, queued{id: s.next, fn: fn})
	return s.next
}

// CancelFrame implements Scheduler.
func (s *ManualScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.queue {
		if q.id == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// Pending implements Scheduler.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Step runs every callback queued before the call, in request order, and
// returns how many ran. Frames requested by those callbacks wait for the
// next Step.
func (s *ManualScheduler) Step(now time.Time) int {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, q := range batch {
		q.fn(now)
	}
	return len(batch)
}
