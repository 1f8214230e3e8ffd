package animate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Loop is the handle of a running redraw loop. It owns at most one
// outstanding frame on its scheduler.
type Loop struct {
	id    uuid.UUID
	sched Scheduler
	draw  FrameFunc

	mu      sync.Mutex
	frame   FrameID
	stopped bool

	// drawing is held for the duration of each draw so Stop can wait for
	// an in-flight frame.
	drawing sync.Mutex

	frames atomic.Uint64
	panics atomic.Uint64
}

// Start requests the first frame of a loop that calls draw once per frame
// and re-requests itself afterwards. A panic inside draw is recovered and
// counted; the loop keeps running.
func Start(sched Scheduler, draw FrameFunc) *Loop {
	l := &Loop{id: uuid.New(), sched: sched, draw: draw}
	l.mu.Lock()
	l.frame = sched.RequestFrame(l.tick)
	l.mu.Unlock()
	return l
}

func (l *Loop) tick(now time.Time) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.frame = 0
	l.drawing.Lock()
	l.mu.Unlock()

	l.run(now)
	l.drawing.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.stopped {
		l.frame = l.sched.RequestFrame(l.tick)
	}
}

func (l *Loop) run(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
		}
	}()
	l.draw(now)
	l.frames.Add(1)
}

// Stop cancels the pending frame and prevents any further one. It waits
// for a draw in progress to return, so it must not be called from inside
// the draw function. Stop consumes the handle: it returns false when the
// loop was already stopped.
func (l *Loop) Stop() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.stopped = true
	if l.frame != 0 {
		l.sched.CancelFrame(l.frame)
		l.frame = 0
	}
	l.mu.Unlock()

	// Wait out a draw that started before the stop.
	l.drawing.Lock()
	l.drawing.Unlock()
	return true
}

// ID returns the handle's unique id.
func (l *Loop) ID() uuid.UUID { return l.id }

// Running reports whether Stop has not been called yet.
func (l *Loop) Running() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.stopped
}

// Frames returns the number of completed draws.
func (l *Loop) Frames() uint64 { return l.frames.Load() }

// Panics returns the number of draws that panicked.
func (l *Loop) Panics() uint64 { return l.panics.Load() }
