package view

import (
	"context"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"

	"github.com/matzehuels/topoview/pkg/animate"
	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/fonts"
	"github.com/matzehuels/topoview/pkg/interact"
	"github.com/matzehuels/topoview/pkg/layout"
	"github.com/matzehuels/topoview/pkg/observability"
	"github.com/matzehuels/topoview/pkg/render"
	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/topology"
)

// Frame describes one drawn frame.
type Frame struct {
	Mode  Mode
	Stats render.Stats
	At    time.Time
}

// Option configures a Visualizer.
type Option func(*Visualizer)

// WithScheduler sets the frame scheduler of the pseudo-3D loop. The
// default is a 60 fps timer scheduler.
func WithScheduler(s animate.Scheduler) Option {
	return func(v *Visualizer) { v.sched = s }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(v *Visualizer) { v.logger = l }
}

// WithRenderOptions overrides the renderer options.
func WithRenderOptions(o render.Options) Option {
	return func(v *Visualizer) { v.opts = o }
}

// WithHitRadius overrides the click hit radius.
func WithHitRadius(r float64) Option {
	return func(v *Visualizer) { v.hitRadius = r }
}

// Visualizer renders a topology and handles selection.
type Visualizer struct {
	surface   *render.Surface
	sched     animate.Scheduler
	ctrl      *interact.Controller
	logger    *log.Logger
	opts      render.Options
	hitRadius float64

	// mu serialises control operations: snapshot changes, mode switches
	// and Close.
	mu        sync.Mutex
	loop      *animate.Loop
	raw       *topology.Snapshot
	laidOutAt [2]int
	closed    bool
	unsub     func()

	mode  atomic.Value // Mode
	scene atomic.Pointer[topology.Snapshot]
	stats atomic.Pointer[Frame]

	obsMu     sync.Mutex
	observers map[int]func(Frame)
	nextObs   int
}

// New creates a visualizer drawing into a surface sized by container.
func New(container render.Container, opts ...Option) *Visualizer {
	v := &Visualizer{
		surface:   render.NewSurface(container),
		logger:    log.New(io.Discard),
		observers: make(map[int]func(Frame)),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.sched == nil {
		v.sched = animate.NewTimerScheduler(animate.DefaultFPS)
	}
	var copts []interact.Option
	if v.hitRadius > 0 {
		copts = append(copts, interact.WithHitRadius(v.hitRadius))
	} else if v.opts.NodeRadius > 0 {
		copts = append(copts, interact.WithHitRadius(v.opts.NodeRadius))
	}
	v.ctrl = interact.New(copts...)
	v.mode.Store(Mode2D)
	v.unsub = v.ctrl.Subscribe(func(interact.Event) { v.selectionChanged() })
	return v
}

// Controller returns the interaction controller.
func (v *Visualizer) Controller() *interact.Controller { return v.ctrl }

// Surface returns the drawing surface.
func (v *Visualizer) Surface() *render.Surface { return v.surface }

// Mode returns the current view mode.
func (v *Visualizer) Mode() Mode { return v.mode.Load().(Mode) }

// Scene returns the laid-out snapshot currently drawn, or nil.
func (v *Visualizer) Scene() *topology.Snapshot { return v.scene.Load() }

// LastFrame returns the most recent frame, if any.
func (v *Visualizer) LastFrame() (Frame, bool) {
	f := v.stats.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// Ready returns a CANVAS_UNAVAILABLE error while the container has no
// drawable size.
func (v *Visualizer) Ready() error {
	if !v.surface.Ready() {
		w, h := v.surface.Size()
		return errors.New(errors.ErrCodeCanvasUnavailable, "canvas has no drawable size (%dx%d)", w, h)
	}
	return nil
}

// LoopActive reports whether a pseudo-3D loop is running.
func (v *Visualizer) LoopActive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loop.Running()
}

// SetSnapshot installs a new node set. The running loop, if any, is
// stopped first; the snapshot is laid out for the current canvas size and
// drawn in the current mode.
func (v *Visualizer) SetSnapshot(s *topology.Snapshot) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.stopLoopLocked()
	v.raw = s
	laid := v.layoutLocked()
	mode := v.Mode()
	if mode == Mode3D {
		v.startLoopLocked()
	}
	v.mu.Unlock()

	v.ctrl.SetNodes(laid)
	if mode == Mode2D {
		_ = v.Redraw()
	}
}

// Follow applies the refresher's current snapshot and every later one.
// Failed refreshes leave the scene alone. The returned function stops
// following.
func (v *Visualizer) Follow(r *snapshot.Refresher) (cancel func()) {
	if cur := r.Current(); cur != nil {
		v.SetSnapshot(cur)
	}
	return r.Subscribe(func(s *topology.Snapshot, err error) {
		if err == nil {
			v.SetSnapshot(s)
		}
	})
}

// SetMode switches between 2D and pseudo-3D. Entering 3D starts exactly
// one loop; leaving it stops that loop before the 2D frame is drawn.
func (v *Visualizer) SetMode(m Mode) error {
	if m != Mode2D && m != Mode3D {
		return errors.New(errors.ErrCodeInvalidMode, "unknown mode %q", m)
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return errors.New(errors.ErrCodeCanvasUnavailable, "visualizer closed")
	}
	if m == v.Mode() {
		v.mu.Unlock()
		return nil
	}
	v.stopLoopLocked()
	v.mode.Store(m)
	var relaid *topology.Snapshot
	if m == Mode3D {
		relaid = v.startLoopLocked()
	}
	v.mu.Unlock()

	if relaid != nil {
		v.ctrl.SetNodes(relaid)
	}

	v.logger.Debug("view mode changed", "mode", m)
	if m == Mode2D {
		return v.Redraw()
	}
	return nil
}

// Click forwards a canvas-local click to the controller.
func (v *Visualizer) Click(x, y float64) bool { return v.ctrl.Click(x, y) }

// Select selects a node by id (detail panel navigation).
func (v *Visualizer) Select(id string) error { return v.ctrl.Select(id) }

// ClearSelection drops the selection.
func (v *Visualizer) ClearSelection() { v.ctrl.Clear() }

// Redraw draws one 2D frame now. It re-queries the canvas size and lays
// the scene out again when the size changed. In 3D mode the loop owns the
// canvas and Redraw does nothing.
func (v *Visualizer) Redraw() error {
	if v.Mode() != Mode2D {
		return nil
	}
	if err := v.Ready(); err != nil {
		return err
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	w, h := v.surface.Size()
	var relaid *topology.Snapshot
	if v.raw != nil && v.laidOutAt != [2]int{w, h} {
		relaid = v.layoutLocked()
	}
	v.mu.Unlock()
	if relaid != nil {
		v.ctrl.SetNodes(relaid)
	}

	// The mode may have changed while unlocked; a loop started meanwhile
	// owns the canvas.
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.Mode() != Mode2D {
		return nil
	}
	v.drawFlat()
	return nil
}

// PNG encodes the last drawn frame.
func (v *Visualizer) PNG() ([]byte, error) { return v.surface.PNG() }

// OnFrame registers fn to run after every drawn frame, on the drawing
// goroutine. It returns a function that removes it.
func (v *Visualizer) OnFrame(fn func(Frame)) (cancel func()) {
	v.obsMu.Lock()
	defer v.obsMu.Unlock()
	id := v.nextObs
	v.nextObs++
	v.observers[id] = fn
	return func() {
		v.obsMu.Lock()
		delete(v.observers, id)
		v.obsMu.Unlock()
	}
}

// Close stops the loop and detaches from the controller. Later calls to
// SetSnapshot, SetMode and Redraw do nothing.
func (v *Visualizer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.stopLoopLocked()
	v.unsub()
}

// ===== internals =====

func (v *Visualizer) layoutLocked() *topology.Snapshot {
	w, h := v.surface.Size()
	cfg := layout.Default
	if w > 0 && h > 0 {
		cfg = layout.ForSize(float64(w), float64(h))
	}
	laid := layout.Apply(v.raw, cfg)
	v.laidOutAt = [2]int{w, h}
	v.scene.Store(laid)
	return laid
}

func (v *Visualizer) selectionChanged() {
	if v.Mode() == Mode2D {
		_ = v.Redraw()
	}
}

// drawFlat draws the scene once. Callers hold v.mu, so frame observers
// must not call back into locking methods.
func (v *Visualizer) drawFlat() {
	snap := v.scene.Load()
	sel := v.ctrl.Selected()
	var stats render.Stats
	opts := v.opts
	ok := v.surface.Draw(func(dc *gg.Context, fc *fonts.Cache) {
		opts.Fonts = fc
		stats = render.DrawFlat(dc, render.Scene{Snapshot: snap, Selected: sel}, opts)
	})
	if ok {
		v.emit(Frame{Mode: Mode2D, Stats: stats, At: time.Now()})
	}
}

// startLoopLocked queries the canvas size once and starts the loop with
// it. It returns the new scene when the size change forced a re-layout;
// the caller hands it to the controller after unlocking.
func (v *Visualizer) startLoopLocked() (relaid *topology.Snapshot) {
	w, h := v.surface.Size()
	center := topology.Point{X: float64(w) / 2, Y: float64(h) / 2}
	width := float64(w)
	if v.raw != nil && v.laidOutAt != [2]int{w, h} {
		relaid = v.layoutLocked()
	}

	v.loop = animate.Start(v.sched, func(now time.Time) {
		snap := v.scene.Load()
		sel := v.ctrl.Selected()
		opts := v.opts
		opts.Pulse = 0.5 + 0.5*math.Sin(float64(now.UnixMilli())/250)
		var stats render.Stats
		ok := v.surface.Draw(func(dc *gg.Context, fc *fonts.Cache) {
			opts.Fonts = fc
			stats = render.DrawPerspective(dc, render.Scene{Snapshot: snap, Selected: sel}, center, width, opts)
		})
		if ok {
			v.emit(Frame{Mode: Mode3D, Stats: stats, At: now})
		}
	})
	observability.Animation().OnLoopStart(context.Background(), v.loop.ID().String())
	v.logger.Debug("perspective loop started", "loop", v.loop.ID())
	return relaid
}

func (v *Visualizer) stopLoopLocked() {
	if v.loop == nil {
		return
	}
	l := v.loop
	v.loop = nil
	if l.Stop() {
		observability.Animation().OnLoopStop(context.Background(), l.ID().String(), l.Frames(), l.Panics())
		v.logger.Debug("perspective loop stopped", "loop", l.ID(), "frames", l.Frames())
	}
}

func (v *Visualizer) emit(f Frame) {
	v.stats.Store(&f)
	v.obsMu.Lock()
	fns := make([]func(Frame), 0, len(v.observers))
	for _, fn := range v.observers {
		fns = append(fns, fn)
	}
	v.obsMu.Unlock()
	for _, fn := range fns {
		fn(f)
	}
}
