// Package interact maps pointer input onto the laid-out topology and keeps
// the selection that drives the detail panel and edge highlighting.
//
// The controller is a small state machine:
//
//	NoSelection  --hit-->  Selected(n)
//	Selected(n)  --hit-->  Selected(m)
//	Selected(n)  --miss--> NoSelection
//
// [Controller.Select] enters Selected(m) directly, for click-through
// navigation from the detail panel's connection list.
package interact

import (
	"sync"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/topology"
)

// DefaultHitRadius matches the drawn node radius.
const DefaultHitRadius = 20.0

// Cause says what changed the selection.
type Cause string

const (
	CauseClick   Cause = "click"
	CauseSelect  Cause = "select"
	CauseClear   Cause = "clear"
	CauseRefresh Cause = "refresh"
)

// Event is published whenever the selection changes.
type Event struct {
	// Selected is the new selection, nil when cleared.
	Selected *Detail `json:"selected"`
	// Previous is the id of the node selected before, if any.
	Previous  string `json:"previous,omitempty"`
	Cause     Cause  `json:"cause"`
	PanelOpen bool   `json:"panel_open"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithHitRadius overrides DefaultHitRadius.
func WithHitRadius(r float64) Option {
	return func(c *Controller) {
		if r > 0 {
			c.radius = r
		}
	}
}

// Controller holds the current scene and selection. It is safe for
// concurrent use; subscribers are called synchronously, outside the lock.
type Controller struct {
	radius float64

	mu       sync.Mutex
	snap     *topology.Snapshot
	selected string
	open     bool
	subs     map[int]func(Event)
	nextSub  int
}

// New creates a controller with no scene and no selection.
func New(opts ...Option) *Controller {
	c := &Controller{radius: DefaultHitRadius, subs: make(map[int]func(Event))}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HitRadius returns the configured hit radius.
func (c *Controller) HitRadius() float64 { return c.radius }

// SetNodes installs a new laid-out snapshot. The selection survives when
// its id still exists and is cleared otherwise.
func (c *Controller) SetNodes(snap *topology.Snapshot) {
	c.mu.Lock()
	c.snap = snap
	prev := c.selected
	if prev == "" {
		c.mu.Unlock()
		return
	}
	if snap.Has(prev) {
		ev := c.eventLocked(prev, CauseRefresh)
		c.mu.Unlock()
		c.publish(ev)
		return
	}
	c.selected, c.open = "", false
	ev := c.eventLocked(prev, CauseRefresh)
	c.mu.Unlock()
	c.publish(ev)
}

// HitTest returns the first node in list order whose position lies within
// the hit radius of (x, y).
func (c *Controller) HitTest(x, y float64) (topology.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return hitTest(c.snap, topology.Point{X: x, Y: y}, c.radius)
}

func hitTest(snap *topology.Snapshot, p topology.Point, radius float64) (topology.Node, bool) {
	if snap == nil {
		return topology.Node{}, false
	}
	for _, n := range snap.Nodes {
		if n.Position != nil && n.Position.Dist(p) <= radius {
			return n, true
		}
	}
	return topology.Node{}, false
}

// Click handles a pointer click in canvas-local pixels. A hit selects the
// node and opens the panel; a miss clears both. It reports whether a node
// was hit.
func (c *Controller) Click(x, y float64) bool {
	c.mu.Lock()
	n, hit := hitTest(c.snap, topology.Point{X: x, Y: y}, c.radius)
	prev := c.selected
	if hit {
		c.selected, c.open = n.ID, true
	} else {
		c.selected, c.open = "", false
	}
	changed := prev != c.selected
	ev := c.eventLocked(prev, CauseClick)
	c.mu.Unlock()

	if changed {
		c.publish(ev)
	}
	return hit
}

// Select selects the node with the given id and opens the panel. Unknown
// ids return a NODE_NOT_FOUND error and leave the state unchanged.
func (c *Controller) Select(id string) error {
	c.mu.Lock()
	if !c.snap.Has(id) {
		c.mu.Unlock()
		return errors.New(errors.ErrCodeNodeNotFound, "node %q not found", id)
	}
	prev := c.selected
	c.selected, c.open = id, true
	ev := c.eventLocked(prev, CauseSelect)
	c.mu.Unlock()

	if prev != id {
		c.publish(ev)
	}
	return nil
}

// Clear drops the selection and closes the panel.
func (c *Controller) Clear() {
	c.mu.Lock()
	prev := c.selected
	c.selected, c.open = "", false
	ev := c.eventLocked(prev, CauseClear)
	c.mu.Unlock()

	if prev != "" {
		c.publish(ev)
	}
}

// Selected returns the selected node id, or "".
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// PanelOpen reports whether the detail panel should be shown.
func (c *Controller) PanelOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Detail returns the detail payload of the selected node.
func (c *Controller) Detail() (*Detail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == "" {
		return nil, false
	}
	d, ok := NewDetail(c.snap, c.selected)
	return d, ok
}

// Subscribe registers fn for selection changes and returns a function
// that removes it.
func (c *Controller) Subscribe(fn func(Event)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) eventLocked(prev string, cause Cause) Event {
	ev := Event{Previous: prev, Cause: cause, PanelOpen: c.open}
	if c.selected != "" {
		ev.Selected, _ = NewDetail(c.snap, c.selected)
	}
	return ev
}

func (c *Controller) publish(ev Event) {
	c.mu.Lock()
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
