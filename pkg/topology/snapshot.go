package topology

import (
	"time"

	"github.com/matzehuels/topoview/pkg/cache"
	"github.com/matzehuels/topoview/pkg/errors"
)

// Snapshot is one complete node set as of a refresh. It is never mutated
// after construction; a refresh replaces the whole value.
type Snapshot struct {
	Nodes    []Node    `json:"nodes"`
	LoadedAt time.Time `json:"loaded_at"`
	Source   string    `json:"source,omitempty"`

	index map[string]int
}

// Option configures a snapshot built with [New].
type Option func(*Snapshot)

// WithSource records where the snapshot came from (file path, URL, collection).
func WithSource(src string) Option {
	return func(s *Snapshot) { s.Source = src }
}

// WithLoadedAt overrides the load timestamp (defaults to time.Now).
func WithLoadedAt(t time.Time) Option {
	return func(s *Snapshot) { s.LoadedAt = t }
}

// New builds a snapshot from raw node descriptors. The input is copied, its
// order is kept and every Position starts undefined. Use [Validate] first
// when the input is untrusted.
func New(nodes []Node, opts ...Option) *Snapshot {
	s := &Snapshot{
		Nodes:    make([]Node, len(nodes)),
		LoadedAt: time.Now(),
	}
	for i, n := range nodes {
		c := n.clone()
		c.Position = nil
		s.Nodes[i] = c
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buildIndex()
	return s
}

func (s *Snapshot) buildIndex() {
	s.index = make(map[string]int, len(s.Nodes))
	for i, n := range s.Nodes {
		if _, dup := s.index[n.ID]; !dup {
			s.index[n.ID] = i
		}
	}
}

// Validate checks node ids: non-empty, free of control characters, unique.
func Validate(nodes []Node) error {
	seen := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		if err := errors.ValidateNodeID(n.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "node %d", i)
		}
		if _, dup := seen[n.ID]; dup {
			return errors.New(errors.ErrCodeInvalidSnapshot, "duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Nodes)
}

// Node looks a node up by id.
func (s *Snapshot) Node(id string) (Node, bool) {
	if s == nil {
		return Node{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Node{}, false
	}
	return s.Nodes[i], true
}

// Index returns the list position of the node with the given id.
func (s *Snapshot) Index(id string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.index[id]
	return i, ok
}

// Has reports whether a node with the given id exists.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.Node(id)
	return ok
}

// Edges returns every directed edge in node order, then connection order,
// including edges whose target does not exist.
func (s *Snapshot) Edges() []Edge {
	if s == nil {
		return nil
	}
	var out []Edge
	for _, n := range s.Nodes {
		for _, to := range n.Connections {
			out = append(out, Edge{From: n.ID, To: to})
		}
	}
	return out
}

// ResolvedEdges returns the edges whose target exists. Dangling references
// are dropped silently.
func (s *Snapshot) ResolvedEdges() []Edge {
	var out []Edge
	for _, e := range s.Edges() {
		if s.Has(e.To) {
			out = append(out, e)
		}
	}
	return out
}

// Connected returns summaries of the nodes id points to, in connection
// order. Dangling targets are skipped.
func (s *Snapshot) Connected(id string) []Summary {
	n, ok := s.Node(id)
	if !ok {
		return nil
	}
	out := make([]Summary, 0, len(n.Connections))
	for _, to := range n.Connections {
		if t, ok := s.Node(to); ok {
			out = append(out, Summary{ID: t.ID, Name: t.Label(), Category: t.Category})
		}
	}
	return out
}

// Categories returns the distinct categories in first-encounter order.
func (s *Snapshot) Categories() []Category {
	if s == nil {
		return nil
	}
	seen := make(map[Category]bool)
	var out []Category
	for _, n := range s.Nodes {
		if !seen[n.Category] {
			seen[n.Category] = true
			out = append(out, n.Category)
		}
	}
	return out
}

// Positioned reports whether every node has a position.
func (s *Snapshot) Positioned() bool {
	if s == nil {
		return true
	}
	for _, n := range s.Nodes {
		if n.Position == nil {
			return false
		}
	}
	return true
}

// WithPositions returns a copy of s whose i-th node is placed at pos[i].
// It panics if len(pos) differs from the node count.
func (s *Snapshot) WithPositions(pos []Point) *Snapshot {
	if len(pos) != s.Len() {
		panic("topology: position count does not match node count")
	}
	out := &Snapshot{
		Nodes:    make([]Node, len(s.Nodes)),
		LoadedAt: s.LoadedAt,
		Source:   s.Source,
	}
	for i, n := range s.Nodes {
		c := n.clone()
		p := pos[i]
		c.Position = &p
		out.Nodes[i] = c
	}
	out.buildIndex()
	return out
}

// Hash returns a content hash of the node data, ignoring positions and
// load metadata. Two snapshots with equal hashes render identically.
func (s *Snapshot) Hash() string {
	if s == nil {
		return cache.Hash(nil)
	}
	nodes := make([]Node, len(s.Nodes))
	for i, n := range s.Nodes {
		n.Position = nil
		nodes[i] = n
	}
	h, err := cache.HashJSON(nodes)
	if err != nil {
		// Non-finite metrics (YAML .nan) do not encode; such a snapshot
		// only ever matches itself.
		return cache.Hash([]byte(s.Source + s.LoadedAt.String()))
	}
	return h
}
