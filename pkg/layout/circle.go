package layout

import (
	"math"

	"github.com/matzehuels/topoview/pkg/topology"
)

// Config describes the layout circle in canvas pixels.
type Config struct {
	CenterX float64 `json:"cx"`
	CenterY float64 `json:"cy"`
	Radius  float64 `json:"radius"`
}

// radiusShare is the fraction of the shorter canvas side used as radius.
const radiusShare = 0.35

// Default is the layout circle for an 800×600 canvas.
var Default = Config{CenterX: 400, CenterY: 300, Radius: 200}

// ForSize derives a layout circle centered on a width×height canvas.
func ForSize(width, height float64) Config {
	if width <= 0 || height <= 0 {
		return Default
	}
	return Config{
		CenterX: width / 2,
		CenterY: height / 2,
		Radius:  math.Min(width, height) * radiusShare,
	}
}

// Center returns the circle center as a point.
func (c Config) Center() topology.Point {
	return topology.Point{X: c.CenterX, Y: c.CenterY}
}

// Arc is the angular range allocated to one category.
type Arc struct {
	Category topology.Category `json:"category"`
	Start    float64           `json:"start"`
	Span     float64           `json:"span"`
	Members  []string          `json:"members"`
}

// Step returns the angular distance between consecutive members.
func (a Arc) Step() float64 {
	if len(a.Members) == 0 {
		return 0
	}
	return a.Span / float64(len(a.Members))
}

// End returns the angle at which the arc stops.
func (a Arc) End() float64 { return a.Start + a.Span }

// Arcs partitions the nodes by category and allocates each category its arc.
func Arcs(nodes []topology.Node) []Arc {
	if len(nodes) == 0 {
		return nil
	}

	var arcs []Arc
	byCategory := make(map[topology.Category]int)
	for _, n := range nodes {
		i, ok := byCategory[n.Category]
		if !ok {
			i = len(arcs)
			byCategory[n.Category] = i
			arcs = append(arcs, Arc{Category: n.Category})
		}
		arcs[i].Members = append(arcs[i].Members, n.ID)
	}

	total := float64(len(nodes))
	angle := 0.0
	for i := range arcs {
		arcs[i].Start = angle
		arcs[i].Span = 2 * math.Pi * float64(len(arcs[i].Members)) / total
		angle += arcs[i].Span
	}
	return arcs
}

// Positions computes one position per node, index-aligned with nodes.
func Positions(nodes []topology.Node, cfg Config) []topology.Point {
	out := make([]topology.Point, len(nodes))
	if len(nodes) == 0 {
		return out
	}

	arcs := Arcs(nodes)
	slot := make(map[topology.Category]int, len(arcs))
	arcOf := make(map[topology.Category]*Arc, len(arcs))
	for i := range arcs {
		arcOf[arcs[i].Category] = &arcs[i]
	}

	for i, n := range nodes {
		a := arcOf[n.Category]
		k := slot[n.Category]
		slot[n.Category] = k + 1
		theta := a.Start + float64(k)*a.Step()
		out[i] = topology.Point{
			X: cfg.CenterX + cfg.Radius*math.Cos(theta),
			Y: cfg.CenterY + cfg.Radius*math.Sin(theta),
		}
	}
	return out
}

// Apply returns a copy of snap with every node positioned.
func Apply(snap *topology.Snapshot, cfg Config) *topology.Snapshot {
	if snap == nil {
		return topology.New(nil)
	}
	return snap.WithPositions(Positions(snap.Nodes, cfg))
}
