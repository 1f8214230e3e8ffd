package render

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/matzehuels/topoview/pkg/topology"
)

// Perspective tuning.
const (
	// DepthRatio is the fraction of the canvas width at which the
	// shrink reaches MaxShrink.
	DepthRatio = 0.8
	// MaxShrink bounds how much an element can shrink.
	MaxShrink = 0.3
)

// PerspectiveFactor returns 1 - clamp(distance/(width*DepthRatio), 0, MaxShrink).
// The result is always in [1-MaxShrink, 1] and never increases with
// distance. A non-positive width yields 1.
func PerspectiveFactor(distance, width float64) float64 {
	if width <= 0 || math.IsNaN(distance) || math.IsNaN(width) {
		return 1
	}
	return 1 - clamp(distance/(width*DepthRatio), 0, MaxShrink)
}

// Project pulls p towards center by factor.
func Project(p, center topology.Point, factor float64) topology.Point {
	return center.Add(p.Sub(center).Scale(factor))
}

// DrawPerspective draws one pseudo-3D frame of scene onto dc, using center
// as the viewport center and width as the canvas width the factor is
// relative to. A nil dc is a no-op that returns zero stats.
func DrawPerspective(dc *gg.Context, scene Scene, center topology.Point, width float64, opts Options) Stats {
	proj := func(p topology.Point) (topology.Point, float64) {
		f := PerspectiveFactor(p.Dist(center), width)
		return Project(p, center, f), f
	}
	return draw(dc, scene, opts, proj, true)
}
