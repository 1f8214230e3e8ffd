package render

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/fonts"
	"github.com/matzehuels/topoview/pkg/topology"
)

var errNoFrame error = errors.New(errors.ErrCodeCanvasUnavailable, "no frame has been drawn")

// Default sizes in pixels at perspective factor 1.
const (
	DefaultNodeRadius = 20.0
	DefaultArrowSize  = 10.0
	DefaultGlyphSize  = 12.0
	DefaultLabelSize  = 12.0
	DefaultLineWidth  = 2.0
)

// Scene is a laid-out snapshot plus the current selection. An empty
// Selected means nothing is selected.
type Scene struct {
	Snapshot *topology.Snapshot
	Selected string
}

// Options tunes sizes and colors. Zero fields take the defaults.
type Options struct {
	NodeRadius float64
	ArrowSize  float64
	GlyphSize  float64
	LabelSize  float64
	LineWidth  float64
	Theme      *Theme

	// Pulse modulates the selection glow (0..1). The animation loop feeds
	// it from the frame clock.
	Pulse float64

	// Fonts supplies label faces. A fresh cache is used when nil.
	Fonts *fonts.Cache
}

func (o Options) withDefaults() Options {
	if o.NodeRadius <= 0 {
		o.NodeRadius = DefaultNodeRadius
	}
	if o.ArrowSize <= 0 {
		o.ArrowSize = DefaultArrowSize
	}
	if o.GlyphSize <= 0 {
		o.GlyphSize = DefaultGlyphSize
	}
	if o.LabelSize <= 0 {
		o.LabelSize = DefaultLabelSize
	}
	if o.LineWidth <= 0 {
		o.LineWidth = DefaultLineWidth
	}
	if o.Theme == nil {
		t := DefaultTheme
		o.Theme = &t
	}
	if o.Fonts == nil {
		o.Fonts = fonts.NewCache()
	}
	return o
}

// Stats counts what one frame drew and skipped.
type Stats struct {
	Nodes        int `json:"nodes"`
	Edges        int `json:"edges"`
	SkippedNodes int `json:"skipped_nodes"`
	SkippedEdges int `json:"skipped_edges"`
	Dangling     int `json:"dangling"`
	Recovered    int `json:"recovered"`
}

// projector maps a layout position to its drawn position and the scale
// applied to sizes at that position.
type projector func(topology.Point) (topology.Point, float64)

func identity(p topology.Point) (topology.Point, float64) { return p, 1 }

type painter struct {
	dc     *gg.Context
	opts   Options
	proj   projector
	shadow bool
	stats  Stats
}

func draw(dc *gg.Context, scene Scene, opts Options, proj projector, shadow bool) Stats {
	if dc == nil {
		return Stats{}
	}
	p := &painter{dc: dc, opts: opts.withDefaults(), proj: proj, shadow: shadow}

	dc.SetColor(p.opts.Theme.Background)
	dc.Clear()

	snap := scene.Snapshot
	if snap == nil {
		return p.stats
	}
	for _, n := range snap.Nodes {
		for _, to := range n.Connections {
			target, ok := snap.Node(to)
			if !ok {
				p.stats.Dangling++
				continue
			}
			if n.Position == nil || target.Position == nil {
				p.stats.SkippedEdges++
				continue
			}
			hl := scene.Selected != "" && (n.ID == scene.Selected || to == scene.Selected)
			p.safely(func() { p.edge(*n.Position, *target.Position, hl) })
		}
	}
	for _, n := range snap.Nodes {
		if n.Position == nil {
			p.stats.SkippedNodes++
			continue
		}
		selected := scene.Selected != "" && n.ID == scene.Selected
		p.safely(func() { p.node(n, selected) })
	}
	return p.stats
}

// safely runs one element's draw step with its own graphics state and
// swallows any panic so the rest of the frame still draws.
func (p *painter) safely(fn func()) {
	p.dc.Push()
	defer func() {
		p.dc.Pop()
		if r := recover(); r != nil {
			p.stats.Recovered++
		}
	}()
	fn()
}

func (p *painter) edge(from, to topology.Point, highlight bool) {
	a, fa := p.proj(from)
	b, fb := p.proj(to)
	dc := p.dc

	col := p.opts.Theme.Edge
	if highlight {
		col = p.opts.Theme.EdgeHighlight
	}
	scale := (fa + fb) / 2
	lw := p.opts.LineWidth * scale

	if p.shadow {
		off := 3 * scale
		dc.SetColor(withAlpha(p.opts.Theme.Shadow, 0.25))
		dc.SetLineWidth(lw + 2)
		dc.DrawLine(a.X+off, a.Y+off, b.X+off, b.Y+off)
		dc.Stroke()
	}

	dc.SetColor(col)
	dc.SetLineWidth(lw)
	dc.DrawLine(a.X, a.Y, b.X, b.Y)
	dc.Stroke()

	length := a.Dist(b)
	if length == 0 {
		p.stats.Edges++
		return
	}
	angle := math.Atan2(b.Y-a.Y, b.X-a.X)
	tip := b.Sub(topology.Point{X: math.Cos(angle), Y: math.Sin(angle)}.Scale(p.opts.NodeRadius * fb))
	p.arrowhead(tip, angle, p.opts.ArrowSize*fb)
	dc.SetColor(col)
	dc.Fill()
	p.stats.Edges++
}

func (p *painter) arrowhead(tip topology.Point, angle, size float64) {
	const spread = math.Pi / 7
	dc := p.dc
	dc.MoveTo(tip.X, tip.Y)
	dc.LineTo(tip.X-size*math.Cos(angle-spread), tip.Y-size*math.Sin(angle-spread))
	dc.LineTo(tip.X-size*math.Cos(angle+spread), tip.Y-size*math.Sin(angle+spread))
	dc.ClosePath()
}

func (p *painter) node(n topology.Node, selected bool) {
	c, f := p.proj(*n.Position)
	r := p.opts.NodeRadius * f
	dc := p.dc
	theme := p.opts.Theme

	if p.shadow {
		p.dropShadow(c, r, f)
	}
	if selected {
		p.glow(c, r)
	}

	dc.DrawCircle(c.X, c.Y, r)
	dc.SetColor(StatusColor(n.Status))
	dc.FillPreserve()
	dc.SetColor(theme.Stroke)
	dc.SetLineWidth(p.opts.LineWidth * f)
	dc.Stroke()

	if face, err := p.opts.Fonts.Face(fonts.Bold, p.opts.GlyphSize*f); err == nil {
		dc.SetFontFace(face)
		dc.SetColor(theme.Glyph)
		dc.DrawStringAnchored(Glyph(n.Category), c.X, c.Y, 0.5, 0.35)
	}
	if face, err := p.opts.Fonts.Face(fonts.Regular, p.opts.LabelSize*f); err == nil {
		dc.SetFontFace(face)
		dc.SetColor(theme.Label)
		dc.DrawStringAnchored(n.Label(), c.X, c.Y+r+4*f, 0.5, 1)
	}
	p.stats.Nodes++
}

// glow approximates a blurred halo with fading rings.
func (p *painter) glow(c topology.Point, r float64) {
	const rings = 6
	strength := 0.6 + 0.4*clamp(p.opts.Pulse, 0, 1)
	for i := rings; i >= 1; i-- {
		p.dc.DrawCircle(c.X, c.Y, r+float64(i)*2)
		p.dc.SetColor(withAlpha(p.opts.Theme.Glow, strength*0.12))
		p.dc.Fill()
	}
}

// dropShadow draws an offset soft disc under an element. Each element
// draws its own, so shadows never accumulate across elements.
func (p *painter) dropShadow(c topology.Point, r, f float64) {
	const rings = 4
	off := 5 * f
	for i := rings; i >= 0; i-- {
		p.dc.DrawCircle(c.X+off, c.Y+off, r+float64(i)*1.5)
		p.dc.SetColor(withAlpha(p.opts.Theme.Shadow, 0.08*f))
		p.dc.Fill()
	}
}
