package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/topoview/pkg/render"
	"github.com/matzehuels/topoview/pkg/topology"
)

// Layout engines understood by [RenderSVG].
const (
	EngineDot   = graphviz.DOT
	EngineNeato = graphviz.NEATO
)

// pointsPerPixel converts canvas pixels to Graphviz points (72 dpi vs 96).
const pointsPerPixel = 0.75

// Options configures node-link diagram generation.
type Options struct {
	// Detailed adds the status and every detail row to node labels.
	Detailed bool

	// Pinned fixes nodes at their layout positions. It only has an effect
	// when every node is positioned; render the result with EngineNeato.
	Pinned bool
}

// ToDOT converts a snapshot to Graphviz DOT. Nodes are filled with their
// status color and labelled with the category glyph and name. Dangling
// connections are left out.
func ToDOT(snap *topology.Snapshot, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\", fontsize=12, fontcolor=white, color=\"#ffffff\", penwidth=2];\n")
	buf.WriteString("  edge [color=\"#64748b\", arrowsize=0.8];\n")
	buf.WriteString("\n")
	if snap == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	pinned := opts.Pinned && snap.Positioned()
	for _, n := range snap.Nodes {
		attrs := fmtAttrs(n, fmtLabel(n, opts.Detailed), pinned)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range snap.ResolvedEdges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n topology.Node, detailed bool) string {
	label := render.Glyph(n.Category) + "\n" + n.Label()
	if !detailed {
		return label
	}

	parts := []string{"status: " + string(n.Status)}
	for _, d := range n.Details {
		parts = append(parts, d.Key+": "+d.String())
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n topology.Node, label string, pinned bool) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("fillcolor=%q", render.Hex(render.StatusColor(n.Status))),
		fmt.Sprintf("tooltip=%q", string(n.Category)+" "+n.ID),
	}
	if n.Status == topology.StatusOffline {
		attrs = append(attrs, "style=\"filled,dashed\"")
	}
	if pinned && n.Position != nil {
		// Graphviz's y axis points up.
		x := n.Position.X * pointsPerPixel
		y := -n.Position.Y * pointsPerPixel
		attrs = append(attrs, fmt.Sprintf("pos=\"%.2f,%.2f!\"", x, y))
	}
	return attrs
}

// Export builds the DOT source for snap and renders it to SVG, choosing
// the neato engine for pinned layouts.
func Export(ctx context.Context, snap *topology.Snapshot, opts Options) ([]byte, error) {
	engine := EngineDot
	if opts.Pinned && snap != nil && snap.Positioned() {
		engine = EngineNeato
	}
	return RenderSVG(ctx, ToDOT(snap, opts), engine)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string, engine graphviz.Layout) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(engine)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="(-?[0-9.]+)\s+(-?[0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
