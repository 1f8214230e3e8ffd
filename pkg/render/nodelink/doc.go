// Package nodelink exports topologies as Graphviz node-link diagrams.
//
// # Usage
//
// Convert a snapshot to DOT, then render it to SVG:
//
//	dot := nodelink.ToDOT(snap, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot, nodelink.EngineDot)
//
// [Export] does both and picks the engine:
//
//	svg, err := nodelink.Export(ctx, laidOut, nodelink.Options{Pinned: true})
//
// # Options
//
//   - Detailed: node labels include the status and every detail row
//   - Pinned: nodes keep their circular layout positions (neato with
//     pinned pos attributes) instead of Graphviz's own ranking
//
// Nodes are filled with the same status colors as the raster renderers and
// labelled with the category glyph above the display name. Offline nodes
// get a dashed outline.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is required.
package nodelink
