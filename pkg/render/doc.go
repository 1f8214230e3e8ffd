// Package render draws positioned topology snapshots onto a raster surface.
//
// # Overview
//
// Two renderers share one set of drawing primitives:
//
//   - [DrawFlat] draws a single 2D frame: edges with arrowheads, status
//     colored nodes, a category glyph inside each node and the node name
//     below it. The selected node gets a glow.
//   - [DrawPerspective] draws the same scene with a cosmetic radial
//     perspective: every point is pulled towards the viewport center by
//     [PerspectiveFactor], radii and font sizes shrink by the same factor
//     and each element casts a drop shadow.
//
// Both renderers are pure functions of their inputs. The canvas size is
// passed explicitly (through the [gg.Context] and the width argument); they
// never consult ambient state.
//
// # Surfaces
//
// A [Surface] owns the drawing context and re-queries its [Container] for
// the current pixel size on every [Surface.Draw]. A container reporting a
// non-positive size makes the draw a no-op; callers surface that as an
// error state.
//
// # Failure semantics
//
// A nil context draws nothing. Nodes without a position and edges whose
// endpoints are missing or unpositioned are skipped and counted in [Stats].
// Every per-element draw step recovers from panics, so one malformed
// element never stops a frame.
//
// [gg.Context]: https://pkg.go.dev/github.com/fogleman/gg#Context
package render
