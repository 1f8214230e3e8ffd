// Package layout assigns canvas coordinates to topology nodes.
//
// All nodes share one circle. The circle is cut into contiguous arcs, one
// per category, each proportional to the category's share of nodes and
// ordered by first appearance in the snapshot. Members of a category sit at
// equal angular steps inside their arc:
//
//	span(c)   = 2π · |c| / n
//	start(c)  = Σ span of earlier categories (first arc starts at 0)
//	θ(c, i)   = start(c) + i · span(c) / |c|
//	position  = (cx + R·cos θ, cy + R·sin θ)
//
// The circle comes from a [Config]. Derive it from the live canvas with
// [ForSize] at call time rather than reusing a fixed center, so layout and
// rendering agree after the canvas is resized.
//
// Layout is O(n), deterministic and recomputed in full for every snapshot.
// There is no stable or incremental placement across refreshes.
package layout
