// Package pkg provides the core libraries of topoview, a system topology
// visualizer.
//
// # Overview
//
// topoview draws an infrastructure graph (databases, servers, services,
// clients, sensors, users, vehicles, locations) on a circle partitioned by
// category. Nodes are colored by status. The graph can be drawn as a flat 2D
// diagram or as a continuously animated pseudo-3D perspective view, and
// nodes can be selected to inspect their metrics, details and connections.
//
// # Architecture
//
// The data flow through topoview:
//
//	Record store (file, HTTP, MongoDB, SQLite, Redis)
//	         ↓
//	    [snapshot] package (load + refresh)
//	         ↓
//	    [topology] package (immutable node snapshot)
//	         ↓
//	    [layout] package (circular category layout)
//	         ↓
//	    [render] package (2D or perspective raster frame)
//	         ↓
//	    PNG / SVG / DOT / JSON output, HTTP API, terminal inspector
//
// [view] glues the pieces together for interactive use: it owns the scene,
// the display mode, the pseudo-3D frame loop from [animate] and the
// selection state from [interact].
//
// # Quick Start
//
// Load a snapshot, lay it out and render one PNG:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/topoview/pkg/pipeline"
//	    "github.com/matzehuels/topoview/pkg/snapshot"
//	)
//
//	loader := snapshot.FileLoader{Path: "site.yaml"}
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(context.Background(), loader, pipeline.Options{
//	    Width:  800,
//	    Height: 600,
//	})
//	png := result.Artifacts["png"]
//
// # Main Packages
//
// [topology] - Node, category, status, metrics and details types. A
// Snapshot is built once per refresh and never mutated.
//
// [layout] - Groups nodes by category in first-encounter order and gives
// each group an arc proportional to its size.
//
// [render] - Raster surface on top of gg, the status palette, the flat
// renderer and the perspective renderer. [render/nodelink] exports DOT and
// SVG through Graphviz.
//
// [animate] - Frame schedulers and the cancellable loop handle that drives
// the perspective view.
//
// [interact] - Hit-testing, selection and the detail payload.
//
// [snapshot] - Loader implementations and the Refresher, which keeps the
// last good snapshot when a refresh fails.
//
// [view] - The Visualizer. At most one frame loop is active at any time.
//
// [pipeline] - One-shot load, layout and render with artifact caching.
//
// [server] - HTTP API and websocket frame stream.
//
// ## Infrastructure
//
// [cache] - File, Redis and null caches with a keyer for artifacts.
//
// [errors] - Structured error codes.
//
// [observability] - Hooks for pipeline, refresh, animation, cache and HTTP
// events.
//
// [httputil] - Retry with backoff and classified HTTP fetches.
//
// [fonts] - TrueType faces for labels.
//
// [topology]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/topology
// [layout]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/layout
// [render]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/render
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/render/nodelink
// [animate]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/animate
// [interact]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/interact
// [snapshot]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/snapshot
// [view]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/view
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/pipeline
// [server]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/server
// [cache]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/observability
// [httputil]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/httputil
// [fonts]: https://pkg.go.dev/github.com/matzehuels/topoview/pkg/fonts
package pkg
