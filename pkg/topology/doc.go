// Package topology defines the in-memory model of an infrastructure graph.
//
// A [Snapshot] is one complete, immutable set of [Node] values as of a
// refresh. Nodes carry a closed [Category] and [Status], sparse [Metrics],
// ordered [Details] and the ids of the nodes they point to. Edges are not
// stored: one directed [Edge] exists per entry in a node's Connections.
//
// # Construction
//
// Snapshots come from a loader (see pkg/snapshot) or from a document:
//
//	snap, err := topology.ReadFile("topology.yaml")
//	for _, e := range snap.ResolvedEdges() {
//	    fmt.Println(e.From, "->", e.To)
//	}
//
// [New] copies its input, keeps the order and clears every Position; the
// layout engine (pkg/layout) fills positions in on a copy.
//
// # Documents
//
// JSON and YAML documents are accepted, either as {"nodes": [...]} or as a
// bare array of nodes:
//
//	nodes:
//	  - id: pg-main
//	    name: Primary DB
//	    category: database
//	    status: online
//	    connections: [api-1]
//	    metrics: {cpu: 41, memory: 73, disk: 58}
//	    details:
//	      engine: postgres
//	      replicas: 2
//
// Detail keys keep their document order. Values are scalars; nested values
// are kept as their compact JSON text.
//
// # Concurrency
//
// Snapshots are never mutated after construction and are safe for concurrent
// reads. Replace the whole snapshot to change the graph.
package topology
