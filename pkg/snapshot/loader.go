// Package snapshot loads topology snapshots from record stores and keeps
// the latest one fresh.
//
// # Loaders
//
// A [Loader] yields one complete, validated [topology.Snapshot] per call:
//
//   - [FileLoader]: JSON or YAML document on disk
//   - [HTTPLoader]: JSON document from a REST endpoint, with retries
//   - [MongoLoader]: one document per node in a MongoDB collection
//   - [SQLiteLoader]: one row per node in a SQLite table
//   - [RedisLoader]: JSON document stored under a Redis key
//
// [Open] picks the loader for a [Source] description, which is how the CLI
// configures them. SQLite and Redis sources are also a [Store] and can be
// seeded with [OpenStore].
//
// # Refreshing
//
// A [Refresher] owns the latest good snapshot. It refreshes on demand and,
// while auto-refresh is on, on a fixed interval. Only one load is ever in
// flight; failures keep the previous snapshot and are reported through
// [Refresher.Err]; loads that finish after [Refresher.Close] are dropped.
package snapshot

import (
	"context"
	"io"

	"github.com/matzehuels/topoview/pkg/topology"
)

// Loader produces a snapshot on demand. Implementations may fail; they
// must never return a partially decoded node set.
type Loader interface {
	LoadTopology(ctx context.Context) (*topology.Snapshot, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*topology.Snapshot, error)

// LoadTopology implements Loader.
func (f LoaderFunc) LoadTopology(ctx context.Context) (*topology.Snapshot, error) {
	return f(ctx)
}

// Store is a loader that can also be written, replacing its whole
// content with one snapshot.
type Store interface {
	Loader
	Save(ctx context.Context, snap *topology.Snapshot) error
}

// Close releases l's resources when it holds any.
func Close(l Loader) error {
	if c, ok := l.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
