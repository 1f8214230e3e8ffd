// Package cache stores rendered artifacts and loaded snapshots.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for the server
//   - [NullCache]: disables caching
//
// # Keys
//
// A [Keyer] derives keys from a snapshot's content hash plus the options
// that influence the output, so any change to either yields a new key.
// [ScopedKeyer] prefixes every key, which keeps several deployments apart
// in one Redis database.
package cache

import (
	"context"
	"time"
)

// Default TTLs.
const (
	// TTLSnapshot bounds how long a cached snapshot stands in for the
	// record store.
	TTLSnapshot = 5 * time.Minute

	// TTLArtifact applies to rendered outputs. Their keys include the
	// snapshot hash, so entries never go stale, they only age out.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// SnapshotKey identifies a loaded snapshot by its source.
	SnapshotKey(source string) string

	// ArtifactKey identifies a rendered output of a snapshot.
	ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts lists every option that changes a rendered artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Mode     string `json:"mode"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Selected string `json:"selected,omitempty"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SnapshotKey implements Keyer.
func (DefaultKeyer) SnapshotKey(source string) string {
	return hashKey("snapshot", source)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", snapshotHash, opts)
}
