package snapshot

import (
	"context"

	"github.com/matzehuels/topoview/pkg/topology"
)

// FileLoader reads a JSON or YAML document on every load, so edits to the
// file show up on the next refresh.
type FileLoader struct {
	Path string
}

// LoadTopology implements Loader.
func (l FileLoader) LoadTopology(ctx context.Context) (*topology.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return topology.ReadFile(l.Path)
}
