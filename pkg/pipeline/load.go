package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/observability"
	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/topology"
)

// Load asks loader for one snapshot and reports it to the pipeline hooks.
// source only labels the events.
func Load(ctx context.Context, loader snapshot.Loader, source string) (*topology.Snapshot, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, source)
	start := time.Now()

	snap, err := loader.LoadTopology(ctx)
	if err == nil && snap == nil {
		err = errors.New(errors.ErrCodeInvalidSnapshot, "loader returned no snapshot")
	}
	n := 0
	if err == nil {
		n = snap.Len()
	}
	hooks.OnLoadComplete(ctx, source, n, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return snap, nil
}
