package pipeline

import (
	"github.com/matzehuels/topoview/pkg/layout"
	"github.com/matzehuels/topoview/pkg/topology"
)

// GenerateLayout places every node of snap on the category circle of an
// opts.Width×opts.Height canvas. The input snapshot is not modified.
func GenerateLayout(snap *topology.Snapshot, opts Options) *topology.Snapshot {
	opts.SetLayoutDefaults()
	return layout.Apply(snap, LayoutConfig(opts))
}

// LayoutConfig returns the layout circle used for opts.
func LayoutConfig(opts Options) layout.Config {
	opts.SetLayoutDefaults()
	return layout.ForSize(float64(opts.Width), float64(opts.Height))
}
