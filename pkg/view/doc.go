// Package view wires the topology visualizer together.
//
// A [Visualizer] owns the laid-out scene, the view mode, the pseudo-3D
// loop handle, the drawing surface and the interaction controller. It
// enforces the loop contract: switching to 2D, installing a new snapshot
// and Close all stop the running loop before doing anything else, so at
// most one loop ever draws.
//
//	v := view.New(render.FixedContainer{Width: 800, Height: 600})
//	defer v.Close()
//	v.SetSnapshot(snap)
//	_ = v.SetMode(view.Mode3D)
//	v.Click(412, 298)
package view
