package render

import (
	"github.com/fogleman/gg"
)

// DrawFlat draws one 2D frame of scene onto dc. A nil dc is a no-op that
// returns zero stats.
func DrawFlat(dc *gg.Context, scene Scene, opts Options) Stats {
	return draw(dc, scene, opts, identity, false)
}
