package pipeline

import (
	"context"
	"time"

	"github.com/fogleman/gg"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/fonts"
	"github.com/matzehuels/topoview/pkg/observability"
	"github.com/matzehuels/topoview/pkg/render"
	"github.com/matzehuels/topoview/pkg/render/nodelink"
	"github.com/matzehuels/topoview/pkg/topology"
)

// Render generates output artifacts in the requested formats from a
// laid-out snapshot.
func Render(ctx context.Context, laid *topology.Snapshot, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	if opts.Selected != "" && !laid.Has(opts.Selected) {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "node %q not found", opts.Selected)
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Mode)
	start := time.Now()

	artifacts := make(map[string][]byte)
	var err error
	for _, format := range opts.Formats {
		var data []byte
		switch format {
		case FormatPNG:
			data, err = RenderPNG(laid, opts)
		case FormatSVG:
			data, err = nodelink.Export(ctx, laid, nodelink.Options{Detailed: opts.Detailed, Pinned: true})
		case FormatDOT:
			data = []byte(nodelink.ToDOT(laid, nodelink.Options{Detailed: opts.Detailed, Pinned: true}))
		case FormatJSON:
			data, err = topology.Marshal(laid)
		default:
			err = errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
		}
		if err != nil {
			err = errors.Wrap(codeOr(err, errors.ErrCodeInternal), err, "render %s", format)
			break
		}
		artifacts[format] = data
	}

	hooks.OnRenderComplete(ctx, opts.Mode, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

// RenderPNG draws one frame of laid in opts.Mode and encodes it. A
// pseudo-3D frame is drawn with the selection glow at full strength.
func RenderPNG(laid *topology.Snapshot, opts Options) ([]byte, error) {
	surface := render.NewSurface(render.FixedContainer{Width: opts.Width, Height: opts.Height})
	scene := render.Scene{Snapshot: laid, Selected: opts.Selected}
	center := LayoutConfig(opts).Center()

	ok := surface.Draw(func(dc *gg.Context, fc *fonts.Cache) {
		ropts := render.Options{Fonts: fc, Pulse: 1}
		if opts.IsPerspective() {
			render.DrawPerspective(dc, scene, center, float64(opts.Width), ropts)
			return
		}
		render.DrawFlat(dc, scene, ropts)
	})
	if !ok {
		return nil, errors.New(errors.ErrCodeCanvasUnavailable, "canvas has no drawable size (%dx%d)", opts.Width, opts.Height)
	}
	return surface.PNG()
}
