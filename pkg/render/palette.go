package render

import (
	"fmt"
	"image/color"

	"github.com/matzehuels/topoview/pkg/topology"
)

// Theme holds the colors shared by all renderers.
type Theme struct {
	Background    color.RGBA
	Stroke        color.RGBA
	Label         color.RGBA
	Glyph         color.RGBA
	Edge          color.RGBA
	EdgeHighlight color.RGBA
	Glow          color.RGBA
	Shadow        color.RGBA
}

// DefaultTheme is the dark dashboard palette.
var DefaultTheme = Theme{
	Background:    rgb(0x0f172a),
	Stroke:        rgb(0xf8fafc),
	Label:         rgb(0xe2e8f0),
	Glyph:         rgb(0xffffff),
	Edge:          rgb(0x475569),
	EdgeHighlight: rgb(0x38bdf8),
	Glow:          rgb(0x38bdf8),
	Shadow:        color.RGBA{A: 0xff},
}

// Status colors.
var (
	ColorOnline  = rgb(0x10b981)
	ColorWarning = rgb(0xf59e0b)
	ColorError   = rgb(0xef4444)
	ColorOffline = rgb(0x6b7280)
	ColorUnknown = rgb(0x94a3b8)
)

// StatusColor maps a status to its fill color. Unknown statuses get the
// neutral ColorUnknown.
func StatusColor(s topology.Status) color.RGBA {
	switch s {
	case topology.StatusOnline:
		return ColorOnline
	case topology.StatusWarning:
		return ColorWarning
	case topology.StatusError:
		return ColorError
	case topology.StatusOffline:
		return ColorOffline
	default:
		return ColorUnknown
	}
}

// Glyph returns the two-letter type code drawn inside a node.
func Glyph(c topology.Category) string {
	switch c {
	case topology.CategoryDatabase:
		return "DB"
	case topology.CategoryServer:
		return "SV"
	case topology.CategoryService:
		return "SC"
	case topology.CategoryClient:
		return "CL"
	case topology.CategorySensor:
		return "SN"
	case topology.CategoryUser:
		return "US"
	case topology.CategoryVehicle:
		return "VH"
	case topology.CategoryLocation:
		return "LC"
	default:
		return "??"
	}
}

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func rgb(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// withAlpha returns c with its alpha channel scaled to a (0..1).
func withAlpha(c color.RGBA, a float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(clamp(a, 0, 1) * float64(c.A))}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
