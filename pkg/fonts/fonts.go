// Package fonts provides TrueType faces for canvas labels.
//
// The Go font family ships inside golang.org/x/image, so the renderer needs
// no system fonts. Parsed fonts are shared process-wide. Sized faces keep
// glyph caches that are not safe for concurrent use, so each drawing
// surface owns a [Cache]. The pseudo-3D renderer asks for many fractional
// sizes, so sizes are rounded to half a point first.
package fonts

import (
	"math"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Weight selects the font file.
type Weight int

const (
	Regular Weight = iota
	Bold
)

// Parsed fonts (computed on first access).
var (
	parseOnce sync.Once
	regular   *truetype.Font
	bold      *truetype.Font
	parseErr  error
)

// Cache hands out sized faces. Faces from one Cache must only be used by
// one goroutine at a time.
type Cache struct {
	mu    sync.Mutex
	faces map[faceKey]font.Face
}

// NewCache creates an empty face cache.
func NewCache() *Cache {
	return &Cache{faces: make(map[faceKey]font.Face)}
}

type faceKey struct {
	weight Weight
	size   float64
}

func parse() {
	regular, parseErr = truetype.Parse(goregular.TTF)
	if parseErr != nil {
		return
	}
	bold, parseErr = truetype.Parse(gobold.TTF)
}

// Face returns a face of the given weight and point size.
// Sizes below 1 are clamped to 1.
func (c *Cache) Face(w Weight, size float64) (font.Face, error) {
	parseOnce.Do(parse)
	if parseErr != nil {
		return nil, parseErr
	}

	size = math.Max(1, math.Round(size*2)/2)
	key := faceKey{weight: w, size: size}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.faces[key]; ok {
		return f, nil
	}

	src := regular
	if w == Bold {
		src = bold
	}
	f := truetype.NewFace(src, &truetype.Options{Size: size, Hinting: font.HintingFull})
	c.faces[key] = f
	return f, nil
}

// FontFamily is the family name reported in SVG exports.
const FontFamily = "Go"

// FallbackFontFamily lists fallbacks for viewers without the Go fonts.
const FallbackFontFamily = `'Go', 'Helvetica Neue', Arial, sans-serif`
