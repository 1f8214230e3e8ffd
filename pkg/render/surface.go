package render

import (
	"bytes"
	"image"
	"io"
	"sync"

	"github.com/fogleman/gg"

	"github.com/matzehuels/topoview/pkg/fonts"
)

// Container reports the current pixel size of whatever hosts the canvas.
type Container interface {
	Size() (width, height int)
}

// FixedContainer is a container of constant size.
type FixedContainer struct {
	Width, Height int
}

// Size implements Container.
func (c FixedContainer) Size() (int, int) { return c.Width, c.Height }

// SizeFunc adapts a function to Container.
type SizeFunc func() (int, int)

// Size implements Container.
func (f SizeFunc) Size() (int, int) { return f() }

// Surface is a raster canvas sized to its container. All drawing goes
// through Draw, which serialises access to the context and its fonts.
type Surface struct {
	mu        sync.Mutex
	container Container
	dc        *gg.Context
	fonts     *fonts.Cache
}

// NewSurface creates a surface for c. No pixels are allocated until the
// first Draw.
func NewSurface(c Container) *Surface {
	return &Surface{container: c, fonts: fonts.NewCache()}
}

// Size returns the container's current size.
func (s *Surface) Size() (width, height int) {
	if s == nil || s.container == nil {
		return 0, 0
	}
	return s.container.Size()
}

// Ready reports whether the container currently has a drawable size.
func (s *Surface) Ready() bool {
	w, h := s.Size()
	return w > 0 && h > 0
}

// Draw re-queries the container size, resizes the context when it changed
// and calls fn with it. It returns false without calling fn when the
// container has no drawable size.
func (s *Surface) Draw(fn func(dc *gg.Context, fc *fonts.Cache)) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dc := s.resize()
	if dc == nil {
		return false
	}
	fn(dc, s.fonts)
	return true
}

func (s *Surface) resize() *gg.Context {
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		s.dc = nil
		return nil
	}
	if s.dc == nil || s.dc.Width() != w || s.dc.Height() != h {
		s.dc = gg.NewContext(w, h)
	}
	return s.dc
}

// Image returns a copy of the last drawn frame, or nil before the first
// successful Draw.
func (s *Surface) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dc == nil {
		return nil
	}
	src, ok := s.dc.Image().(*image.RGBA)
	if !ok {
		return s.dc.Image()
	}
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// EncodePNG writes the last drawn frame as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dc == nil {
		return errNoFrame
	}
	return s.dc.EncodePNG(w)
}

// PNG returns the last drawn frame as PNG bytes.
func (s *Surface) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
