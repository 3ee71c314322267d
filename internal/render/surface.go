package render

import (
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Surface is a layer stack over one RGBA image. Drawing always targets the
// top layer; Pop blends it down with the opacity given to Push.
type Surface struct {
	base   *image.RGBA
	stack  []layer
	layers int
}

type layer struct {
	img     *image.RGBA
	opacity float64
}

// NewSurface returns a transparent surface of w x h pixels.
func NewSurface(w, h int) *Surface {
	return &Surface{base: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Bounds returns the surface rectangle.
func (s *Surface) Bounds() image.Rectangle { return s.base.Bounds() }

// Size returns the surface dimensions.
func (s *Surface) Size() image.Point { return s.base.Bounds().Size() }

// Target returns the image drawing should go to.
func (s *Surface) Target() *image.RGBA {
	if n := len(s.stack); n > 0 {
		return s.stack[n-1].img
	}
	return s.base
}

// Clear fills the base layer with c and drops any pushed layers.
func (s *Surface) Clear(c color.Color) {
	s.stack = s.stack[:0]
	draw.Draw(s.base, s.base.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Push starts a transparent layer that Pop blends at opacity.
func (s *Surface) Push(opacity float64) {
	s.layers++
	s.stack = append(s.stack, layer{
		img:     image.NewRGBA(s.base.Bounds()),
		opacity: min(max(opacity, 0), 1),
	})
}

// Pop blends the top layer into the one below it.
func (s *Surface) Pop() {
	n := len(s.stack)
	if n == 0 {
		return
	}
	top := s.stack[n-1]
	s.stack = s.stack[:n-1]
	mask := image.NewUniform(color.Alpha{A: uint8(top.opacity*255 + 0.5)})
	dst := s.Target()
	draw.DrawMask(dst, dst.Bounds(), top.img, image.Point{}, mask, image.Point{}, draw.Over)
}

// Depth returns the number of pushed layers.
func (s *Surface) Depth() int { return len(s.stack) }

// Layers returns how many layers have been allocated since creation.
func (s *Surface) Layers() int { return s.layers }

// Snapshot returns a copy of the base layer.
func (s *Surface) Snapshot() *image.RGBA {
	out := image.NewRGBA(s.base.Bounds())
	copy(out.Pix, s.base.Pix)
	return out
}

// EncodePNG writes the base layer as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return gg.NewContextForRGBA(s.base).EncodePNG(w)
}
