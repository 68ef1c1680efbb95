package graphics

import (
	"image"
	"image/color"
)

// Surface is an owned pixel grid. It has a single writer; readers take a
// copy through the Display they are attached to.
type Surface struct {
	img *image.RGBA
}

// NewSurface allocates a black, opaque surface.
func NewSurface(width, height int) *Surface {
	s := &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
	s.Fill(0x000000)
	return s
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.img.Rect.Dx() }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// SetPixel writes a 0x00RRGGBB colour. Out of range coordinates are ignored.
func (s *Surface) SetPixel(x, y int, rgb uint32) {
	if x < 0 || y < 0 || x >= s.Width() || y >= s.Height() {
		return
	}
	i := s.img.PixOffset(x, y)
	p := s.img.Pix[i : i+4 : i+4]
	p[0] = uint8(rgb >> 16)
	p[1] = uint8(rgb >> 8)
	p[2] = uint8(rgb)
	p[3] = 0xFF
}

// Pixel reads a pixel back as 0x00RRGGBB.
func (s *Surface) Pixel(x, y int) uint32 {
	if x < 0 || y < 0 || x >= s.Width() || y >= s.Height() {
		return 0
	}
	i := s.img.PixOffset(x, y)
	p := s.img.Pix[i : i+3 : i+3]
	return uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
}

// SetColor writes an RGBA colour.
func (s *Surface) SetColor(x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= s.Width() || y >= s.Height() {
		return
	}
	s.img.SetRGBA(x, y, c)
}

// Fill paints the whole surface.
func (s *Surface) Fill(rgb uint32) {
	r, g, b := uint8(rgb>>16), uint8(rgb>>8), uint8(rgb)
	for i := 0; i < len(s.img.Pix); i += 4 {
		s.img.Pix[i] = r
		s.img.Pix[i+1] = g
		s.img.Pix[i+2] = b
		s.img.Pix[i+3] = 0xFF
	}
}

// Image returns the backing image. Callers must not keep it across writes.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// Equal reports whether both surfaces hold identical pixels.
func (s *Surface) Equal(o *Surface) bool {
	if s.img.Rect != o.img.Rect {
		return false
	}
	for i := range s.img.Pix {
		if s.img.Pix[i] != o.img.Pix[i] {
			return false
		}
	}
	return true
}
