package graphics

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Scale returns src enlarged by an integer factor with nearest-neighbour
// sampling, which keeps NES pixels square and sharp.
func Scale(src image.Image, factor int) *image.RGBA {
	b := src.Bounds()
	if factor < 1 {
		factor = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Rect, src, b, xdraw.Src, nil)
	return dst
}

// Fit scales src to fit within maxWidth x maxHeight, preserving aspect
// ratio.
func Fit(src image.Image, maxWidth, maxHeight int) *image.RGBA {
	b := src.Bounds()
	scaleX := float64(maxWidth) / float64(b.Dx())
	scaleY := float64(maxHeight) / float64(b.Dy())
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	w, h := int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Rect, src, b, xdraw.Src, nil)
	return dst
}
