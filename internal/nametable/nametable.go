// Package nametable renders the PPU's four logical nametables onto one
// 512x480 canvas and marks the window the scroll registers currently show.
package nametable

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"tasnes/internal/engine"
	"tasnes/internal/graphics"
	"tasnes/internal/palette"
)

// PPU address space regions read by Capture.
const (
	patternBase   = 0x0000
	patternSize   = 0x2000
	nametableBase = 0x2000
	nametableSize = 0x1000
	paletteBase   = 0x3F00
	paletteSize   = 0x20

	tilesWide = 32
	tilesHigh = 30

	attributeOffset = 0x3C0
)

// OutlineColor is the colour of the viewport rectangle.
const OutlineColor = 0xFF00FF

// Source is what Capture needs from a running core.
type Source interface {
	engine.Inspector
	Picture(v engine.Variant) *image.RGBA
}

// Snapshot is a copy of the PPU state the decoder reads.
type Snapshot struct {
	Nametables [nametableSize]uint8
	Palette    [paletteSize]uint8
	Patterns   [patternSize]uint8

	// BackgroundTable is PPUCTRL bit 4: background tiles come from $1000.
	BackgroundTable bool

	Scroll engine.Scroll

	// Screen is a copy of the current raw picture, nil if the core had none.
	Screen *image.RGBA
}

// Capture copies the video memory, scroll registers and current picture
// out of src.
func Capture(src Source) *Snapshot {
	snap := &Snapshot{
		BackgroundTable: src.PPUCtrl()&0x10 != 0,
		Scroll:          src.Scroll(),
	}
	for i := range snap.Nametables {
		snap.Nametables[i] = src.PeekPPU(uint16(nametableBase + i))
	}
	for i := range snap.Palette {
		snap.Palette[i] = src.PeekPPU(uint16(paletteBase + i))
	}
	for i := range snap.Patterns {
		snap.Patterns[i] = src.PeekPPU(uint16(patternBase + i))
	}

	if pic := src.Picture(engine.VariantRaw); pic != nil {
		snap.Screen = image.NewRGBA(image.Rectangle{Max: pic.Rect.Size()})
		xdraw.Draw(snap.Screen, snap.Screen.Rect, pic, pic.Rect.Min, xdraw.Src)
	}
	return snap
}

// Options select what Decode draws on top of the tiles.
type Options struct {
	// ForceBackdrop draws colour index 0 with the universal backdrop
	// ($3F00) whatever the tile's palette.
	ForceBackdrop bool

	// ShowViewport outlines the visible 256x240 window.
	ShowViewport bool

	// OverlayScreen copies the current picture into the visible window.
	OverlayScreen bool
}

// Viewport is the top-left corner of the visible window on the canvas.
type Viewport struct {
	X, Y int
}

// Right returns the last visible column, wrapped onto the canvas.
func (v Viewport) Right() int {
	return (v.X + engine.ScreenWidth - 1) % engine.CanvasWidth
}

// Bottom returns the last visible row, wrapped onto the canvas.
func (v Viewport) Bottom() int {
	return (v.Y + engine.ScreenHeight - 1) % engine.CanvasHeight
}

// Frame is one decoded canvas.
type Frame struct {
	Surface  *graphics.Surface
	Viewport Viewport
}

// Decode renders snap into a new canvas. It does not modify snap.
func Decode(snap *Snapshot, opts Options) *Frame {
	s := graphics.NewSurface(engine.CanvasWidth, engine.CanvasHeight)

	base := 0
	if snap.BackgroundTable {
		base = 0x1000
	}

	for nt := 0; nt < 4; nt++ {
		table := snap.Nametables[nt*0x400 : (nt+1)*0x400]
		ox := (nt & 1) * engine.ScreenWidth
		oy := (nt >> 1) * engine.ScreenHeight

		for row := 0; row < tilesHigh; row++ {
			for col := 0; col < tilesWide; col++ {
				tile := int(table[row*tilesWide+col])
				attr := table[attributeOffset+(row/4)*8+col/4]
				// Each attribute byte covers 4x4 tiles, two bits per 2x2 quadrant.
				shift := ((row & 2) << 1) | (col & 2)
				sel := int(attr>>shift) & 0x03

				drawTile(s, snap, base+tile*16, sel, ox+col*8, oy+row*8, opts.ForceBackdrop)
			}
		}
	}

	x, y := snap.Scroll.Origin()
	vp := Viewport{X: x, Y: y}

	if opts.OverlayScreen && snap.Screen != nil {
		overlay(s, snap.Screen, vp)
	}
	if opts.ShowViewport {
		outline(s, vp)
	}

	return &Frame{Surface: s, Viewport: vp}
}

func drawTile(s *graphics.Surface, snap *Snapshot, addr, sel, x, y int, forceBackdrop bool) {
	for py := 0; py < 8; py++ {
		lo := snap.Patterns[addr+py]
		hi := snap.Patterns[addr+py+8]
		for px := 0; px < 8; px++ {
			bit := uint(7 - px)
			idx := (lo>>bit)&1 | ((hi>>bit)&1)<<1

			entry := snap.Palette[sel*4+int(idx)]
			if idx == 0 && forceBackdrop {
				entry = snap.Palette[0]
			}
			s.SetPixel(x+px, y+py, palette.RGB(entry))
		}
	}
}

func overlay(s *graphics.Surface, screen *image.RGBA, vp Viewport) {
	w := min(screen.Rect.Dx(), engine.ScreenWidth)
	h := min(screen.Rect.Dy(), engine.ScreenHeight)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			c := screen.RGBAAt(screen.Rect.Min.X+i, screen.Rect.Min.Y+j)
			s.SetPixel((vp.X+i)%engine.CanvasWidth, (vp.Y+j)%engine.CanvasHeight,
				uint32(c.R)<<16|uint32(c.G)<<8|uint32(c.B))
		}
	}
}

func outline(s *graphics.Surface, vp Viewport) {
	right, bottom := vp.Right(), vp.Bottom()
	for i := 0; i < engine.ScreenWidth; i++ {
		x := (vp.X + i) % engine.CanvasWidth
		s.SetPixel(x, vp.Y, OutlineColor)
		s.SetPixel(x, bottom, OutlineColor)
	}
	for j := 0; j < engine.ScreenHeight; j++ {
		y := (vp.Y + j) % engine.CanvasHeight
		s.SetPixel(vp.X, y, OutlineColor)
		s.SetPixel(right, y, OutlineColor)
	}
}
