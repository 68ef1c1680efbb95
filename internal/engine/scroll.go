package engine

// Canvas dimensions of the four logical nametables laid out 2x2.
const (
	ScreenWidth  = 256
	ScreenHeight = 240
	CanvasWidth  = 2 * ScreenWidth
	CanvasHeight = 2 * ScreenHeight
)

// Scroll holds the PPU's internal scroll registers: the 15-bit current VRAM
// address (yyy NN YYYYY XXXXX) and the 3-bit fine X latch.
type Scroll struct {
	V     uint16
	FineX uint8
}

// CoarseX returns bits 0-4 of v.
func (s Scroll) CoarseX() int {
	return int(s.V & 0x001F)
}

// CoarseY returns bits 5-9 of v.
func (s Scroll) CoarseY() int {
	return int(s.V>>5) & 0x1F
}

// Nametable returns bits 10-11 of v.
func (s Scroll) Nametable() int {
	return int(s.V>>10) & 0x03
}

// FineY returns bits 12-14 of v.
func (s Scroll) FineY() int {
	return int(s.V>>12) & 0x07
}

// Origin returns the top-left pixel of the visible screen on the 512x480
// nametable canvas.
func (s Scroll) Origin() (x, y int) {
	x = s.CoarseX()*8 + int(s.FineX&0x07)
	y = s.CoarseY()*8 + s.FineY()
	if s.Nametable()&0x01 != 0 {
		x += ScreenWidth
	}
	if s.Nametable()&0x02 != 0 {
		y += ScreenHeight
	}
	// coarse Y 30 and 31 address the attribute table rows; wrap them like
	// the canvas does.
	return x % CanvasWidth, y % CanvasHeight
}

// ScrollAt builds the register value whose Origin is (x, y). x and y must
// lie on the canvas and y%240 must be below 240.
func ScrollAt(x, y int) Scroll {
	var v uint16
	if x >= ScreenWidth {
		v |= 0x0400
		x -= ScreenWidth
	}
	if y >= ScreenHeight {
		v |= 0x0800
		y -= ScreenHeight
	}
	v |= uint16(x>>3) & 0x1F
	v |= (uint16(y>>3) & 0x1F) << 5
	v |= (uint16(y) & 0x07) << 12
	return Scroll{V: v, FineX: uint8(x & 0x07)}
}
