// Package graphics provides the pixel surfaces and the display sinks the
// frame clock publishes to: an Ebitengine window, a headless sink for
// automation, and screenshot sinks for the clipboard and disk.
package graphics

import (
	"image"
	"sync"
)

// Display receives finished frames. Publish is called from the frame clock
// goroutine; implementations copy the image before returning.
type Display interface {
	Publish(img *image.RGBA)
}

// ScreenshotSink stores a captured frame somewhere the user can reach it.
type ScreenshotSink interface {
	Capture(img image.Image) error
}

// Command is a frontend action raised by the window.
type Command int

const (
	CommandNone Command = iota
	CommandScreenshot
	CommandToggleComposite
	CommandToggleBorder
	CommandToggleNametable
	CommandReset
	CommandPowerCycle
	CommandQuit
)

func (c Command) String() string {
	switch c {
	case CommandScreenshot:
		return "screenshot"
	case CommandToggleComposite:
		return "toggle-composite"
	case CommandToggleBorder:
		return "toggle-border"
	case CommandToggleNametable:
		return "toggle-nametable"
	case CommandReset:
		return "reset"
	case CommandPowerCycle:
		return "power-cycle"
	case CommandQuit:
		return "quit"
	default:
		return "none"
	}
}

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
)

// SharedFrame holds the latest published picture. The clock writes it,
// the window reads it while drawing; both sides copy under the lock so
// neither holds the other's buffer.
type SharedFrame struct {
	mu      sync.Mutex
	write   *image.RGBA
	read    *image.RGBA
	version uint64
}

// Update copies img into the write buffer.
func (sf *SharedFrame) Update(img *image.RGBA) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.write == nil || sf.write.Rect.Size() != img.Rect.Size() {
		sf.write = image.NewRGBA(image.Rectangle{Max: img.Rect.Size()})
	}
	copyRGBA(sf.write, img)
	sf.version++
}

// Read returns a snapshot of the latest frame and its version, or nil when
// nothing has been published yet.
func (sf *SharedFrame) Read() (*image.RGBA, uint64) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.write == nil {
		return nil, 0
	}
	if sf.read == nil || sf.read.Rect != sf.write.Rect {
		sf.read = image.NewRGBA(sf.write.Rect)
	}
	copy(sf.read.Pix, sf.write.Pix)
	return sf.read, sf.version
}

// copyRGBA copies src into dst row by row; dst starts at the origin and has
// src's size.
func copyRGBA(dst, src *image.RGBA) {
	w := src.Rect.Dx() * 4
	for y := 0; y < src.Rect.Dy(); y++ {
		so := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		do := y * dst.Stride
		copy(dst.Pix[do:do+w], src.Pix[so:so+w])
	}
}
