package nametable

import (
	"image"
	"sync"
)

// Viewer holds the latest decoded frame for a diagnostic window. The clock
// decodes and calls Show only while the viewer is live.
type Viewer struct {
	mu     sync.Mutex
	live   bool
	opts   Options
	latest *Frame
	sink   func(img *image.RGBA)
	shown  uint64
}

// NewViewer creates a viewer that is not yet live. sink, if not nil,
// receives every shown canvas; it must copy the image if it keeps it.
func NewViewer(opts Options, sink func(img *image.RGBA)) *Viewer {
	return &Viewer{opts: opts, sink: sink}
}

// Live reports whether the clock should decode frames for this viewer.
func (v *Viewer) Live() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.live
}

// SetLive opens or closes the viewer.
func (v *Viewer) SetLive(live bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.live = live
}

// Options returns the decode options.
func (v *Viewer) Options() Options {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opts
}

// SetOptions replaces the decode options; they apply from the next frame.
func (v *Viewer) SetOptions(opts Options) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts = opts
}

// Show stores f and forwards its canvas to the sink.
func (v *Viewer) Show(f *Frame) {
	v.mu.Lock()
	v.latest = f
	v.shown++
	sink := v.sink
	v.mu.Unlock()

	if sink != nil {
		sink(f.Surface.Image())
	}
}

// Latest returns the last shown frame, or nil.
func (v *Viewer) Latest() *Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest
}

// Shown returns how many frames have been shown.
func (v *Viewer) Shown() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shown
}
