package graphics

import (
	"image"
	"sync"
)

// HeadlessDisplay keeps the latest frame in memory and optionally hands
// selected frames to a dump function. It is used for automation and when
// no window can be opened.
type HeadlessDisplay struct {
	frame SharedFrame

	mu         sync.Mutex
	frameCount uint64
	dumpAt     map[uint64]bool
	dump       func(frame uint64, img *image.RGBA)
}

// NewHeadlessDisplay creates a headless display.
func NewHeadlessDisplay() *HeadlessDisplay {
	return &HeadlessDisplay{dumpAt: make(map[uint64]bool)}
}

// DumpFrames registers frame numbers (1-based, counted by Publish) that are
// passed to fn.
func (d *HeadlessDisplay) DumpFrames(fn func(frame uint64, img *image.RGBA), frames ...uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dump = fn
	for _, f := range frames {
		d.dumpAt[f] = true
	}
}

// Publish implements Display.
func (d *HeadlessDisplay) Publish(img *image.RGBA) {
	d.frame.Update(img)

	d.mu.Lock()
	d.frameCount++
	n := d.frameCount
	dump := d.dump
	want := d.dumpAt[n]
	d.mu.Unlock()

	if want && dump != nil {
		dump(n, img)
	}
}

// FrameCount returns how many frames have been published.
func (d *HeadlessDisplay) FrameCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frameCount
}

// Latest returns a copy of the last published frame, or nil.
func (d *HeadlessDisplay) Latest() *image.RGBA {
	img, _ := d.frame.Read()
	if img == nil {
		return nil
	}
	out := image.NewRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}
