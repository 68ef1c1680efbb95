package app

import "sync/atomic"

// Flags are the session switches shared between the command goroutine,
// which writes them, and the frame clock, which reads them every frame.
type Flags struct {
	composite  atomic.Bool
	border     atomic.Bool
	alignment  atomic.Uint32
	screenshot atomic.Bool
}

// NewFlags creates flags with the given initial values.
func NewFlags(composite, border bool, alignment uint8) *Flags {
	f := &Flags{}
	f.composite.Store(composite)
	f.border.Store(border)
	f.alignment.Store(uint32(alignment & 0x03))
	return f
}

func (f *Flags) Composite() bool { return f.composite.Load() }

func (f *Flags) SetComposite(on bool) { f.composite.Store(on) }

func (f *Flags) Border() bool { return f.border.Load() }

func (f *Flags) SetBorder(on bool) { f.border.Store(on) }

// Alignment is the clock phase applied at the next power-on.
func (f *Flags) Alignment() uint8 { return uint8(f.alignment.Load()) }

// SetAlignment stores a phase; values above 3 wrap.
func (f *Flags) SetAlignment(a uint8) { f.alignment.Store(uint32(a & 0x03)) }

// RequestScreenshot asks the clock to capture the next frame.
func (f *Flags) RequestScreenshot() { f.screenshot.Store(true) }

// TakeScreenshot reports a pending request and clears it.
func (f *Flags) TakeScreenshot() bool { return f.screenshot.Swap(false) }
