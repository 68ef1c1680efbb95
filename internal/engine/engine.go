// Package engine defines the contract between the frontend and an NES
// emulation core. The core itself (CPU, PPU, mappers) lives outside this
// module; everything here talks to it through these interfaces.
package engine

import (
	"bytes"
	"image"

	"tasnes/internal/input"
)

// Cartridge is a loaded cartridge ready to be installed into a core. Its
// contents are opaque to the frontend.
type Cartridge interface {
	// Name is the display name, usually the ROM file name.
	Name() string
}

// Stepper advances emulation.
type Stepper interface {
	// StepFrame runs until the next displayed frame is complete.
	StepFrame()

	// StepCycle runs exactly one master clock cycle.
	StepCycle()

	// FrameCount returns the number of frames completed since power-on.
	FrameCount() uint64
}

// Inspector exposes PPU state for diagnostics. Reads must not change the
// emulated state beyond normal hardware read effects.
type Inspector interface {
	// PeekPPU reads one byte of PPU address space ($0000-$3FFF).
	PeekPPU(addr uint16) uint8

	// PPUCtrl returns the last value written to $2000.
	PPUCtrl() uint8

	// Scroll returns the internal scroll registers.
	Scroll() Scroll
}

// Syncable is the part of the core a movie synchronization policy touches.
type Syncable interface {
	// RAM returns the live 2KB working RAM. Writes go straight to the core.
	RAM() []byte

	ScanPosition() (scanline, dot int)
	SetScanPosition(scanline, dot int)

	// SetFM2Compat suppresses the early vblank raised when playback starts
	// one scanline late.
	SetFM2Compat(enabled bool)

	InputIndex() int
	SetInputIndex(index int)

	// SetMovie installs the recorded input sequence. A nil slice returns the
	// controller port to live input.
	SetMovie(frames []input.Frame)

	// SetSubFrameInput switches between one input per frame and one input
	// per controller latch.
	SetSubFrameInput(enabled bool)

	// SetAlignment picks the CPU/PPU clock phase alignment, 0-3.
	SetAlignment(alignment uint8)
}

// Handle is a running core. Only one goroutine may call its mutating
// methods at a time.
type Handle interface {
	Stepper
	Inspector
	Syncable

	// Reset performs a soft reset in place.
	Reset()

	// InstallCartridge replaces the active cartridge without resetting.
	InstallCartridge(cart Cartridge)

	SetComposite(enabled bool)
	SetBorder(enabled bool)

	// SetPort sets the live byte for controller port 1.
	SetPort(frame input.Frame)

	SetTrace(cfg TraceConfig)

	// Picture returns the last completed frame in the requested variant.
	// The image is owned by the core and is overwritten by the next step.
	Picture(v Variant) *image.RGBA
}

// Factory builds cores. A frontend is started with one Factory.
type Factory interface {
	// Name is shown in the window title and logs.
	Name() string

	// Extensions lists the ROM file extensions the core accepts.
	Extensions() []string

	// LoadCartridge parses a ROM image.
	LoadCartridge(name string, rom []byte) (Cartridge, error)

	// PowerOn constructs a fresh core with cart installed, equivalent to a
	// power cycle.
	PowerOn(cart Cartridge, alignment uint8) (Handle, error)
}

// AddressRange is an inclusive CPU address filter.
type AddressRange struct {
	Lo uint16
	Hi uint16
}

// Contains reports whether addr lies within the range.
func (r AddressRange) Contains(addr uint16) bool {
	return addr >= r.Lo && addr <= r.Hi
}

// FullRange covers the whole CPU address space.
var FullRange = AddressRange{Lo: 0x0000, Hi: 0xFFFF}

// TraceConfig controls the core's instruction trace. When Enabled is false
// the core must not append to Log.
type TraceConfig struct {
	Enabled bool
	Range   AddressRange
	Log     *bytes.Buffer
}
