// Package enginetest provides an in-memory engine.Handle for tests. It
// records what the frontend asked of it instead of emulating anything.
package enginetest

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"tasnes/internal/engine"
	"tasnes/internal/input"
)

// CyclesPerFrame is how many StepCycle calls complete one frame.
const CyclesPerFrame = 10

// Cart is a named test cartridge.
type Cart string

// Name implements engine.Cartridge.
func (c Cart) Name() string { return string(c) }

// Install records one InstallCartridge call.
type Install struct {
	// Cycle is the cycle number that executes next, counting from 1.
	Cycle uint64
	Cart  string
}

// VariantColors identifies each picture variant by its fill colour.
var VariantColors = map[engine.Variant]color.RGBA{
	engine.VariantRaw:             {R: 0x10, A: 0xFF},
	engine.VariantBorder:          {G: 0x20, A: 0xFF},
	engine.VariantComposite:       {B: 0x30, A: 0xFF},
	engine.VariantCompositeBorder: {R: 0x40, G: 0x40, A: 0xFF},
}

// Engine is a fake core. All methods are safe for concurrent use so tests
// can observe it while a clock is running.
type Engine struct {
	mu sync.Mutex

	Cart      engine.Cartridge
	Installs  []Install
	Cycles    uint64
	Frames    uint64
	Resets    int
	Alignment uint8

	ram      [2048]byte
	vram     [0x4000]byte
	ctrl     uint8
	scroll   engine.Scroll
	scanline int
	dot      int

	FM2Compat  bool
	Index      int
	Movie      []input.Frame
	SubFrame   bool
	Composite  bool
	Border     bool
	Port       input.Frame
	PortWrites []input.Frame
	Trace      engine.TraceConfig

	// TraceLine is appended to the trace log on every frame step while
	// tracing is enabled.
	TraceLine string

	// OnStep runs after every StepFrame while the lock is held.
	OnStep func(e *Engine)

	pictures map[engine.Variant]*image.RGBA
}

// New creates a powered-on fake with cart installed.
func New(cart engine.Cartridge) *Engine {
	e := &Engine{Cart: cart, pictures: make(map[engine.Variant]*image.RGBA)}
	for v, c := range VariantColors {
		img := image.NewRGBA(image.Rect(0, 0, engine.ScreenWidth, engine.ScreenHeight))
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
		}
		e.pictures[v] = img
	}
	return e
}

func (e *Engine) StepFrame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Frames++
	e.Cycles += CyclesPerFrame
	if e.Trace.Enabled && e.Trace.Log != nil && e.TraceLine != "" {
		e.Trace.Log.WriteString(e.TraceLine)
	}
	if e.OnStep != nil {
		e.OnStep(e)
	}
}

func (e *Engine) StepCycle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Cycles++
	if e.Cycles%CyclesPerFrame == 0 {
		e.Frames++
	}
}

func (e *Engine) FrameCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Frames
}

func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Resets++
}

func (e *Engine) InstallCartridge(cart engine.Cartridge) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Cart = cart
	e.Installs = append(e.Installs, Install{Cycle: e.Cycles + 1, Cart: cart.Name()})
}

func (e *Engine) PeekPPU(addr uint16) uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vram[addr&0x3FFF]
}

// PokePPU writes PPU address space directly.
func (e *Engine) PokePPU(addr uint16, value uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vram[addr&0x3FFF] = value
}

func (e *Engine) PPUCtrl() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl
}

// SetPPUCtrl sets the value PPUCtrl reports.
func (e *Engine) SetPPUCtrl(v uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctrl = v
}

func (e *Engine) Scroll() engine.Scroll {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scroll
}

// SetScroll sets the value Scroll reports.
func (e *Engine) SetScroll(s engine.Scroll) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scroll = s
}

func (e *Engine) RAM() []byte {
	return e.ram[:]
}

func (e *Engine) ScanPosition() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanline, e.dot
}

func (e *Engine) SetScanPosition(scanline, dot int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scanline, e.dot = scanline, dot
}

func (e *Engine) SetFM2Compat(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.FM2Compat = enabled
}

func (e *Engine) InputIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Index
}

func (e *Engine) SetInputIndex(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Index = index
}

func (e *Engine) SetMovie(frames []input.Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Movie = frames
}

func (e *Engine) SetSubFrameInput(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SubFrame = enabled
}

func (e *Engine) SetAlignment(alignment uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Alignment = alignment
}

func (e *Engine) SetComposite(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Composite = enabled
}

func (e *Engine) SetBorder(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Border = enabled
}

func (e *Engine) SetPort(frame input.Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Port = frame
	e.PortWrites = append(e.PortWrites, frame)
}

func (e *Engine) SetTrace(cfg engine.TraceConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Trace = cfg
}

func (e *Engine) Picture(v engine.Variant) *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pictures[v]
}

// Snapshot returns a copy of the recorded fields under the lock.
func (e *Engine) Snapshot() Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Engine{
		Cart:       e.Cart,
		Installs:   append([]Install(nil), e.Installs...),
		Cycles:     e.Cycles,
		Frames:     e.Frames,
		Resets:     e.Resets,
		Alignment:  e.Alignment,
		FM2Compat:  e.FM2Compat,
		Index:      e.Index,
		Movie:      e.Movie,
		SubFrame:   e.SubFrame,
		Composite:  e.Composite,
		Border:     e.Border,
		Port:       e.Port,
		PortWrites: append([]input.Frame(nil), e.PortWrites...),
		Trace:      e.Trace,
		scanline:   e.scanline,
		dot:        e.dot,
	}
}

// Factory builds fake engines and remembers the last one.
type Factory struct {
	mu      sync.Mutex
	Last    *Engine
	Powered int

	// FailLoad makes LoadCartridge fail for every ROM.
	FailLoad bool

	// FailPowerOn makes PowerOn fail.
	FailPowerOn bool
}

func (f *Factory) Name() string { return "enginetest" }

func (f *Factory) Extensions() []string { return []string{".nes"} }

func (f *Factory) LoadCartridge(name string, rom []byte) (engine.Cartridge, error) {
	if f.FailLoad {
		return nil, errors.New("enginetest: load refused")
	}
	if len(rom) == 0 {
		return nil, fmt.Errorf("enginetest: %s is empty", name)
	}
	return Cart(name), nil
}

func (f *Factory) PowerOn(cart engine.Cartridge, alignment uint8) (engine.Handle, error) {
	f.mu.Lock()
	fail := f.FailPowerOn
	f.mu.Unlock()
	if fail {
		return nil, errors.New("enginetest: power on refused")
	}
	e := New(cart)
	e.Alignment = alignment
	f.mu.Lock()
	f.Last = e
	f.Powered++
	f.mu.Unlock()
	return e, nil
}

// SetFailPowerOn switches PowerOn failures on or off.
func (f *Factory) SetFailPowerOn(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailPowerOn = fail
}

// LastEngine returns the engine built by the latest PowerOn.
func (f *Factory) LastEngine() *Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Last
}
