// Package clock runs the frame loop of one emulation session: sample input,
// step the core, publish the picture, feed the diagnostics. One Clock
// drives one core; a new session stops the old clock before starting its
// own.
package clock

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"tasnes/internal/engine"
	"tasnes/internal/graphics"
	"tasnes/internal/input"
	"tasnes/internal/nametable"
)

// Flags are the session switches the loop reads once per frame.
type Flags interface {
	Composite() bool
	Border() bool

	// TakeScreenshot reports a pending screenshot request and clears it.
	TakeScreenshot() bool
}

// Tracer persists the core's trace log.
type Tracer interface {
	Enabled() bool
	Range() engine.AddressRange
	Flush(buf *bytes.Buffer) error
}

// Viewer receives decoded nametable frames while it is live.
type Viewer interface {
	Live() bool
	Options() nametable.Options
	Show(f *nametable.Frame)
}

// Advancer moves the core forward by one displayed frame.
type Advancer interface {
	Advance(h engine.Handle)
}

// AdvancerFunc adapts a function to Advancer.
type AdvancerFunc func(h engine.Handle)

// Advance calls f(h).
func (f AdvancerFunc) Advance(h engine.Handle) { f(h) }

// StepFrames is the default Advancer.
var StepFrames = AdvancerFunc(func(h engine.Handle) { h.StepFrame() })

// NTSCFrameTime is one frame at the NTSC rate of about 60.0988 Hz.
const NTSCFrameTime = 16639267 * time.Nanosecond

// Config wires a clock to its core and sinks. Engine, Flags, Source and
// Display are required.
type Config struct {
	Engine     engine.Handle
	Flags      Flags
	Source     input.Source
	Display    graphics.Display
	Screenshot graphics.ScreenshotSink
	Tracer     Tracer
	Viewer     Viewer
	Advancer   Advancer

	// FrameTime paces the loop; zero runs it as fast as the core allows.
	FrameTime time.Duration

	Debug bool
}

// Clock is the frame loop goroutine of one session.
type Clock struct {
	config Config

	// trace is the log buffer shared with the core. Only the loop touches it.
	trace bytes.Buffer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	frames    atomic.Uint64
}

// New creates a stopped clock.
func New(config Config) *Clock {
	if config.Advancer == nil {
		config.Advancer = StepFrames
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Clock{
		config: config,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the loop. Calling it again has no effect.
func (c *Clock) Start() {
	c.startOnce.Do(func() {
		c.started.Store(true)
		go c.run()
	})
}

// Stop asks the loop to exit and waits until it has. The core is not
// stepped after Stop returns. Stop is safe to call more than once and
// before Start.
func (c *Clock) Stop() {
	c.stopOnce.Do(c.cancel)
	if c.started.Load() {
		<-c.done
	}
}

// Done is closed when the loop has exited.
func (c *Clock) Done() <-chan struct{} {
	return c.done
}

// Frames returns the number of frames advanced.
func (c *Clock) Frames() uint64 {
	return c.frames.Load()
}

// Running reports whether the loop has started and not yet exited.
func (c *Clock) Running() bool {
	if !c.started.Load() {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Clock) run() {
	defer close(c.done)
	log.Printf("[CLOCK] started")

	var pace <-chan time.Time
	if c.config.FrameTime > 0 {
		ticker := time.NewTicker(c.config.FrameTime)
		defer ticker.Stop()
		pace = ticker.C
	}

	for {
		select {
		case <-c.ctx.Done():
			log.Printf("[CLOCK] stopped after %d frames", c.frames.Load())
			return
		default:
		}
		c.tick()

		if pace != nil {
			select {
			case <-c.ctx.Done():
			case <-pace:
			}
		}
	}
}

// tick runs one iteration of the loop.
func (c *Clock) tick() {
	cfg := &c.config
	h := cfg.Engine
	composite, border := cfg.Flags.Composite(), cfg.Flags.Border()
	variant := engine.VariantFor(composite, border)

	if cfg.Flags.TakeScreenshot() {
		c.screenshot(variant)
	}

	if f, ok := cfg.Source.Sample(); ok {
		h.SetPort(f)
	}

	tracing := cfg.Tracer != nil && cfg.Tracer.Enabled()
	if tracing {
		h.SetTrace(engine.TraceConfig{Enabled: true, Range: cfg.Tracer.Range(), Log: &c.trace})
	} else {
		h.SetTrace(engine.TraceConfig{Log: &c.trace})
		c.trace.Reset()
	}

	h.SetComposite(composite)
	h.SetBorder(border)
	cfg.Advancer.Advance(h)
	n := c.frames.Add(1)

	if pic := h.Picture(variant); pic != nil {
		cfg.Display.Publish(pic)
	}

	if tracing {
		if err := cfg.Tracer.Flush(&c.trace); err != nil {
			log.Printf("[CLOCK] trace flush failed: %v", err)
		}
	}

	if cfg.Viewer != nil && cfg.Viewer.Live() {
		cfg.Viewer.Show(nametable.Decode(nametable.Capture(h), cfg.Viewer.Options()))
	}

	if cfg.Debug && n%600 == 0 {
		log.Printf("[CLOCK] frame %d (core frame %d, %s)", n, h.FrameCount(), variant)
	}
}

func (c *Clock) screenshot(variant engine.Variant) {
	if c.config.Screenshot == nil {
		log.Printf("[CLOCK] screenshot requested but no sink attached")
		return
	}
	pic := c.config.Engine.Picture(variant)
	if pic == nil {
		return
	}
	img := image.NewRGBA(pic.Rect)
	draw.Draw(img, img.Rect, pic, pic.Rect.Min, draw.Src)
	if err := c.config.Screenshot.Capture(img); err != nil {
		log.Printf("[CLOCK] screenshot failed: %v", err)
	}
}
