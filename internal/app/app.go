package app

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"tasnes/internal/cartridge"
	"tasnes/internal/clock"
	"tasnes/internal/engine"
	"tasnes/internal/graphics"
	"tasnes/internal/input"
	"tasnes/internal/movie"
	"tasnes/internal/swap"
	"tasnes/internal/trace"
)

// Viewer is a nametable viewer the user can open and close.
type Viewer interface {
	clock.Viewer
	SetLive(live bool)
}

// Deps are the frontend pieces an Application drives. Display and Source
// are required.
type Deps struct {
	Display    graphics.Display
	Screenshot graphics.ScreenshotSink
	Source     input.Source
	Viewer     Viewer
	Notifier   Notifier

	// NametablePane, if set, is told when the viewer opens or closes.
	NametablePane interface{ SetNametableVisible(visible bool) }

	// SetTitle, if set, receives a window title for each new session.
	SetTitle func(title string)
}

// Application is the command layer: every user action goes through it and
// it owns the single frame clock.
type Application struct {
	mu      sync.Mutex
	config  *Config
	factory engine.Factory
	flags   *Flags
	deps    Deps

	romPath  string
	session  *Session
	clock    *clock.Clock
	advancer clock.Advancer
	tracer   *trace.Tracer
}

// New creates an application with no session.
func New(factory engine.Factory, config *Config, deps Deps) *Application {
	if deps.Notifier == nil {
		deps.Notifier = LogNotifier{}
	}
	return &Application{
		config:  config,
		factory: factory,
		flags:   NewFlags(config.Video.Composite, config.Video.Border, config.Emulation.Alignment),
		deps:    deps,
	}
}

// Flags returns the shared session flags.
func (app *Application) Flags() *Flags {
	return app.flags
}

// Session returns the current session, or nil before the first power-on.
func (app *Application) Session() *Session {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.session
}

// Running reports whether a frame clock is advancing a core.
func (app *Application) Running() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.clock != nil && app.clock.Running()
}

// Frames returns the frames advanced by the current clock.
func (app *Application) Frames() uint64 {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.clock == nil {
		return 0
	}
	return app.clock.Frames()
}

// SelectROM sets the ROM used by the next power-on without loading it.
func (app *Application) SelectROM(path string) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.romPath = path
}

// ROMPath returns the selected ROM path.
func (app *Application) ROMPath() string {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.romPath
}

// LoadROM selects path and powers it on in a new session.
func (app *Application) LoadROM(path string) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	cart, rom, err := app.openCartridge(path)
	if err != nil {
		return err
	}

	app.romPath = path
	return app.powerOn(cart, rom, app.flags.Alignment(), clock.StepFrames)
}

// PowerCycle replaces the current session with a fresh power-on of the
// same cartridge.
func (app *Application) PowerCycle() error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.session == nil {
		return app.precondition("power cycle", ErrNotPoweredOn)
	}

	cart, rom := app.session.Cartridge, app.session.ROM
	if rom != nil {
		var err error
		if cart, rom, err = app.openCartridge(rom.Path); err != nil {
			return err
		}
	}
	return app.powerOn(cart, rom, app.flags.Alignment(), clock.StepFrames)
}

// Reset soft-resets the running core. A swap sequence in progress keeps
// its position.
func (app *Application) Reset() error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.session == nil {
		return app.precondition("reset", ErrNotPoweredOn)
	}

	app.stopClock()
	app.session.Handle.Reset()
	log.Printf("[APP] reset %s", app.session.Name())
	app.startClock(app.advancer)
	return nil
}

// StartMovie powers on the selected ROM, synchronizes the core to desc and
// starts playback.
func (app *Application) StartMovie(desc movie.Descriptor) (movie.Plan, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.romPath == "" {
		return movie.Plan{}, app.precondition("start movie", ErrNoROM)
	}
	if _, err := movie.PlanFor(desc); err != nil {
		return movie.Plan{}, &ApplicationError{Component: "movie", Operation: "start movie", Err: err}
	}

	cart, rom, err := app.openCartridge(app.romPath)
	if err != nil {
		return movie.Plan{}, err
	}

	app.supersede()
	handle, err := app.factory.PowerOn(cart, desc.Alignment)
	if err != nil {
		return movie.Plan{}, app.abandon("engine", "power on", err)
	}

	plan, err := movie.Synchronize(handle, desc)
	if err != nil {
		return movie.Plan{}, app.abandon("movie", "synchronize", err)
	}

	app.flags.SetAlignment(desc.Alignment)
	app.install(&Session{Handle: handle, Cartridge: cart, ROM: rom, Flags: app.flags})
	app.startClock(clock.StepFrames)
	return plan, nil
}

// StartSwapSequence replays s from a cold boot, or from a reset of the
// running core when s.ColdBoot is false.
func (app *Application) StartSwapSequence(s swap.Schedule) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	sched, err := swap.New(s)
	if err != nil {
		return &ApplicationError{Component: "swap", Operation: "start sequence", Err: err}
	}
	advance := clock.AdvancerFunc(func(h engine.Handle) { sched.Advance(h) })

	if s.ColdBoot {
		log.Printf("[SWAP] cold boot with %s, %d swaps", s.Boot().Name(), len(s.Cycles))
		return app.powerOn(s.Boot(), nil, app.flags.Alignment(), advance)
	}

	if app.session == nil {
		return app.precondition("start swap sequence from reset", ErrNotPoweredOn)
	}

	app.stopClock()
	app.session.Handle.InstallCartridge(s.Boot())
	app.session.Handle.Reset()
	app.session.Cartridge = s.Boot()
	app.session.ROM = nil
	log.Printf("[SWAP] reset into %s, %d swaps", s.Boot().Name(), len(s.Cycles))
	app.startClock(advance)
	return nil
}

// StartSwapSequenceFile loads a schedule file and its ROMs and starts it.
func (app *Application) StartSwapSequenceFile(path string) error {
	f, err := swap.ReadFile(path)
	if err != nil {
		return &ApplicationError{Component: "swap", Operation: "read schedule", Err: err}
	}
	s, err := f.Schedule(func(p string) (engine.Cartridge, error) {
		cart, _, err := cartridge.Open(app.factory, p)
		return cart, err
	})
	if err != nil {
		return &ApplicationError{Component: "swap", Operation: "load schedule", Err: err}
	}
	return app.StartSwapSequence(s)
}

// RequestScreenshot captures the next frame.
func (app *Application) RequestScreenshot() {
	app.flags.RequestScreenshot()
}

// ToggleComposite flips composite decoding and returns the new state.
func (app *Application) ToggleComposite() bool {
	on := !app.flags.Composite()
	app.flags.SetComposite(on)
	return on
}

// ToggleBorder flips the border and returns the new state.
func (app *Application) ToggleBorder() bool {
	on := !app.flags.Border()
	app.flags.SetBorder(on)
	return on
}

// SetAlignment sets the clock phase used from the next power-on.
func (app *Application) SetAlignment(a uint8) {
	app.flags.SetAlignment(a)
}

// ToggleNametable opens or closes the nametable viewer and returns whether
// it is now live.
func (app *Application) ToggleNametable() bool {
	v := app.deps.Viewer
	if v == nil {
		return false
	}
	live := !v.Live()
	v.SetLive(live)
	if app.deps.NametablePane != nil {
		app.deps.NametablePane.SetNametableVisible(live)
	}
	return live
}

// Handle runs a window command. Quit is returned as graphics.ErrQuit.
func (app *Application) Handle(cmd graphics.Command) error {
	if app.config.Debug.EnableLogging {
		log.Printf("[APP] command %s", cmd)
	}

	switch cmd {
	case graphics.CommandScreenshot:
		app.RequestScreenshot()
	case graphics.CommandToggleComposite:
		app.ToggleComposite()
	case graphics.CommandToggleBorder:
		app.ToggleBorder()
	case graphics.CommandToggleNametable:
		app.ToggleNametable()
	case graphics.CommandReset:
		return app.Reset()
	case graphics.CommandPowerCycle:
		return app.PowerCycle()
	case graphics.CommandQuit:
		return graphics.ErrQuit
	}
	return nil
}

// SaveSettings writes the current video toggles and alignment back to the
// configuration file they were loaded from.
func (app *Application) SaveSettings() error {
	app.config.Video.Composite = app.flags.Composite()
	app.config.Video.Border = app.flags.Border()
	app.config.Emulation.Alignment = app.flags.Alignment()
	if err := app.config.Save(); err != nil {
		return &ApplicationError{Component: "config", Operation: "save settings", Err: err}
	}
	return nil
}

// Close stops the clock and releases the session.
func (app *Application) Close() error {
	app.mu.Lock()
	defer app.mu.Unlock()

	err := app.supersede()
	app.session = nil
	return err
}

// precondition reports a refused command once to the user.
func (app *Application) precondition(op string, err error) error {
	perr := &PreconditionError{Operation: op, Err: err}
	app.deps.Notifier.Notify("tasnes", perr.Error())
	return perr
}

func (app *Application) openCartridge(path string) (engine.Cartridge, *cartridge.ROM, error) {
	cart, rom, err := cartridge.Open(app.factory, path)
	if err != nil {
		aerr := &ApplicationError{Component: "cartridge", Operation: "load ROM", Err: err}
		app.deps.Notifier.Notify("Load ROM failed", err.Error())
		return nil, nil, aerr
	}
	if app.config.Debug.EnableLogging {
		log.Printf("[APP] opened %s: %s", rom.Name, rom.Info)
	}
	return cart, rom, nil
}

// powerOn replaces the session with a new core running cart.
func (app *Application) powerOn(cart engine.Cartridge, rom *cartridge.ROM, alignment uint8, advancer clock.Advancer) error {
	app.supersede()

	handle, err := app.factory.PowerOn(cart, alignment)
	if err != nil {
		return app.abandon("engine", "power on", err)
	}

	app.install(&Session{Handle: handle, Cartridge: cart, ROM: rom, Flags: app.flags})
	app.startClock(advancer)
	return nil
}

// abandon drops a session whose clock was already superseded when building
// its replacement failed, so Session and Running agree.
func (app *Application) abandon(component, op string, err error) error {
	if app.session != nil {
		log.Printf("[APP] %s stopped, %s failed: %v", app.session.Name(), op, err)
	}
	app.session = nil
	app.advancer = nil
	aerr := &ApplicationError{Component: component, Operation: op, Err: err}
	app.deps.Notifier.Notify("tasnes", aerr.Error())
	return aerr
}

func (app *Application) install(s *Session) {
	app.session = s
	log.Printf("[APP] powered on %s with %s (alignment %d)", s.Name(), app.factory.Name(), app.flags.Alignment())

	if app.deps.SetTitle != nil {
		app.deps.SetTitle(fmt.Sprintf("tasnes - %s", s.Name()))
	}

	if app.config.Debug.Trace.Enabled {
		t, err := trace.Create(app.config.Paths.Traces, s.Name(), app.config.TraceSettings())
		if err != nil {
			log.Printf("[APP] tracing disabled: %v", err)
			return
		}
		app.tracer = t
	}
}

// supersede stops the clock and closes the session's trace. The old core
// is not stepped after it returns.
func (app *Application) supersede() error {
	app.stopClock()
	if app.tracer == nil {
		return nil
	}
	err := app.tracer.Close()
	app.tracer = nil
	if err != nil {
		log.Printf("[APP] %v", err)
	}
	return err
}

func (app *Application) stopClock() {
	if app.clock == nil {
		return
	}
	app.clock.Stop()
	app.clock = nil
}

func (app *Application) startClock(advancer clock.Advancer) {
	cfg := clock.Config{
		Engine:     app.session.Handle,
		Flags:      app.flags,
		Source:     app.deps.Source,
		Display:    app.deps.Display,
		Screenshot: app.deps.Screenshot,
		Advancer:   advancer,
		Debug:      app.config.Debug.EnableLogging,
	}
	if !app.config.Emulation.Unthrottled {
		cfg.FrameTime = clock.NTSCFrameTime
	}
	if app.tracer != nil {
		cfg.Tracer = app.tracer
	}
	if app.deps.Viewer != nil {
		cfg.Viewer = app.deps.Viewer
	}

	app.advancer = advancer
	app.clock = clock.New(cfg)
	app.clock.Start()
}

// isPrecondition reports whether err is a refused command.
func isPrecondition(err error) bool {
	var perr *PreconditionError
	return errors.As(err, &perr)
}
