package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tasnes/internal/engine"
	"tasnes/internal/engine/enginetest"
	"tasnes/internal/graphics"
	"tasnes/internal/input"
	"tasnes/internal/movie"
	"tasnes/internal/nametable"
	"tasnes/internal/swap"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type pane struct{ visible bool }

func (p *pane) SetNametableVisible(v bool) { p.visible = v }

// writeROM writes a minimal one-bank iNES image.
func writeROM(t *testing.T, dir, name string) string {
	t.Helper()
	data := make([]byte, 16+16384)
	copy(data, "NES\x1a")
	data[4] = 1
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	c := NewConfig()
	c.Emulation.Unthrottled = true
	c.Paths = PathsConfig{
		ROMs:        filepath.Join(dir, "roms"),
		Screenshots: filepath.Join(dir, "screenshots"),
		Traces:      filepath.Join(dir, "traces"),
		Dumps:       filepath.Join(dir, "dumps"),
	}
	return c
}

type fixture struct {
	app      *Application
	factory  *enginetest.Factory
	display  *graphics.HeadlessDisplay
	notifier *recordingNotifier
	ctrl     *input.Controller
	viewer   *nametable.Viewer
	pane     *pane
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		factory:  &enginetest.Factory{},
		display:  graphics.NewHeadlessDisplay(),
		notifier: &recordingNotifier{},
		ctrl:     input.New(),
		viewer:   nametable.NewViewer(nametable.Options{}, nil),
		pane:     &pane{},
		dir:      t.TempDir(),
	}
	f.app = New(f.factory, testConfig(t), Deps{
		Display:       f.display,
		Source:        f.ctrl,
		Viewer:        f.viewer,
		Notifier:      f.notifier,
		NametablePane: f.pane,
	})
	t.Cleanup(func() { f.app.Close() })
	return f
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out")
		}
		time.Sleep(time.Millisecond)
	}
}

func carts(names ...string) []engine.Cartridge {
	out := make([]engine.Cartridge, len(names))
	for i, n := range names {
		out[i] = enginetest.Cart(n)
	}
	return out
}

func TestLoadROMStartsClock(t *testing.T) {
	f := newFixture(t)
	path := writeROM(t, f.dir, "smb.nes")

	if err := f.app.LoadROM(path); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}

	waitFor(t, func() bool { return f.display.FrameCount() > 3 })
	if !f.app.Running() {
		t.Error("clock not running")
	}
	if s := f.app.Session(); s == nil || s.Name() != "smb.nes" || s.ROM.Path != path {
		t.Errorf("session = %+v", s)
	}
	if f.app.ROMPath() != path {
		t.Errorf("ROMPath = %q", f.app.ROMPath())
	}
}

func TestLoadROMFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	if err := f.app.LoadROM(writeROM(t, f.dir, "a.nes")); err != nil {
		t.Fatal(err)
	}
	before := f.app.Session()

	err := f.app.LoadROM(filepath.Join(f.dir, "missing.nes"))
	var aerr *ApplicationError
	if !errors.As(err, &aerr) || aerr.Component != "cartridge" {
		t.Fatalf("error = %v, want cartridge ApplicationError", err)
	}
	if f.app.Session() != before || !f.app.Running() {
		t.Error("failed load replaced the session")
	}
	if f.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", f.notifier.count())
	}
}

func TestLoadROMSupersedesClock(t *testing.T) {
	f := newFixture(t)
	if err := f.app.LoadROM(writeROM(t, f.dir, "a.nes")); err != nil {
		t.Fatal(err)
	}
	first := f.factory.LastEngine()
	waitFor(t, func() bool { return first.FrameCount() > 0 })

	if err := f.app.LoadROM(writeROM(t, f.dir, "b.nes")); err != nil {
		t.Fatal(err)
	}
	second := f.factory.LastEngine()
	if first == second {
		t.Fatal("no new engine")
	}

	frozen := first.FrameCount()
	waitFor(t, func() bool { return second.FrameCount() > 3 })
	if got := first.FrameCount(); got != frozen {
		t.Errorf("old engine stepped after supersede: %d -> %d", frozen, got)
	}
}

func TestStartMovieWithoutROMLeavesClockRunning(t *testing.T) {
	f := newFixture(t)
	if err := f.app.StartSwapSequence(swap.Schedule{Cartridges: carts("boot"), ColdBoot: true}); err != nil {
		t.Fatal(err)
	}
	running := f.factory.LastEngine()
	session := f.app.Session()
	waitFor(t, func() bool { return running.FrameCount() > 0 })

	_, err := f.app.StartMovie(movie.Descriptor{Format: movie.FormatFM2})

	var perr *PreconditionError
	if !errors.As(err, &perr) || !errors.Is(err, ErrNoROM) {
		t.Fatalf("error = %v, want precondition ErrNoROM", err)
	}
	if f.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", f.notifier.count())
	}
	if f.app.Session() != session || f.factory.LastEngine() != running {
		t.Error("session replaced")
	}

	n := running.FrameCount()
	waitFor(t, func() bool { return running.FrameCount() > n+3 })
	if !f.app.Running() {
		t.Error("clock stopped")
	}
}

func TestStartMovieSynchronizes(t *testing.T) {
	f := newFixture(t)
	f.app.SelectROM(writeROM(t, f.dir, "smb.nes"))

	plan, err := f.app.StartMovie(movie.Descriptor{
		Format:             movie.FormatFM2,
		Inputs:             []input.Frame{0x88},
		StartIndex:         5,
		Alignment:          3,
		AlternateFrameZero: true,
	})
	if err != nil {
		t.Fatalf("StartMovie: %v", err)
	}
	if plan.StartIndex != 4 {
		t.Errorf("plan start = %d, want 4", plan.StartIndex)
	}

	e := f.factory.LastEngine()
	s := e.Snapshot()
	if s.Alignment != 3 || !s.FM2Compat || len(s.Movie) != 1 {
		t.Errorf("engine not synchronized: %+v", s)
	}
	if f.app.Flags().Alignment() != 3 {
		t.Errorf("flags alignment = %d", f.app.Flags().Alignment())
	}
	waitFor(t, func() bool { return e.FrameCount() > 0 })
}

func TestStartMovieBadDescriptorKeepsSession(t *testing.T) {
	f := newFixture(t)
	if err := f.app.LoadROM(writeROM(t, f.dir, "a.nes")); err != nil {
		t.Fatal(err)
	}
	session := f.app.Session()

	_, err := f.app.StartMovie(movie.Descriptor{Format: movie.FormatUnknown})
	if !errors.Is(err, movie.ErrUnknownFormat) {
		t.Fatalf("error = %v", err)
	}
	if f.app.Session() != session || !f.app.Running() {
		t.Error("bad descriptor disturbed the session")
	}
	if f.factory.Powered != 1 {
		t.Errorf("powered %d times", f.factory.Powered)
	}
}

func TestSwapFromResetNeedsPowerOn(t *testing.T) {
	f := newFixture(t)
	err := f.app.StartSwapSequence(swap.Schedule{Cartridges: carts("a")})
	if !errors.Is(err, ErrNotPoweredOn) {
		t.Fatalf("error = %v, want ErrNotPoweredOn", err)
	}
	if f.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", f.notifier.count())
	}
	if f.app.Running() {
		t.Error("clock started")
	}
}

func TestSwapInvalidSchedule(t *testing.T) {
	f := newFixture(t)
	err := f.app.StartSwapSequence(swap.Schedule{Cycles: []uint64{9, 3}, Targets: []int{0, 0}, Cartridges: carts("a"), ColdBoot: true})
	if !errors.Is(err, swap.ErrUnsorted) {
		t.Fatalf("error = %v, want ErrUnsorted", err)
	}
	if f.factory.Powered != 0 {
		t.Error("invalid schedule powered on a core")
	}
}

func TestSwapColdBoot(t *testing.T) {
	f := newFixture(t)
	s := swap.Schedule{
		Cycles:     []uint64{5, 12, 20},
		Targets:    []int{1, 2, 0},
		Cartridges: carts("boot", "one", "two"),
		ColdBoot:   true,
	}
	if err := f.app.StartSwapSequence(s); err != nil {
		t.Fatal(err)
	}

	e := f.factory.LastEngine()
	waitFor(t, func() bool { return e.FrameCount() > 10 })
	f.app.Close()

	want := []enginetest.Install{{Cycle: 5, Cart: "one"}, {Cycle: 12, Cart: "two"}, {Cycle: 20, Cart: "boot"}}
	got := e.Snapshot().Installs
	if len(got) != len(want) {
		t.Fatalf("installs = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("install %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSwapFromReset(t *testing.T) {
	f := newFixture(t)
	if err := f.app.LoadROM(writeROM(t, f.dir, "a.nes")); err != nil {
		t.Fatal(err)
	}
	e := f.factory.LastEngine()
	session := f.app.Session()

	s := swap.Schedule{Cycles: []uint64{3}, Targets: []int{1}, Cartridges: carts("boot", "other")}
	if err := f.app.StartSwapSequence(s); err != nil {
		t.Fatal(err)
	}
	if f.factory.LastEngine() != e || f.app.Session() != session {
		t.Fatal("warm start replaced the core")
	}

	waitFor(t, func() bool { return len(e.Snapshot().Installs) == 2 })
	snap := e.Snapshot()
	if snap.Resets != 1 {
		t.Errorf("resets = %d, want 1", snap.Resets)
	}
	if snap.Installs[0].Cart != "boot" || snap.Installs[1].Cart != "other" {
		t.Errorf("installs = %+v", snap.Installs)
	}
}

func TestResetKeepsSession(t *testing.T) {
	f := newFixture(t)
	if err := f.app.Reset(); !errors.Is(err, ErrNotPoweredOn) {
		t.Fatalf("Reset without session = %v", err)
	}

	if err := f.app.LoadROM(writeROM(t, f.dir, "a.nes")); err != nil {
		t.Fatal(err)
	}
	session := f.app.Session()
	if err := f.app.Reset(); err != nil {
		t.Fatal(err)
	}
	if f.app.Session() != session {
		t.Error("reset replaced the session")
	}
	e := f.factory.LastEngine()
	if e.Snapshot().Resets != 1 {
		t.Errorf("resets = %d", e.Snapshot().Resets)
	}
	n := e.FrameCount()
	waitFor(t, func() bool { return e.FrameCount() > n })
}

func TestPowerCycleReplacesSession(t *testing.T) {
	f := newFixture(t)
	if err := f.app.PowerCycle(); !errors.Is(err, ErrNotPoweredOn) {
		t.Fatalf("PowerCycle without session = %v", err)
	}

	if err := f.app.LoadROM(writeROM(t, f.dir, "a.nes")); err != nil {
		t.Fatal(err)
	}
	f.app.SetAlignment(2)
	old := f.app.Session()
	if err := f.app.PowerCycle(); err != nil {
		t.Fatal(err)
	}
	if f.app.Session() == old {
		t.Error("power cycle kept the session")
	}
	if f.factory.Powered != 2 {
		t.Errorf("powered %d times, want 2", f.factory.Powered)
	}
	if a := f.factory.LastEngine().Snapshot().Alignment; a != 2 {
		t.Errorf("alignment = %d, want 2", a)
	}
}

func TestHandleCommands(t *testing.T) {
	f := newFixture(t)

	if err := f.app.Handle(graphics.CommandToggleComposite); err != nil || !f.app.Flags().Composite() {
		t.Errorf("composite toggle: %v", err)
	}
	f.app.Handle(graphics.CommandToggleBorder)
	if !f.app.Flags().Border() {
		t.Error("border not toggled")
	}

	f.app.Handle(graphics.CommandScreenshot)
	if !f.app.Flags().TakeScreenshot() {
		t.Error("screenshot not requested")
	}

	f.app.Handle(graphics.CommandToggleNametable)
	if !f.viewer.Live() || !f.pane.visible {
		t.Error("nametable not opened")
	}
	f.app.Handle(graphics.CommandToggleNametable)
	if f.viewer.Live() || f.pane.visible {
		t.Error("nametable not closed")
	}

	if err := f.app.Handle(graphics.CommandQuit); !errors.Is(err, graphics.ErrQuit) {
		t.Errorf("quit = %v", err)
	}
	if err := f.app.Handle(graphics.CommandReset); !errors.Is(err, ErrNotPoweredOn) {
		t.Errorf("reset = %v", err)
	}
}

func TestLiveInputReachesEngine(t *testing.T) {
	f := newFixture(t)
	f.ctrl.SetButton(input.Up, true)
	f.ctrl.SetButton(input.A, true)

	if err := f.app.LoadROM(writeROM(t, f.dir, "a.nes")); err != nil {
		t.Fatal(err)
	}
	e := f.factory.LastEngine()
	waitFor(t, func() bool { return e.FrameCount() > 0 })
	if got := e.Snapshot().Port; got != 0x88 {
		t.Errorf("port = %02X, want 88", uint8(got))
	}
}

func TestTraceFilePerSession(t *testing.T) {
	f := newFixture(t)
	f.app.config.Debug.Trace.Enabled = true

	if err := f.app.LoadROM(writeROM(t, f.dir, "a.nes")); err != nil {
		t.Fatal(err)
	}
	e := f.factory.LastEngine()
	waitFor(t, func() bool { return e.Snapshot().Trace.Enabled })
	f.app.Close()

	entries, err := os.ReadDir(f.app.config.Paths.Traces)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("trace files = %d, want 1", len(entries))
	}
}

func TestPowerOnFailureDropsSession(t *testing.T) {
	f := newFixture(t)
	path := writeROM(t, f.dir, "a.nes")
	if err := f.app.LoadROM(path); err != nil {
		t.Fatal(err)
	}
	old := f.factory.LastEngine()
	f.factory.SetFailPowerOn(true)

	_, err := f.app.StartMovie(movie.Descriptor{Format: movie.FormatFM2})
	var aerr *ApplicationError
	if !errors.As(err, &aerr) || aerr.Component != "engine" {
		t.Fatalf("StartMovie = %v, want engine ApplicationError", err)
	}
	if f.app.Session() != nil {
		t.Error("session kept without a clock driving it")
	}
	if f.app.Running() {
		t.Error("clock reported running")
	}
	if f.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", f.notifier.count())
	}

	frozen := old.FrameCount()
	time.Sleep(20 * time.Millisecond)
	if got := old.FrameCount(); got != frozen {
		t.Errorf("superseded core still stepping: %d -> %d", frozen, got)
	}

	if err := f.app.PowerCycle(); !errors.Is(err, ErrNotPoweredOn) {
		t.Errorf("PowerCycle after failure = %v, want ErrNotPoweredOn", err)
	}

	f.factory.SetFailPowerOn(false)
	if err := f.app.LoadROM(path); err != nil {
		t.Fatalf("LoadROM after recovery: %v", err)
	}
	if f.app.Session() == nil || !f.app.Running() {
		t.Error("no session after a successful load")
	}
}

func TestLoadROMPowerOnFailure(t *testing.T) {
	f := newFixture(t)
	f.factory.SetFailPowerOn(true)

	if err := f.app.LoadROM(writeROM(t, f.dir, "a.nes")); err == nil {
		t.Fatal("LoadROM succeeded with a failing core")
	}
	if f.app.Session() != nil || f.app.Running() {
		t.Error("failed power-on left a session")
	}
}

func TestSaveSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasnes.json")
	config := testConfig(t)
	if err := config.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}

	a := New(&enginetest.Factory{}, config, Deps{Display: graphics.NewHeadlessDisplay(), Source: input.New()})
	a.ToggleComposite()
	a.SetAlignment(3)
	if err := a.SaveSettings(); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	reloaded := NewConfig()
	if err := reloaded.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	if !reloaded.Video.Composite || reloaded.Video.Border || reloaded.Emulation.Alignment != 3 {
		t.Errorf("saved settings = %+v %+v", reloaded.Video, reloaded.Emulation)
	}
}

func TestSaveSettingsWithoutFile(t *testing.T) {
	a := New(&enginetest.Factory{}, testConfig(t), Deps{Display: graphics.NewHeadlessDisplay(), Source: input.New()})
	var aerr *ApplicationError
	if err := a.SaveSettings(); !errors.As(err, &aerr) {
		t.Errorf("SaveSettings = %v, want ApplicationError", err)
	}
}
