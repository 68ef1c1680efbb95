package swap

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"tasnes/internal/engine"
	"tasnes/internal/engine/enginetest"
)

func carts(names ...string) []engine.Cartridge {
	out := make([]engine.Cartridge, len(names))
	for i, n := range names {
		out[i] = enginetest.Cart(n)
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		want     error
	}{
		{"ok", Schedule{Cycles: []uint64{5, 12, 20}, Targets: []int{1, 2, 0}, Cartridges: carts("a", "b", "c")}, nil},
		{"no swaps", Schedule{Cartridges: carts("a")}, nil},
		{"no cartridges", Schedule{}, ErrEmpty},
		{"length", Schedule{Cycles: []uint64{5}, Targets: []int{0, 0}, Cartridges: carts("a")}, ErrLength},
		{"unsorted", Schedule{Cycles: []uint64{12, 5}, Targets: []int{0, 0}, Cartridges: carts("a")}, ErrUnsorted},
		{"duplicate", Schedule{Cycles: []uint64{5, 5}, Targets: []int{0, 0}, Cartridges: carts("a")}, ErrUnsorted},
		{"cycle zero", Schedule{Cycles: []uint64{0}, Targets: []int{0}, Cartridges: carts("a")}, ErrUnsorted},
		{"target high", Schedule{Cycles: []uint64{1}, Targets: []int{1}, Cartridges: carts("a")}, ErrTarget},
		{"target negative", Schedule{Cycles: []uint64{1}, Targets: []int{-1}, Cartridges: carts("a")}, ErrTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schedule.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
			if _, err := New(tt.schedule); !errors.Is(err, tt.want) {
				t.Errorf("New() = %v, want %v", err, tt.want)
			}
		})
	}
}

func sample() Schedule {
	return Schedule{
		Cycles:     []uint64{5, 12, 20},
		Targets:    []int{1, 2, 0},
		Cartridges: carts("boot", "one", "two"),
	}
}

func TestRunInstallsBeforeTargetCycle(t *testing.T) {
	schedule := sample()
	s, err := New(schedule)
	if err != nil {
		t.Fatal(err)
	}
	e := enginetest.New(schedule.Boot())

	s.Run(e, 25)

	want := []enginetest.Install{
		{Cycle: 5, Cart: "one"},
		{Cycle: 12, Cart: "two"},
		{Cycle: 20, Cart: "boot"},
	}
	got := e.Snapshot()
	if !reflect.DeepEqual(got.Installs, want) {
		t.Errorf("installs = %+v, want %+v", got.Installs, want)
	}
	if got.Cycles != 25 {
		t.Errorf("cycles = %d, want 25", got.Cycles)
	}
	if s.Cycle() != 26 {
		t.Errorf("Cycle() = %d, want 26", s.Cycle())
	}
	if !s.Done() || s.Pending() != 0 {
		t.Errorf("Done = %t, Pending = %d", s.Done(), s.Pending())
	}

	s.Run(e, 100)
	if n := len(e.Snapshot().Installs); n != 3 {
		t.Errorf("swaps after exhaustion: %d installs", n)
	}
}

func TestRunPartial(t *testing.T) {
	s, _ := New(sample())
	e := enginetest.New(enginetest.Cart("boot"))

	s.Run(e, 4)
	if n := len(e.Snapshot().Installs); n != 0 {
		t.Fatalf("installed before cycle 5: %d", n)
	}
	if s.Pending() != 3 {
		t.Errorf("Pending = %d, want 3", s.Pending())
	}

	s.Run(e, 1)
	if got := e.Snapshot().Installs; len(got) != 1 || got[0].Cycle != 5 {
		t.Errorf("installs after cycle 5 = %+v", got)
	}
}

func TestAdvanceSwitchesToFrames(t *testing.T) {
	s, _ := New(sample())
	e := enginetest.New(enginetest.Cart("boot"))

	s.Advance(e)
	if got := e.Snapshot(); got.Frames != 1 || got.Cycles != 10 {
		t.Fatalf("after first Advance frames=%d cycles=%d, want 1/10", got.Frames, got.Cycles)
	}
	if s.Done() {
		t.Fatal("done after first frame")
	}

	s.Advance(e)
	if got := e.Snapshot(); got.Frames != 2 || got.Cycles != 20 || len(got.Installs) != 3 {
		t.Fatalf("after second Advance frames=%d cycles=%d installs=%d", got.Frames, got.Cycles, len(got.Installs))
	}
	if !s.Done() {
		t.Fatal("schedule not exhausted at cycle 20")
	}

	e.Reset()
	for i := 0; i < 5; i++ {
		s.Advance(e)
	}
	got := e.Snapshot()
	if got.Frames != 7 {
		t.Errorf("frames = %d, want 7", got.Frames)
	}
	if len(got.Installs) != 3 {
		t.Errorf("swaps after reset: %+v", got.Installs)
	}
	if got.Cart.Name() != "boot" {
		t.Errorf("final cartridge = %s, want boot", got.Cart.Name())
	}
}

func TestAdvanceFinishesPartialFrame(t *testing.T) {
	s, _ := New(Schedule{Cycles: []uint64{3}, Targets: []int{1}, Cartridges: carts("a", "b")})
	e := enginetest.New(enginetest.Cart("a"))

	s.Advance(e)

	got := e.Snapshot()
	if got.Frames != 1 {
		t.Errorf("frames = %d, want 1", got.Frames)
	}
	if len(got.Installs) != 1 || got.Installs[0].Cycle != 3 {
		t.Errorf("installs = %+v", got.Installs)
	}
}

func TestAdvanceEmptySchedule(t *testing.T) {
	s, _ := New(Schedule{Cartridges: carts("a")})
	e := enginetest.New(enginetest.Cart("a"))
	s.Advance(e)
	if got := e.Snapshot(); got.Frames != 1 || len(got.Installs) != 0 {
		t.Errorf("frames=%d installs=%d", got.Frames, len(got.Installs))
	}
}

func TestFileSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.json")
	data := `{"cycles":[5,12],"targets":[1,0],"roms":["a.nes","b.nes"],"cold_boot":true}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	s, err := f.Schedule(func(p string) (engine.Cartridge, error) { return enginetest.Cart(p), nil })
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if !s.ColdBoot || len(s.Cartridges) != 2 || s.Boot().Name() != "a.nes" {
		t.Errorf("schedule = %+v", s)
	}

	f.Targets = []int{1, 2}
	if _, err := f.Schedule(func(p string) (engine.Cartridge, error) { return enginetest.Cart(p), nil }); !errors.Is(err, ErrTarget) {
		t.Errorf("bad target error = %v", err)
	}

	loadErr := errors.New("boom")
	if _, err := f.Schedule(func(string) (engine.Cartridge, error) { return nil, loadErr }); !errors.Is(err, loadErr) {
		t.Errorf("load error = %v", err)
	}
}
