// Package swap replays cartridge hot-swaps at exact master clock cycles and
// then falls back to ordinary frame stepping.
package swap

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"tasnes/internal/engine"
)

var (
	ErrEmpty    = errors.New("swap schedule has no cartridges")
	ErrLength   = errors.New("swap schedule cycle and target lists differ in length")
	ErrUnsorted = errors.New("swap schedule cycles are not strictly increasing")
	ErrTarget   = errors.New("swap schedule target out of range")
)

// Schedule is a list of (cycle, cartridge index) swaps. Cartridges[0] is
// the cartridge the sequence boots with.
type Schedule struct {
	Cycles     []uint64
	Targets    []int
	Cartridges []engine.Cartridge

	// ColdBoot starts the sequence from power-on instead of a reset of the
	// running core.
	ColdBoot bool
}

// Validate checks the schedule's shape. Cycles count from 1 and must be
// strictly increasing.
func (s Schedule) Validate() error {
	if len(s.Cartridges) == 0 {
		return ErrEmpty
	}
	if len(s.Cycles) != len(s.Targets) {
		return fmt.Errorf("%w: %d cycles, %d targets", ErrLength, len(s.Cycles), len(s.Targets))
	}
	var prev uint64
	for i, c := range s.Cycles {
		if c <= prev {
			return fmt.Errorf("%w: entry %d has cycle %d after %d", ErrUnsorted, i, c, prev)
		}
		prev = c
	}
	for i, t := range s.Targets {
		if t < 0 || t >= len(s.Cartridges) {
			return fmt.Errorf("%w: entry %d targets cartridge %d of %d", ErrTarget, i, t, len(s.Cartridges))
		}
	}
	return nil
}

// Boot returns the cartridge the sequence starts with.
func (s Schedule) Boot() engine.Cartridge {
	return s.Cartridges[0]
}

// Target is the part of a core the scheduler drives.
type Target interface {
	engine.Stepper
	InstallCartridge(cart engine.Cartridge)
}

// Scheduler steps a core through a Schedule. Advance is called from one
// goroutine; the progress accessors may be called from any.
type Scheduler struct {
	schedule Schedule

	cycle  atomic.Uint64 // next cycle to execute, from 1
	cursor atomic.Int64  // next schedule entry
}

// New validates schedule and returns a scheduler positioned before cycle 1.
func New(schedule Schedule) (*Scheduler, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{schedule: schedule}
	s.cycle.Store(1)
	return s, nil
}

// Schedule returns the schedule being replayed.
func (s *Scheduler) Schedule() Schedule {
	return s.schedule
}

// Cycle returns the number of the next cycle to execute.
func (s *Scheduler) Cycle() uint64 {
	return s.cycle.Load()
}

// Pending returns how many swaps have not happened yet.
func (s *Scheduler) Pending() int {
	return len(s.schedule.Cycles) - int(s.cursor.Load())
}

// Done reports whether every swap has happened.
func (s *Scheduler) Done() bool {
	return s.Pending() == 0
}

// step installs the swap due at the current cycle, if any, then executes
// the cycle.
func (s *Scheduler) step(target Target) {
	n := s.cycle.Load()
	if i := int(s.cursor.Load()); i < len(s.schedule.Cycles) && s.schedule.Cycles[i] == n {
		cart := s.schedule.Cartridges[s.schedule.Targets[i]]
		target.InstallCartridge(cart)
		s.cursor.Store(int64(i + 1))
		log.Printf("[SWAP] cycle %d: installed %s (%d pending)", n, cart.Name(), s.Pending())
	}
	target.StepCycle()
	s.cycle.Store(n + 1)
}

// Advance moves the core forward by one displayed frame. While swaps are
// pending it steps single cycles; the frame is finished with StepFrame if
// the schedule runs out part way through it.
func (s *Scheduler) Advance(target Target) {
	if s.Done() {
		target.StepFrame()
		return
	}

	start := target.FrameCount()
	for !s.Done() {
		s.step(target)
		if target.FrameCount() != start {
			return
		}
	}
	target.StepFrame()
}

// Run executes exactly cycles cycles, swapping as scheduled.
func (s *Scheduler) Run(target Target, cycles uint64) {
	for i := uint64(0); i < cycles; i++ {
		s.step(target)
	}
}
