package movie

import (
	"errors"
	"fmt"
	"log"

	"tasnes/internal/engine"
	"tasnes/internal/input"
)

// Power-on RAM values of the pattern-A and pattern-B tools.
const (
	RAMHigh = 0xFF
	RAMLow  = 0x00
)

// Start position used by the alternate frame-0 timing: the recording tool
// begins one scanline later than this core, at the start of the post-render
// line.
const (
	AltFrameZeroScanline = 240
	AltFrameZeroDot      = 0
)

var (
	// ErrNoROM is returned when there is no core to synchronize.
	ErrNoROM = errors.New("no ROM loaded")

	// ErrAlignment is returned for clock alignments outside 0-3.
	ErrAlignment = errors.New("alignment out of range")
)

// Policy is what synchronization does for one format.
type Policy struct {
	Class Class

	// SeedRAM fills working RAM with the striped power-on pattern.
	SeedRAM bool

	// AdjustStart applies the one-scanline start correction.
	AdjustStart bool
}

// policies is the only place format specific timing lives.
var policies = map[Format]Policy{
	FormatBK2:     {Class: PatternA, SeedRAM: true},
	FormatTASProj: {Class: PatternA, SeedRAM: true},
	FormatFM2:     {Class: PatternB, SeedRAM: true, AdjustStart: true},
	FormatFM3:     {Class: PatternB, SeedRAM: true, AdjustStart: true},
	FormatR08:     {Class: PatternC},
}

// PolicyFor returns the policy for f.
func PolicyFor(f Format) (Policy, error) {
	p, ok := policies[f]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	return p, nil
}

// Descriptor is a parsed movie, normalized by whatever read the file.
type Descriptor struct {
	Format Format
	Inputs []input.Frame

	// SubFrame means one input per controller latch instead of per frame.
	SubFrame bool

	// StartIndex is the index of the first input as the file records it.
	StartIndex int

	// Alignment is the CPU/PPU clock phase, 0-3.
	Alignment uint8

	// AlternateFrameZero selects the alternate start timing for pattern-B
	// movies.
	AlternateFrameZero bool
}

// Plan records what synchronization applied to a core.
type Plan struct {
	Format Format
	Class  Class

	SeededRAM bool

	// SetScan is true when the scan position was changed. Scanline is -1
	// when the plan was computed without a core and keeps the core's line.
	SetScan  bool
	Scanline int
	Dot      int

	FM2Compat  bool
	StartIndex int
	Alignment  uint8
	SubFrame   bool
	Inputs     int
}

func (p Plan) String() string {
	s := fmt.Sprintf("%s (%s): start=%d alignment=%d inputs=%d", p.Format, p.Class, p.StartIndex, p.Alignment, p.Inputs)
	if p.SeededRAM {
		s += " ram=seeded"
	}
	if p.SetScan {
		if p.Scanline < 0 {
			s += fmt.Sprintf(" scan=current/%d", p.Dot)
		} else {
			s += fmt.Sprintf(" scan=%d/%d", p.Scanline, p.Dot)
		}
	}
	if p.FM2Compat {
		s += " fm2compat"
	}
	if p.SubFrame {
		s += " subframe"
	}
	return s
}

// PlanFor computes the plan for desc without touching a core.
func PlanFor(desc Descriptor) (Plan, error) {
	policy, err := PolicyFor(desc.Format)
	if err != nil {
		return Plan{}, err
	}
	if desc.Alignment > 3 {
		return Plan{}, fmt.Errorf("%w: %d", ErrAlignment, desc.Alignment)
	}

	plan := Plan{
		Format:     desc.Format,
		Class:      policy.Class,
		SeededRAM:  policy.SeedRAM,
		StartIndex: desc.StartIndex,
		Alignment:  desc.Alignment,
		SubFrame:   desc.SubFrame,
		Inputs:     len(desc.Inputs),
	}

	if policy.AdjustStart {
		plan.SetScan = true
		if desc.AlternateFrameZero {
			plan.Scanline = AltFrameZeroScanline
			plan.Dot = AltFrameZeroDot
			plan.FM2Compat = true
			plan.StartIndex = desc.StartIndex - 1
		} else {
			plan.Scanline = -1
			plan.Dot = 0
			plan.StartIndex = desc.StartIndex + 1
		}
	}
	return plan, nil
}

// SeedRAM fills ram with RAMHigh at offsets whose low three bits exceed 4
// and RAMLow elsewhere.
func SeedRAM(ram []byte) {
	for i := range ram {
		if i&7 > 4 {
			ram[i] = RAMHigh
		} else {
			ram[i] = RAMLow
		}
	}
}

// Synchronize applies desc's policy to a freshly powered-on core and
// installs the inputs. On error target is left untouched. target must be a
// live core: a nil interface yields ErrNoROM, but a typed nil pointer
// stored in the interface is not detected.
func Synchronize(target engine.Syncable, desc Descriptor) (Plan, error) {
	if target == nil {
		return Plan{}, ErrNoROM
	}

	plan, err := PlanFor(desc)
	if err != nil {
		return Plan{}, err
	}

	if plan.SeededRAM {
		SeedRAM(target.RAM())
	}

	if plan.SetScan {
		if plan.Scanline < 0 {
			plan.Scanline, _ = target.ScanPosition()
		}
		target.SetScanPosition(plan.Scanline, plan.Dot)
	}
	if plan.FM2Compat {
		target.SetFM2Compat(true)
	}

	target.SetAlignment(plan.Alignment)
	target.SetSubFrameInput(plan.SubFrame)
	target.SetMovie(append([]input.Frame(nil), desc.Inputs...))
	target.SetInputIndex(plan.StartIndex)

	log.Printf("[SYNC] %s", plan)
	return plan, nil
}
