// Package main implements the tasnes command line tool. It inspects movie
// synchronization plans and cartridge swap schedules without a core.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"tasnes/internal/cartridge"
	"tasnes/internal/engine"
	"tasnes/internal/movie"
	"tasnes/internal/swap"
	"tasnes/internal/version"
)

var errUsage = errors.New("usage")

func main() {
	setupGracefulShutdown()

	pretty := term.IsTerminal(int(os.Stdout.Fd()))
	if err := run(os.Args[1:], os.Stdout, pretty); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// run executes one subcommand. pretty selects aligned, decorated output
// for a terminal.
func run(args []string, out io.Writer, pretty bool) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "plan":
		return runPlan(args[1:], out, pretty)
	case "schedule":
		return runSchedule(args[1:], out, pretty)
	case "version", "-version", "--version":
		version.PrintBuildInfo(out, "")
		return nil
	case "help", "-help", "--help", "-h":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func runPlan(args []string, out io.Writer, pretty bool) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		alt       = fs.Bool("alt", false, "Use the alternate frame-zero timing")
		start     = fs.Int("start", 0, "Index of the first input as recorded")
		alignment = fs.Uint("alignment", 0, "CPU/PPU clock alignment (0-3)")
		subframe  = fs.Bool("subframe", false, "One input per controller latch")
	)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: plan needs one movie file", errUsage)
	}

	format, err := movie.FormatFromPath(fs.Arg(0))
	if err != nil {
		return err
	}
	if *alignment > 3 {
		return fmt.Errorf("%w: %d", movie.ErrAlignment, *alignment)
	}

	plan, err := movie.PlanFor(movie.Descriptor{
		Format:             format,
		SubFrame:           *subframe,
		StartIndex:         *start,
		Alignment:          uint8(*alignment),
		AlternateFrameZero: *alt,
	})
	if err != nil {
		return err
	}

	if !pretty {
		fmt.Fprintln(out, plan)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "🎬 %s\n", fs.Arg(0))
	fmt.Fprintf(w, "  Format:\t%s (%s)\n", plan.Format, plan.Class)
	fmt.Fprintf(w, "  RAM:\t%s\n", pick(plan.SeededRAM, "seeded", "untouched"))
	if plan.SetScan {
		scanline := "current"
		if plan.Scanline >= 0 {
			scanline = fmt.Sprint(plan.Scanline)
		}
		fmt.Fprintf(w, "  Scan position:\tscanline %s, dot %d\n", scanline, plan.Dot)
	} else {
		fmt.Fprintf(w, "  Scan position:\tuntouched\n")
	}
	fmt.Fprintf(w, "  FM2 compat:\t%s\n", pick(plan.FM2Compat, "on", "off"))
	fmt.Fprintf(w, "  Start index:\t%d\n", plan.StartIndex)
	fmt.Fprintf(w, "  Alignment:\t%d\n", plan.Alignment)
	fmt.Fprintf(w, "  Input:\t%s\n", pick(plan.SubFrame, "per latch", "per frame"))
	return w.Flush()
}

// namedCart stands in for a core cartridge when only the schedule is
// checked.
type namedCart string

func (c namedCart) Name() string { return string(c) }

func runSchedule(args []string, out io.Writer, pretty bool) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dryRun := fs.Uint64("dry-run", 0, "Step the schedule this many cycles and list the installs")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: schedule needs one schedule file", errUsage)
	}

	file, err := swap.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	var roms []*cartridge.ROM
	s, err := file.Schedule(func(path string) (engine.Cartridge, error) {
		rom, err := cartridge.Load(path, nil)
		if err != nil {
			return nil, err
		}
		roms = append(roms, rom)
		return namedCart(rom.Name), nil
	})
	if err != nil {
		return err
	}

	var w io.Writer = out
	var tw *tabwriter.Writer
	if pretty {
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		w = tw
		fmt.Fprintf(w, "📁 %s: %d cartridges, %d swaps, %s\n", fs.Arg(0), len(roms), len(s.Cycles), pick(s.ColdBoot, "cold boot", "from reset"))
	}

	fmt.Fprintf(w, "#\tROM\tHeader\n")
	for i, rom := range roms {
		info := "not iNES"
		if rom.Info.PRGSize > 0 {
			info = rom.Info.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, rom.Name, info)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Cycle\tTarget\tROM\n")
	for i, c := range s.Cycles {
		fmt.Fprintf(w, "%d\t%d\t%s\n", c, s.Targets[i], roms[s.Targets[i]].Name)
	}

	if *dryRun > 0 {
		sched, err := swap.New(s)
		if err != nil {
			return err
		}
		target := &dryTarget{}
		sched.Run(target, *dryRun)

		fmt.Fprintln(w)
		fmt.Fprintf(w, "Dry run: %d cycles, %d installs, %d pending\n", *dryRun, len(target.installs), sched.Pending())
		for _, in := range target.installs {
			fmt.Fprintf(w, "  %d\t%s\n", in.cycle, in.name)
		}
	}

	if tw != nil {
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out, "✅ schedule is valid")
	}
	return nil
}

type install struct {
	cycle uint64
	name  string
}

// dryTarget counts cycles and records installs instead of emulating.
type dryTarget struct {
	cycles   uint64
	installs []install
}

// dryCyclesPerFrame is one NTSC frame in CPU cycles, rounded up.
const dryCyclesPerFrame = 29781

func (t *dryTarget) StepFrame() { t.cycles += dryCyclesPerFrame - t.cycles%dryCyclesPerFrame }

func (t *dryTarget) StepCycle() { t.cycles++ }

func (t *dryTarget) FrameCount() uint64 { return t.cycles / dryCyclesPerFrame }

func (t *dryTarget) InstallCartridge(cart engine.Cartridge) {
	t.installs = append(t.installs, install{cycle: t.cycles + 1, name: cart.Name()})
}

func pick(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

// setupGracefulShutdown sets up signal handling for graceful shutdown
func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\n🛑 Interrupt received, shutting down...")
		os.Exit(130)
	}()
}

func printUsage(w io.Writer) {
	formats := make([]string, 0, len(movie.Formats()))
	for _, f := range movie.Formats() {
		formats = append(formats, f.Extension())
	}

	fmt.Fprintln(w, "tasnes - NES TAS frontend tools")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  tasnes plan [-alt] [-start N] [-alignment N] [-subframe] <movie>")
	fmt.Fprintln(w, "  tasnes schedule [-dry-run CYCLES] <schedule.json>")
	fmt.Fprintln(w, "  tasnes version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  plan      Print how a movie of this format is synchronized to a core")
	fmt.Fprintln(w, "  schedule  Validate a cartridge swap schedule and inspect its ROMs")
	fmt.Fprintln(w, "  version   Show build information")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "MOVIE FORMATS:\n  %s\n", strings.Join(formats, " "))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "SCHEDULE FILE:")
	fmt.Fprintln(w, `  {"cycles": [5000, 90000], "targets": [1, 0], "roms": ["a.nes", "b.nes"], "cold_boot": true}`)
}
