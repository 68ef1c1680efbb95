package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"tasnes/internal/debug"
	"tasnes/internal/engine"
	"tasnes/internal/graphics"
	"tasnes/internal/input"
	"tasnes/internal/nametable"
	"tasnes/internal/statsview"
)

// frozenInput is the source used without a window: the port never changes
// unless a movie drives it.
type frozenInput struct{}

func (frozenInput) Sample() (input.Frame, bool) { return 0, false }

// dumpingViewer dumps the nametable canvas at chosen frames.
type dumpingViewer struct {
	*nametable.Viewer
	dumper *debug.FrameDumper
	want   map[uint64]bool
	shown  uint64
}

func (v *dumpingViewer) Show(f *nametable.Frame) {
	v.Viewer.Show(f)
	v.shown++
	if v.want[v.shown] {
		if err := v.dumper.DumpNametable(f, v.shown); err != nil {
			log.Printf("[HEADLESS] nametable dump failed: %v", err)
		}
	}
}

// RunHeadless drives cores built by factory without a window until
// opts.Frames have run or ctx is cancelled. Frames listed in
// opts.DumpFrames are written as PNG under the dumps path.
func RunHeadless(ctx context.Context, factory engine.Factory, opts Options) error {
	config, err := loadConfig(opts)
	if err != nil {
		return err
	}
	return runHeadless(ctx, factory, config, opts)
}

func runHeadless(ctx context.Context, factory engine.Factory, config *Config, opts Options) error {
	if opts.ROMPath == "" && opts.SchedulePath == "" {
		return &ApplicationError{Component: "headless", Operation: "start", Err: ErrNoROM}
	}

	config.Emulation.Unthrottled = true

	display := graphics.NewHeadlessDisplay()
	dumper := debug.NewFrameDumper(config.Paths.Dumps)
	dumper.SetScale(config.Window.Scale)

	var viewer Viewer
	if len(opts.DumpFrames) > 0 {
		if err := dumper.Enable(); err != nil {
			return &ApplicationError{Component: "headless", Operation: "prepare dumps", Err: err}
		}
		perFrame := 1
		if opts.DumpNametable {
			perFrame++
		}
		if opts.DumpText {
			perFrame++
			if r := opts.DumpRegion; !r.Empty() {
				dumper.SetPixelFilter(debug.CreateRegionFilter(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1))
			}
		}
		dumper.SetMaxDumps(len(opts.DumpFrames) * perFrame)

		display.DumpFrames(func(n uint64, img *image.RGBA) {
			if err := dumper.DumpFrame(img, n); err != nil {
				log.Printf("[HEADLESS] frame dump failed: %v", err)
			}
			if opts.DumpText {
				if err := dumper.DumpFrameText(img, n); err != nil {
					log.Printf("[HEADLESS] text dump failed: %v", err)
				}
			}
		}, opts.DumpFrames...)

		if opts.DumpNametable {
			want := make(map[uint64]bool, len(opts.DumpFrames))
			for _, f := range opts.DumpFrames {
				want[f] = true
			}
			nv := nametable.NewViewer(config.NametableOptions(), nil)
			nv.SetLive(true)
			viewer = &dumpingViewer{Viewer: nv, dumper: dumper, want: want}
		}
	}

	if config.Debug.Statsview != "" {
		launchStats(config.Debug.Statsview)
		defer statsview.Stop()
	}

	application := New(factory, config, Deps{
		Display:    display,
		Screenshot: graphics.NewFileSink(config.Paths.Screenshots, config.Window.Scale),
		Source:     frozenInput{},
		Viewer:     viewer,
		Notifier:   LogNotifier{},
	})
	defer application.Close()

	if err := application.startup(opts); err != nil {
		return err
	}

	log.Printf("[HEADLESS] running %s", describeLimit(opts.Frames))
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[HEADLESS] stopped after %d frames", display.FrameCount())
			return nil
		case <-ticker.C:
			if opts.Frames > 0 && display.FrameCount() >= opts.Frames {
				if err := application.Close(); err != nil {
					return err
				}
				log.Printf("[HEADLESS] finished after %d frames, %d files dumped", display.FrameCount(), dumper.DumpCount())
				return nil
			}
		}
	}
}

func describeLimit(frames uint64) string {
	if frames == 0 {
		return "until interrupted"
	}
	return fmt.Sprintf("for %d frames", frames)
}
