package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"tasnes/internal/engine"
	"tasnes/internal/graphics"
	"tasnes/internal/input"
	"tasnes/internal/movie"
	"tasnes/internal/nametable"
	"tasnes/internal/statsview"
)

// Options select what Run and RunHeadless start with.
type Options struct {
	// ConfigPath defaults to GetDefaultConfigPath.
	ConfigPath string

	// ROMPath is loaded at startup. With Movie set it is only selected and
	// the movie is started on it.
	ROMPath string
	Movie   *movie.Descriptor

	// SchedulePath is a swap schedule file started after the ROM, if any.
	SchedulePath string

	Debug bool

	// Frames stops a headless run after this many frames; 0 runs until
	// the context is cancelled.
	Frames uint64

	// DumpFrames are the frames a headless run writes as PNG.
	DumpFrames []uint64

	// DumpNametable also writes the nametable canvas at DumpFrames.
	DumpNametable bool

	// DumpText also writes DumpFrames as hex pixel rows, limited to
	// DumpRegion when it is not empty.
	DumpText   bool
	DumpRegion image.Rectangle
}

// loadConfig reads the configuration file and applies option overrides.
func loadConfig(opts Options) (*Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = GetDefaultConfigPath()
	}

	config := NewConfig()
	if err := config.LoadFromFile(path); err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			return nil, err
		}
		log.Printf("[APP] could not load config from %s, using defaults: %v", path, err)
		config = NewConfig()
	} else if config.IsLoaded() {
		log.Printf("[APP] config loaded from %s", config.GetConfigPath())
	} else {
		log.Printf("[APP] wrote default config to %s", config.GetConfigPath())
	}
	if opts.Debug {
		config.Debug.EnableLogging = true
	}
	if err := config.createDirectories(); err != nil {
		return nil, &ApplicationError{Component: "config", Operation: "create directories", Err: err}
	}
	return config, nil
}

// launchStats starts the runtime stats server and logs where to find it.
func launchStats(addr string) {
	url, err := statsview.Launch(addr)
	if err != nil {
		log.Printf("[APP] %v", err)
		return
	}
	log.Printf("[APP] runtime stats at %s", url)
}

// startup runs the commands named by opts.
func (app *Application) startup(opts Options) error {
	if opts.ROMPath != "" {
		if opts.Movie != nil {
			app.SelectROM(opts.ROMPath)
			if _, err := app.StartMovie(*opts.Movie); err != nil {
				return err
			}
		} else if err := app.LoadROM(opts.ROMPath); err != nil {
			return err
		}
	} else if opts.Movie != nil {
		if _, err := app.StartMovie(*opts.Movie); err != nil {
			return err
		}
	}

	if opts.SchedulePath != "" {
		if err := app.StartSwapSequenceFile(opts.SchedulePath); err != nil {
			return err
		}
	}
	return nil
}

// Run opens the frontend window for cores built by factory and blocks
// until it is closed. A configuration selecting the headless backend runs
// RunHeadless instead.
func Run(factory engine.Factory, opts Options) error {
	config, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if graphics.BackendType(config.Video.Backend) == graphics.BackendHeadless {
		return runHeadless(context.Background(), factory, config, opts)
	}

	controller := input.New()
	controller.EnableDebug(config.Debug.EnableLogging)

	keys, err := graphics.ParseKeyMap(config.Input.Player1Keys.Buttons())
	if err != nil {
		return &ConfigError{Field: "input.player1_keys", Value: config.Input.Player1Keys, Err: err}
	}

	display := graphics.NewEbitenDisplay(config.GraphicsConfig(fmt.Sprintf("tasnes - %s", factory.Name())), controller, keys)

	viewer := nametable.NewViewer(config.NametableOptions(), display.ShowNametable)
	viewer.SetLive(config.Debug.Nametable.Enabled)
	display.SetNametableVisible(config.Debug.Nametable.Enabled)

	if config.Debug.Statsview != "" {
		launchStats(config.Debug.Statsview)
		defer statsview.Stop()
	}

	application := New(factory, config, Deps{
		Display:       display,
		Screenshot:    graphics.NewScreenshotSink(config.Paths.Screenshots, config.Window.Scale),
		Source:        controller,
		Viewer:        viewer,
		Notifier:      DialogNotifier{},
		NametablePane: display,
		SetTitle:      display.SetTitle,
	})
	defer application.Close()

	if err := application.startup(opts); err != nil {
		if !isPrecondition(err) {
			return err
		}
	}

	display.SetUpdateFunc(func() error {
		for _, cmd := range display.PollEvents() {
			err := application.Handle(cmd)
			switch {
			case err == nil:
			case errors.Is(err, graphics.ErrQuit):
				return err
			case isPrecondition(err):
				// already shown to the user
			default:
				log.Printf("[APP] %s failed: %v", cmd, err)
			}
		}
		return nil
	})

	if err := display.Run(); err != nil {
		return &ApplicationError{Component: "graphics", Operation: "run window", Err: err}
	}
	log.Printf("[APP] window closed after %d frames", application.Frames())
	if err := application.SaveSettings(); err != nil {
		log.Printf("[APP] settings not saved: %v", err)
	}
	return nil
}
