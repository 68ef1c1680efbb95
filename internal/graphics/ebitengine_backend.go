//go:build !headless
// +build !headless

package graphics

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"tasnes/internal/input"
)

// ErrQuit is returned by an update function to close the window.
var ErrQuit = errors.New("quit requested")

// Config contains configuration for the window
type Config struct {
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	Filter       string // "nearest", "linear"

	Brightness float32
	Contrast   float32
	Saturation float32

	Debug bool
}

// KeyMap maps keyboard keys to controller buttons.
type KeyMap map[ebiten.Key]input.Button

// ParseKeyMap resolves key names (as ebiten spells them, e.g. "ArrowUp",
// "Enter", "J") for each button.
func ParseKeyMap(names map[input.Button]string) (KeyMap, error) {
	km := make(KeyMap, len(names))
	for button, name := range names {
		var key ebiten.Key
		if err := key.UnmarshalText([]byte(name)); err != nil {
			return nil, fmt.Errorf("unknown key %q for button 0x%02X: %w", name, uint8(button), err)
		}
		km[key] = button
	}
	return km, nil
}

// hotkeys are fixed; controller keys come from the config.
var hotkeys = map[ebiten.Key]Command{
	ebiten.KeyF12:    CommandScreenshot,
	ebiten.KeyF1:     CommandToggleComposite,
	ebiten.KeyF2:     CommandToggleBorder,
	ebiten.KeyF3:     CommandToggleNametable,
	ebiten.KeyF5:     CommandReset,
	ebiten.KeyF6:     CommandPowerCycle,
	ebiten.KeyEscape: CommandQuit,
}

// EbitenDisplay is the GUI display sink. It implements ebiten.Game: Update
// samples the keyboard into the shared controller and raises commands,
// Draw shows the last published frame and, when enabled, the nametable view
// to its right.
type EbitenDisplay struct {
	config     Config
	controller *input.Controller
	keys       KeyMap
	processor  *VideoProcessor

	frame     SharedFrame
	nametable SharedFrame

	showNametable atomic.Bool

	mu     sync.Mutex
	events []Command
	update func() error

	// Draw-side state, only touched on the ebiten goroutine.
	screenImage   *ebiten.Image
	ntImage       *ebiten.Image
	screenVersion uint64
	ntVersion     uint64
	windowWidth   int
	windowHeight  int
	focused       bool
	drawCount     int
}

// NewEbitenDisplay configures the window. Call Run to open it.
func NewEbitenDisplay(config Config, controller *input.Controller, keys KeyMap) *EbitenDisplay {
	d := &EbitenDisplay{
		config:       config,
		controller:   controller,
		keys:         keys,
		processor:    NewVideoProcessor(config.Brightness, config.Contrast, config.Saturation),
		windowWidth:  config.WindowWidth,
		windowHeight: config.WindowHeight,
		focused:      true,
	}

	ebiten.SetWindowTitle(config.WindowTitle)
	ebiten.SetWindowSize(config.WindowWidth, config.WindowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	return d
}

// Publish implements Display. It runs on the frame clock goroutine.
func (d *EbitenDisplay) Publish(img *image.RGBA) {
	d.frame.Update(d.processor.Process(img))
}

// ShowNametable stores the latest nametable canvas for drawing.
func (d *EbitenDisplay) ShowNametable(img *image.RGBA) {
	d.nametable.Update(img)
}

// NametableVisible reports whether the nametable pane is shown.
func (d *EbitenDisplay) NametableVisible() bool {
	return d.showNametable.Load()
}

// SetNametableVisible shows or hides the nametable pane.
func (d *EbitenDisplay) SetNametableVisible(visible bool) {
	d.showNametable.Store(visible)
}

// SetTitle sets the window title
func (d *EbitenDisplay) SetTitle(title string) {
	ebiten.SetWindowTitle(title)
}

// SetUpdateFunc sets the function run once per ebiten tick after input
// has been sampled. Returning ErrQuit closes the window.
func (d *EbitenDisplay) SetUpdateFunc(fn func() error) {
	d.mu.Lock()
	d.update = fn
	d.mu.Unlock()
}

// PollEvents returns and clears the queued commands.
func (d *EbitenDisplay) PollEvents() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	events := d.events
	d.events = nil
	return events
}

// Run opens the window and blocks until it is closed.
func (d *EbitenDisplay) Run() error {
	return ebiten.RunGame(d)
}

// Update implements ebiten.Game.Update
func (d *EbitenDisplay) Update() error {
	focused := ebiten.IsFocused()
	if focused != d.focused {
		d.focused = focused
		if d.config.Debug {
			log.Printf("[EBITEN] focus changed: %t", focused)
		}
	}
	d.controller.SetFocused(focused)

	if focused {
		var f input.Frame
		for key, button := range d.keys {
			if ebiten.IsKeyPressed(key) {
				f |= input.Frame(button)
			}
		}
		d.controller.Set(f)

		for key, cmd := range hotkeys {
			if inpututil.IsKeyJustPressed(key) {
				d.mu.Lock()
				d.events = append(d.events, cmd)
				d.mu.Unlock()
			}
		}
	}

	d.mu.Lock()
	update := d.update
	d.mu.Unlock()

	if update != nil {
		if err := update(); err != nil {
			if errors.Is(err, ErrQuit) {
				return ebiten.Termination
			}
			log.Printf("[EBITEN] update error: %v", err)
		}
	}
	return nil
}

// Draw implements ebiten.Game.Draw
func (d *EbitenDisplay) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{A: 0xFF})

	if img, version := d.frame.Read(); img != nil && version != d.screenVersion {
		d.screenImage = refresh(d.screenImage, img)
		d.screenVersion = version
	}

	paneWidth := d.windowWidth
	showNT := d.showNametable.Load()
	if showNT {
		paneWidth = d.windowWidth / 2
	}

	if d.screenImage != nil {
		drawFitted(screen, d.screenImage, 0, paneWidth, d.windowHeight, d.filter())
	}

	if showNT {
		if img, version := d.nametable.Read(); img != nil && version != d.ntVersion {
			d.ntImage = refresh(d.ntImage, img)
			d.ntVersion = version
		}
		if d.ntImage != nil {
			drawFitted(screen, d.ntImage, paneWidth, d.windowWidth-paneWidth, d.windowHeight, ebiten.FilterNearest)
		}
	}

	d.drawCount++
	if d.config.Debug && d.drawCount%1800 == 0 {
		log.Printf("[EBITEN] drawn %d frames, window %dx%d", d.drawCount, d.windowWidth, d.windowHeight)
	}
}

// Layout implements ebiten.Game.Layout
func (d *EbitenDisplay) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	d.windowWidth = outsideWidth
	d.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// refresh uploads img, reallocating the texture when its size changed.
func refresh(dst *ebiten.Image, img *image.RGBA) *ebiten.Image {
	if dst == nil || dst.Bounds().Size() != img.Rect.Size() {
		if dst != nil {
			dst.Deallocate()
		}
		dst = ebiten.NewImage(img.Rect.Dx(), img.Rect.Dy())
	}
	dst.WritePixels(img.Pix)
	return dst
}

func (d *EbitenDisplay) filter() ebiten.Filter {
	if d.config.Filter == "linear" {
		return ebiten.FilterLinear
	}
	return ebiten.FilterNearest
}

// drawFitted draws img scaled to fit a pane starting at x offset, centred.
func drawFitted(screen, img *ebiten.Image, x, width, height int, filter ebiten.Filter) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	scale := float64(width) / float64(w)
	if s := float64(height) / float64(h); s < scale {
		scale = s
	}

	op := &ebiten.DrawImageOptions{Filter: filter}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(float64(x)+(float64(width)-float64(w)*scale)/2, (float64(height)-float64(h)*scale)/2)
	screen.DrawImage(img, op)
}
