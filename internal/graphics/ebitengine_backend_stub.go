//go:build headless
// +build headless

package graphics

import (
	"errors"
	"image"

	"tasnes/internal/input"
)

// ErrQuit is returned by an update function to close the window.
var ErrQuit = errors.New("quit requested")

// errNoWindow is returned by every window operation in headless builds.
var errNoWindow = errors.New("Ebitengine backend not available in headless build")

// Config contains configuration for the window
type Config struct {
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	Filter       string

	Brightness float32
	Contrast   float32
	Saturation float32

	Debug bool
}

// KeyMap is empty in headless builds.
type KeyMap map[string]input.Button

// ParseKeyMap accepts any names in headless builds.
func ParseKeyMap(names map[input.Button]string) (KeyMap, error) {
	return KeyMap{}, nil
}

// EbitenDisplay stub for headless builds
type EbitenDisplay struct{}

// NewEbitenDisplay returns a stub whose Run always fails.
func NewEbitenDisplay(config Config, controller *input.Controller, keys KeyMap) *EbitenDisplay {
	return &EbitenDisplay{}
}

func (d *EbitenDisplay) Publish(img *image.RGBA) {}
func (d *EbitenDisplay) ShowNametable(img *image.RGBA) {}
func (d *EbitenDisplay) NametableVisible() bool { return false }
func (d *EbitenDisplay) SetNametableVisible(bool) {}
func (d *EbitenDisplay) SetTitle(title string) {}
func (d *EbitenDisplay) SetUpdateFunc(fn func() error) {}
func (d *EbitenDisplay) PollEvents() []Command { return nil }
func (d *EbitenDisplay) Run() error { return errNoWindow }
