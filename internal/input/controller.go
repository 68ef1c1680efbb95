// Package input implements controller state for the NES frontend: the
// one-byte InputFrame handed to the engine each frame and the shared live
// controller written by the window and read by the frame clock.
package input

import (
	"log"
	"strings"
	"sync"
)

// Button is a single bit of an InputFrame.
type Button uint8

// Bit layout of an InputFrame. This is the order movie formats write the
// buttons in, most significant bit first.
const (
	ButtonRight  Button = 0x01
	ButtonLeft   Button = 0x02
	ButtonDown   Button = 0x04
	ButtonUp     Button = 0x08
	ButtonStart  Button = 0x10
	ButtonSelect Button = 0x20
	ButtonB      Button = 0x40
	ButtonA      Button = 0x80
)

// Convenience constants for shorter names
const (
	A      = ButtonA
	B      = ButtonB
	Select = ButtonSelect
	Start  = ButtonStart
	Up     = ButtonUp
	Down   = ButtonDown
	Left   = ButtonLeft
	Right  = ButtonRight
)

// Frame is the controller state for one displayed frame.
type Frame uint8

// Pressed reports whether b is held in f.
func (f Frame) Pressed(b Button) bool {
	return uint8(f)&uint8(b) != 0
}

// With returns f with b held or released.
func (f Frame) With(b Button, pressed bool) Frame {
	if pressed {
		return f | Frame(b)
	}
	return f &^ Frame(b)
}

// frameColumns is the movie column order, one letter per bit from 0x01 up.
const frameColumns = "RLDUTSBA"

// String renders the frame in movie column order, '.' for a released button.
func (f Frame) String() string {
	var sb strings.Builder
	sb.Grow(len(frameColumns))
	for i := 0; i < len(frameColumns); i++ {
		if f&(1<<uint(i)) != 0 {
			sb.WriteByte(frameColumns[i])
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

// Source provides the live controller byte once per frame. ok is false when
// the source has nothing valid to offer (the window lost focus); the clock
// then leaves the engine's port untouched.
type Source interface {
	Sample() (frame Frame, ok bool)
}

// Controller holds the live state of one controller. The window goroutine
// writes it, the frame clock reads it through Sample.
type Controller struct {
	mu      sync.Mutex
	buttons Frame
	focused bool

	debugEnabled bool
}

// New creates a Controller with nothing pressed and focus assumed.
func New() *Controller {
	return &Controller{focused: true}
}

// SetButton sets the state of a button
func (c *Controller) SetButton(button Button, pressed bool) {
	c.mu.Lock()
	old := c.buttons
	c.buttons = c.buttons.With(button, pressed)
	now := c.buttons
	c.mu.Unlock()

	if c.debugEnabled && old != now {
		log.Printf("[INPUT] SetButton: button=0x%02X pressed=%t %s -> %s", uint8(button), pressed, old, now)
	}
}

// Set replaces the whole frame.
func (c *Controller) Set(f Frame) {
	c.mu.Lock()
	old := c.buttons
	c.buttons = f
	c.mu.Unlock()

	if c.debugEnabled && old != f {
		log.Printf("[INPUT] Set: %s -> %s", old, f)
	}
}

// SetFocused records whether the window owning this controller has input
// focus.
func (c *Controller) SetFocused(focused bool) {
	c.mu.Lock()
	c.focused = focused
	c.mu.Unlock()
}

// Sample implements Source.
func (c *Controller) Sample() (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buttons, c.focused
}

// Reset releases every button.
func (c *Controller) Reset() {
	c.Set(0)
}

// EnableDebug enables debug logging for this controller
func (c *Controller) EnableDebug(enable bool) {
	c.mu.Lock()
	c.debugEnabled = enable
	c.mu.Unlock()
}
