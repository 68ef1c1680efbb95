// Package app provides the frontend's configuration, session handling and
// command layer.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tasnes/internal/engine"
	"tasnes/internal/graphics"
	"tasnes/internal/input"
	"tasnes/internal/nametable"
	"tasnes/internal/trace"
)

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Input     InputConfig     `json:"input"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Fullscreen bool `json:"fullscreen"`
	Scale      int  `json:"scale"` // screenshot and dump multiplier
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	Backend    string  `json:"backend"` // "ebitengine", "headless"
	Composite  bool    `json:"composite"`
	Border     bool    `json:"border"`
	Filter     string  `json:"filter"` // "nearest", "linear"
	Brightness float32 `json:"brightness"`
	Contrast   float32 `json:"contrast"`
	Saturation float32 `json:"saturation"`
}

// InputConfig contains input configuration
type InputConfig struct {
	Player1Keys KeyMapping `json:"player1_keys"`
}

// KeyMapping represents keyboard key mappings for NES controller. Names
// are Ebitengine key names.
type KeyMapping struct {
	Up     string `json:"up"`
	Down   string `json:"down"`
	Left   string `json:"left"`
	Right  string `json:"right"`
	A      string `json:"a"`
	B      string `json:"b"`
	Start  string `json:"start"`
	Select string `json:"select"`
}

// Buttons returns the mapping keyed by controller button.
func (k KeyMapping) Buttons() map[input.Button]string {
	return map[input.Button]string{
		input.Up:     k.Up,
		input.Down:   k.Down,
		input.Left:   k.Left,
		input.Right:  k.Right,
		input.A:      k.A,
		input.B:      k.B,
		input.Start:  k.Start,
		input.Select: k.Select,
	}
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	Alignment   uint8 `json:"alignment"` // CPU/PPU clock phase, 0-3
	Unthrottled bool  `json:"unthrottled"`
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	EnableLogging bool            `json:"enable_logging"`
	Trace         TraceConfig     `json:"trace"`
	Nametable     NametableConfig `json:"nametable"`
	Statsview     string          `json:"statsview"` // listen address, empty to disable
}

// TraceConfig controls the per-session instruction trace file.
type TraceConfig struct {
	Enabled       bool   `json:"enabled"`
	Lo            uint16 `json:"lo"`
	Hi            uint16 `json:"hi"`
	ClearPerFrame bool   `json:"clear_per_frame"`
}

// NametableConfig controls the nametable viewer.
type NametableConfig struct {
	Enabled       bool `json:"enabled"`
	ShowViewport  bool `json:"show_viewport"`
	OverlayScreen bool `json:"overlay_screen"`
	ForceBackdrop bool `json:"force_backdrop"`
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	ROMs        string `json:"roms"`
	Screenshots string `json:"screenshots"`
	Traces      string `json:"traces"`
	Dumps       string `json:"dumps"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      768,
			Height:     720,
			Fullscreen: false,
			Scale:      2,
		},
		Video: VideoConfig{
			Backend:    string(graphics.BackendEbitengine),
			Composite:  false,
			Border:     false,
			Filter:     "nearest",
			Brightness: 1.0,
			Contrast:   1.0,
			Saturation: 1.0,
		},
		Input: InputConfig{
			Player1Keys: KeyMapping{
				Up:     "W",
				Down:   "S",
				Left:   "A",
				Right:  "D",
				A:      "J",
				B:      "K",
				Start:  "Enter",
				Select: "Space",
			},
		},
		Emulation: EmulationConfig{
			Alignment: 0,
		},
		Debug: DebugConfig{
			EnableLogging: false,
			Trace: TraceConfig{
				Enabled:       false,
				Lo:            0x0000,
				Hi:            0xFFFF,
				ClearPerFrame: true,
			},
			Nametable: NametableConfig{
				ShowViewport: true,
			},
		},
		Paths: PathsConfig{
			ROMs:        "./roms",
			Screenshots: "./screenshots",
			Traces:      "./traces",
			Dumps:       "./dumps",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. A missing file is
// created with the current values.
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	return c.SaveToFile(c.configPath)
}

// validate rejects unusable values and clamps the rest to defaults.
func (c *Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return &ConfigError{
			Field: "window",
			Value: fmt.Sprintf("%dx%d", c.Window.Width, c.Window.Height),
			Err:   fmt.Errorf("dimensions must be positive"),
		}
	}

	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}

	switch graphics.BackendType(c.Video.Backend) {
	case graphics.BackendEbitengine, graphics.BackendHeadless:
	default:
		c.Video.Backend = string(graphics.BackendEbitengine)
	}

	if c.Video.Filter != "nearest" && c.Video.Filter != "linear" {
		c.Video.Filter = "nearest"
	}

	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}

	if c.Video.Contrast < 0.1 || c.Video.Contrast > 3.0 {
		c.Video.Contrast = 1.0
	}

	if c.Video.Saturation < 0.0 || c.Video.Saturation > 3.0 {
		c.Video.Saturation = 1.0
	}

	if c.Emulation.Alignment > 3 {
		c.Emulation.Alignment = 0
	}

	if c.Debug.Trace.Lo > c.Debug.Trace.Hi {
		return &ConfigError{
			Field: "debug.trace",
			Value: fmt.Sprintf("$%04X-$%04X", c.Debug.Trace.Lo, c.Debug.Trace.Hi),
			Err:   fmt.Errorf("range start after end"),
		}
	}

	return nil
}

// createDirectories creates the output directories
func (c *Config) createDirectories() error {
	dirs := []string{
		c.Paths.Screenshots,
		c.Paths.Traces,
		c.Paths.Dumps,
	}

	for _, dir := range dirs {
		if dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return NewConfig()
	}

	clone := &Config{}
	if err := json.Unmarshal(data, clone); err != nil {
		return NewConfig()
	}

	clone.configPath = c.configPath
	clone.loaded = c.loaded

	return clone
}

// GraphicsConfig returns the window settings for the display.
func (c *Config) GraphicsConfig(title string) graphics.Config {
	return graphics.Config{
		WindowTitle:  title,
		WindowWidth:  c.Window.Width,
		WindowHeight: c.Window.Height,
		Fullscreen:   c.Window.Fullscreen,
		Filter:       c.Video.Filter,
		Brightness:   c.Video.Brightness,
		Contrast:     c.Video.Contrast,
		Saturation:   c.Video.Saturation,
		Debug:        c.Debug.EnableLogging,
	}
}

// TraceSettings returns the tracer configuration.
func (c *Config) TraceSettings() trace.Config {
	return trace.Config{
		Enabled:       c.Debug.Trace.Enabled,
		Range:         engine.AddressRange{Lo: c.Debug.Trace.Lo, Hi: c.Debug.Trace.Hi},
		ClearPerFrame: c.Debug.Trace.ClearPerFrame,
	}
}

// NametableOptions returns the viewer decode options.
func (c *Config) NametableOptions() nametable.Options {
	return nametable.Options{
		ForceBackdrop: c.Debug.Nametable.ForceBackdrop,
		ShowViewport:  c.Debug.Nametable.ShowViewport,
		OverlayScreen: c.Debug.Nametable.OverlayScreen,
	}
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/tasnes.json"
}
