package graphics

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.design/x/clipboard"
)

// ClipboardSink copies screenshots to the system clipboard as PNG.
type ClipboardSink struct {
	scale int
}

// NewClipboardSink initialises the clipboard. It fails on hosts without a
// clipboard (no display server, no cgo).
func NewClipboardSink(scale int) (*ClipboardSink, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("clipboard unavailable: %w", err)
	}
	return &ClipboardSink{scale: scale}, nil
}

// Capture implements ScreenshotSink.
func (s *ClipboardSink) Capture(img image.Image) error {
	data, err := encodePNG(img, s.scale)
	if err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtImage, data)
	return nil
}

// FileSink writes screenshots as timestamped PNG files.
type FileSink struct {
	dir   string
	scale int
	now   func() time.Time
}

// NewFileSink creates a sink writing under dir.
func NewFileSink(dir string, scale int) *FileSink {
	return &FileSink{dir: dir, scale: scale, now: time.Now}
}

// Capture implements ScreenshotSink.
func (s *FileSink) Capture(img image.Image) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	data, err := encodePNG(img, s.scale)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%d.png", s.now().UnixNano())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}

// NewScreenshotSink prefers the clipboard and falls back to files in dir.
func NewScreenshotSink(dir string, scale int) ScreenshotSink {
	cs, err := NewClipboardSink(scale)
	if err != nil {
		log.Printf("[SCREENSHOT] %v, saving screenshots to %s", err, dir)
		return NewFileSink(dir, scale)
	}
	return cs
}

func encodePNG(img image.Image, scale int) ([]byte, error) {
	if scale > 1 {
		img = Scale(img, scale)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
