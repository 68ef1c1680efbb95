// Package debug provides frame and nametable dumping utilities
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tasnes/internal/graphics"
	"tasnes/internal/nametable"
)

// FrameDumper writes published frames and nametable canvases to disk.
type FrameDumper struct {
	mu          sync.Mutex
	outputDir   string
	dumpEnabled bool
	dumpCount   int
	maxDumps    int
	scale       int
	pixelFilter func(x, y int, rgb uint32) bool
}

// NewFrameDumper creates a new frame dumper
func NewFrameDumper(outputDir string) *FrameDumper {
	return &FrameDumper{
		outputDir: outputDir,
		maxDumps:  10,
		scale:     1,
	}
}

// Enable activates frame dumping
func (fd *FrameDumper) Enable() error {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if err := os.MkdirAll(fd.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	fd.dumpEnabled = true
	return nil
}

// Disable deactivates frame dumping
func (fd *FrameDumper) Disable() {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.dumpEnabled = false
}

// SetMaxDumps sets the maximum number of files to write
func (fd *FrameDumper) SetMaxDumps(max int) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.maxDumps = max
}

// SetScale sets the integer upscale applied to PNG dumps
func (fd *FrameDumper) SetScale(scale int) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if scale < 1 {
		scale = 1
	}
	fd.scale = scale
}

// SetPixelFilter sets a filter function for which pixels to include in text dumps
func (fd *FrameDumper) SetPixelFilter(filter func(x, y int, rgb uint32) bool) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.pixelFilter = filter
}

// DumpCount returns the number of files written.
func (fd *FrameDumper) DumpCount() int {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.dumpCount
}

// reserve claims one dump slot; it returns false when dumping is off or
// the limit is reached.
func (fd *FrameDumper) reserve() (dir string, scale int, ok bool) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if !fd.dumpEnabled || fd.dumpCount >= fd.maxDumps {
		return "", 0, false
	}
	fd.dumpCount++
	return fd.outputDir, fd.scale, true
}

// DumpFrame writes img as frame_NNNNNN.png.
func (fd *FrameDumper) DumpFrame(img image.Image, frameNum uint64) error {
	dir, scale, ok := fd.reserve()
	if !ok {
		return nil
	}
	return writePNG(filepath.Join(dir, fmt.Sprintf("frame_%06d.png", frameNum)), img, scale)
}

// DumpNametable writes the canvas as nametable_NNNNNN.png and the viewport
// position as a text sidecar.
func (fd *FrameDumper) DumpNametable(f *nametable.Frame, frameNum uint64) error {
	dir, scale, ok := fd.reserve()
	if !ok {
		return nil
	}

	base := filepath.Join(dir, fmt.Sprintf("nametable_%06d", frameNum))
	if err := writePNG(base+".png", f.Surface.Image(), scale); err != nil {
		return err
	}

	info := fmt.Sprintf("Nametable Dump\nFrame Number: %d\nTimestamp: %s\nViewport: %d,%d to %d,%d\n",
		frameNum, time.Now().Format(time.RFC3339),
		f.Viewport.X, f.Viewport.Y, f.Viewport.Right(), f.Viewport.Bottom())
	if err := os.WriteFile(base+".txt", []byte(info), 0644); err != nil {
		return fmt.Errorf("failed to write nametable info: %w", err)
	}
	return nil
}

// DumpFrameText dumps a frame as hex pixel rows, honouring the pixel filter.
func (fd *FrameDumper) DumpFrameText(img *image.RGBA, frameNum uint64) error {
	dir, _, ok := fd.reserve()
	if !ok {
		return nil
	}
	fd.mu.Lock()
	filter := fd.pixelFilter
	fd.mu.Unlock()

	filePath := filepath.Join(dir, fmt.Sprintf("frame_%06d.txt", frameNum))
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create frame dump file: %w", err)
	}
	defer file.Close()

	b := img.Bounds()
	fmt.Fprintf(file, "Frame Buffer Dump\n")
	fmt.Fprintf(file, "Frame Number: %d\n", frameNum)
	fmt.Fprintf(file, "Dimensions: %dx%d\n", b.Dx(), b.Dy())
	fmt.Fprintf(file, "===================\n\n")

	for y := 0; y < b.Dy(); y++ {
		fmt.Fprintf(file, "Line %03d: ", y)
		written := 0
		for x := 0; x < b.Dx(); x++ {
			c := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			pixel := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)

			if filter != nil && !filter(x, y, pixel) {
				continue
			}

			if written%16 == 0 && written > 0 {
				fmt.Fprintf(file, "\n          ")
			}
			fmt.Fprintf(file, "%06X ", pixel)
			written++
		}
		fmt.Fprintf(file, "\n")
	}
	return nil
}

func writePNG(path string, img image.Image, scale int) error {
	if scale > 1 {
		img = graphics.Scale(img, scale)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}

// CreateRegionFilter keeps pixels inside the inclusive rectangle x1,y1-x2,y2.
func CreateRegionFilter(x1, y1, x2, y2 int) func(x, y int, rgb uint32) bool {
	return func(x, y int, rgb uint32) bool {
		return x >= x1 && x <= x2 && y >= y1 && y <= y2
	}
}
