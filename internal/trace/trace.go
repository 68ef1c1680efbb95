// Package trace persists the core's instruction trace, one frame at a time.
package trace

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tasnes/internal/engine"
)

// Config selects what is traced and how the shared log is treated.
type Config struct {
	Enabled bool
	Range   engine.AddressRange

	// ClearPerFrame empties the shared log after each flush. When false the
	// log keeps growing and only new bytes are written.
	ClearPerFrame bool
}

// Tracer writes trace output to a file or any writer. Flush is called from
// the frame clock; the setters may be called from the command goroutine.
type Tracer struct {
	mu      sync.Mutex
	config  Config
	w       *bufio.Writer
	closer  io.Closer
	path    string
	offset  int
	written uint64
}

// New creates a tracer writing to w.
func New(w io.Writer, config Config) *Tracer {
	t := &Tracer{config: config, w: bufio.NewWriterSize(w, 64*1024)}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// Create opens a new trace file for one session under dir. The file name
// is built from the cartridge name and the current time.
func Create(dir, session string, config Config) (*Tracer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	name := fmt.Sprintf("%s-%s.log", sanitize(session), time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	t := New(f, config)
	t.path = path
	log.Printf("[TRACE] writing %s (range $%04X-$%04X)", path, config.Range.Lo, config.Range.Hi)
	return t, nil
}

// Path returns the trace file path, empty when not writing to a file.
func (t *Tracer) Path() string {
	return t.path
}

// Enabled reports whether the core should trace.
func (t *Tracer) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.Enabled
}

// SetEnabled turns tracing on or off.
func (t *Tracer) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if enabled && !t.config.Enabled {
		t.offset = 0
	}
	t.config.Enabled = enabled
}

// Range returns the address filter.
func (t *Tracer) Range() engine.AddressRange {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.Range
}

// SetRange changes the address filter from the next frame.
func (t *Tracer) SetRange(r engine.AddressRange) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.config.Range = r
}

// ClearPerFrame reports whether Flush empties the shared log.
func (t *Tracer) ClearPerFrame() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.ClearPerFrame
}

// Flush writes the bytes appended to buf since the last call through to
// the underlying writer. With ClearPerFrame set, buf is reset afterwards.
func (t *Tracer) Flush(buf *bytes.Buffer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.offset > buf.Len() {
		// Someone else reset the buffer.
		t.offset = 0
	}
	data := buf.Bytes()[t.offset:]
	n, err := t.w.Write(data)
	t.written += uint64(n)
	if err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}

	if t.config.ClearPerFrame {
		buf.Reset()
		t.offset = 0
	} else {
		t.offset = buf.Len()
	}

	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return nil
}

// Written returns the number of bytes handed to the writer.
func (t *Tracer) Written() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written
}

// Close flushes buffered output and closes the underlying file.
func (t *Tracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.w.Flush()
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
		t.closer = nil
	}
	if err != nil {
		return fmt.Errorf("failed to close trace: %w", err)
	}
	return nil
}

func sanitize(name string) string {
	name = filepath.Base(name)
	name = name[:len(name)-len(filepath.Ext(name))]
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "trace"
	}
	return string(out)
}
