package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tasnes/internal/engine"
)

func TestFlushClearPerFrame(t *testing.T) {
	var out bytes.Buffer
	tr := New(&out, Config{Enabled: true, ClearPerFrame: true})

	var buf bytes.Buffer
	buf.WriteString("C000 LDA #$00\n")
	if err := tr.Flush(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("buffer not cleared: %q", buf.String())
	}

	buf.WriteString("C002 STA $2000\n")
	if err := tr.Flush(&buf); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	if got, want := out.String(), "C000 LDA #$00\nC002 STA $2000\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if tr.Written() != uint64(out.Len()) {
		t.Errorf("Written = %d, want %d", tr.Written(), out.Len())
	}
}

func TestFlushKeepsBuffer(t *testing.T) {
	var out bytes.Buffer
	tr := New(&out, Config{Enabled: true})

	var buf bytes.Buffer
	buf.WriteString("a\n")
	tr.Flush(&buf)
	buf.WriteString("b\n")
	tr.Flush(&buf)
	tr.Close()

	if got := out.String(); got != "a\nb\n" {
		t.Errorf("output = %q, want each line once", got)
	}
	if buf.String() != "a\nb\n" {
		t.Errorf("buffer = %q, want it kept", buf.String())
	}

	// The clock resets the buffer while tracing is off.
	buf.Reset()
	buf.WriteString("c\n")
	tr.Flush(&buf)
	tr.Close()
	if got := out.String(); got != "a\nb\nc\n" {
		t.Errorf("output after external reset = %q", got)
	}
}

func TestSetters(t *testing.T) {
	tr := New(&bytes.Buffer{}, Config{Range: engine.FullRange})
	if tr.Enabled() {
		t.Error("tracer enabled by default")
	}
	tr.SetEnabled(true)
	tr.SetRange(engine.AddressRange{Lo: 0x8000, Hi: 0xFFFF})
	if !tr.Enabled() || tr.Range().Lo != 0x8000 {
		t.Errorf("Enabled = %t, Range = %+v", tr.Enabled(), tr.Range())
	}
	if tr.ClearPerFrame() {
		t.Error("ClearPerFrame should be false")
	}
}

func TestCreate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")
	tr, err := Create(dir, "roms/Super Mario Bros.nes", Config{Enabled: true, ClearPerFrame: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	base := filepath.Base(tr.Path())
	if !strings.HasPrefix(base, "Super_Mario_Bros-") || !strings.HasSuffix(base, ".log") {
		t.Errorf("file name = %q", base)
	}

	var buf bytes.Buffer
	buf.WriteString("8000 SEI\n")
	if err := tr.Flush(&buf); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(tr.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "8000 SEI\n" {
		t.Errorf("file = %q", data)
	}
}

func TestFlushReachesFileEachFrame(t *testing.T) {
	dir := t.TempDir()
	tr, err := Create(dir, "smb.nes", Config{Enabled: true, ClearPerFrame: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	var buf bytes.Buffer
	buf.WriteString("8000 SEI\n")
	if err := tr.Flush(&buf); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(tr.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "8000 SEI\n" {
		t.Errorf("file before Close = %q, want the frame's log", data)
	}
}
