package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tasnes/internal/movie"
	"tasnes/internal/swap"
)

func TestPlanPlain(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"plan", "run.fm2"}, "start=1"},
		{[]string{"plan", "-alt", "-start", "10", "run.fm2"}, "scan=240/0 fm2compat"},
		{[]string{"plan", "-alignment", "2", "run.bk2"}, "alignment=2"},
		{[]string{"plan", "run.r08"}, "start=0"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			var buf bytes.Buffer
			if err := run(tt.args, &buf, false); err != nil {
				t.Fatalf("run: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestPlanPretty(t *testing.T) {
	var buf bytes.Buffer
	if err := run([]string{"plan", "-alt", "-start", "10", "run.fm2"}, &buf, true); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"scanline 240, dot 0", "Start index:", "9"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("missing %q in:\n%s", s, buf.String())
		}
	}
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		args []string
		want error
	}{
		{[]string{"plan"}, errUsage},
		{[]string{"plan", "run.smv"}, movie.ErrUnknownFormat},
		{[]string{"plan", "-alignment", "4", "run.fm2"}, movie.ErrAlignment},
		{[]string{"bogus"}, errUsage},
		{nil, errUsage},
	}

	for _, tt := range tests {
		if err := run(tt.args, &bytes.Buffer{}, false); !errors.Is(err, tt.want) {
			t.Errorf("run(%q) = %v, want %v", tt.args, err, tt.want)
		}
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func inesImage() []byte {
	data := make([]byte, 16+16384+8192)
	copy(data, "NES\x1a")
	data[4], data[5] = 1, 1
	return data
}

func TestSchedule(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.nes", inesImage())
	b := writeFile(t, dir, "b.nes", inesImage())
	sched := writeFile(t, dir, "swap.json", []byte(`{"cycles":[5,12],"targets":[1,0],"roms":["`+a+`","`+b+`"],"cold_boot":true}`))

	var buf bytes.Buffer
	if err := run([]string{"schedule", "-dry-run", "25", sched}, &buf, false); err != nil {
		t.Fatalf("run: %v", err)
	}

	out := buf.String()
	for _, s := range []string{"5\t1\tb.nes", "12\t0\ta.nes", "2 installs, 0 pending", "  5\tb.nes", "  12\ta.nes"} {
		if !strings.Contains(out, s) {
			t.Errorf("missing %q in:\n%s", s, out)
		}
	}
}

func TestScheduleInvalid(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.nes", inesImage())
	sched := writeFile(t, dir, "swap.json", []byte(`{"cycles":[12,5],"targets":[0,0],"roms":["`+a+`"]}`))

	err := run([]string{"schedule", sched}, &bytes.Buffer{}, false)
	if !errors.Is(err, swap.ErrUnsorted) {
		t.Errorf("run = %v, want ErrUnsorted", err)
	}
}

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := run([]string{"version"}, &buf, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "tasnes") {
		t.Errorf("version output = %q", buf.String())
	}
}
