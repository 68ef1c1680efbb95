// Package movie brings a freshly powered-on core into the timing state the
// tool that recorded a movie would have started from.
package movie

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnknownFormat is returned for movie extensions outside the format table.
var ErrUnknownFormat = errors.New("unknown movie format")

// Format identifies a movie file format by its extension.
type Format int

const (
	FormatUnknown Format = iota
	FormatBK2
	FormatTASProj
	FormatFM2
	FormatFM3
	FormatR08
)

// Class groups formats whose recording tools share power-on behaviour.
type Class int

const (
	// ClassNone is the zero value; no format maps to it.
	ClassNone Class = iota

	// PatternA tools boot RAM in the striped pattern and start input at the
	// recorded index.
	PatternA

	// PatternB tools boot RAM the same way but begin sampling input one
	// scanline away from this core's reset point.
	PatternB

	// PatternC is raw controller samples with no timing correction.
	PatternC
)

var extensions = map[string]Format{
	".bk2":     FormatBK2,
	".tasproj": FormatTASProj,
	".fm2":     FormatFM2,
	".fm3":     FormatFM3,
	".r08":     FormatR08,
}

// ParseFormat maps an extension, with or without the leading dot and in any
// case, to its format.
func ParseFormat(ext string) (Format, error) {
	key := strings.ToLower(ext)
	if !strings.HasPrefix(key, ".") {
		key = "." + key
	}
	if f, ok := extensions[key]; ok {
		return f, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
}

// FormatFromPath picks the format from a movie file name.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return FormatUnknown, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, filepath.Base(path))
	}
	return ParseFormat(ext)
}

// Formats lists every known format in table order.
func Formats() []Format {
	return []Format{FormatBK2, FormatTASProj, FormatFM2, FormatFM3, FormatR08}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	for ext, g := range extensions {
		if g == f {
			return ext
		}
	}
	return ""
}

func (f Format) String() string {
	switch f {
	case FormatBK2:
		return "BK2"
	case FormatTASProj:
		return "TASProj"
	case FormatFM2:
		return "FM2"
	case FormatFM3:
		return "FM3"
	case FormatR08:
		return "R08"
	default:
		return "unknown"
	}
}

func (c Class) String() string {
	switch c {
	case PatternA:
		return "pattern-a"
	case PatternB:
		return "pattern-b"
	case PatternC:
		return "pattern-c"
	default:
		return "none"
	}
}
