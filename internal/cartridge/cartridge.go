// Package cartridge loads ROM images from disk, including ROMs packed in
// zip, 7z, gzip and rar archives, and inspects their iNES headers before
// handing them to a core.
package cartridge

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/user-none/eblitui/romloader"

	"tasnes/internal/engine"
)

// ErrNotINES is returned for images without the "NES\x1A" magic.
var ErrNotINES = errors.New("invalid iNES file")

// DefaultExtensions are used when a core does not list its own.
var DefaultExtensions = []string{".nes", ".unf", ".fds"}

// MirrorMode represents nametable mirroring mode
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorFourScreen
)

func (m MirrorMode) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorFourScreen:
		return "four-screen"
	default:
		return fmt.Sprintf("MirrorMode(%d)", uint8(m))
	}
}

// iNES header structure
type iNESHeader struct {
	Magic      [4]uint8
	PRGROMSize uint8 // in 16KB units
	CHRROMSize uint8 // in 8KB units
	Flags6     uint8
	Flags7     uint8
	PRGRAMSize uint8
	TVSystem1  uint8
	TVSystem2  uint8
	Padding    [5]uint8
}

// Info is what the header says about a ROM.
type Info struct {
	Mapper  uint16
	PRGSize int // bytes
	CHRSize int // bytes, 0 means CHR RAM
	Mirror  MirrorMode
	Battery bool
	Trainer bool
	NES20   bool
}

func (i Info) String() string {
	chr := fmt.Sprintf("%dKB CHR", i.CHRSize/1024)
	if i.CHRSize == 0 {
		chr = "CHR RAM"
	}
	s := fmt.Sprintf("mapper %d, %dKB PRG, %s, %s mirroring", i.Mapper, i.PRGSize/1024, chr, i.Mirror)
	if i.Battery {
		s += ", battery"
	}
	if i.NES20 {
		s += ", NES 2.0"
	}
	return s
}

// Inspect parses the iNES header of rom and checks the image is long enough
// for the sizes it declares.
func Inspect(rom []byte) (Info, error) {
	var header iNESHeader
	if err := binary.Read(bytes.NewReader(rom), binary.LittleEndian, &header); err != nil {
		return Info{}, fmt.Errorf("%w: short header: %v", ErrNotINES, err)
	}

	if string(header.Magic[:]) != "NES\x1A" {
		return Info{}, ErrNotINES
	}

	if header.PRGROMSize == 0 {
		return Info{}, errors.New("invalid ROM: PRG ROM size cannot be zero")
	}

	info := Info{
		Mapper:  uint16(header.Flags6>>4) | uint16(header.Flags7&0xF0),
		PRGSize: int(header.PRGROMSize) * 16384,
		CHRSize: int(header.CHRROMSize) * 8192,
		Battery: header.Flags6&0x02 != 0,
		Trainer: header.Flags6&0x04 != 0,
		NES20:   header.Flags7&0x0C == 0x08,
	}

	if info.NES20 {
		// NES 2.0 keeps mapper bits 8-11 in the low nibble of byte 8.
		info.Mapper |= uint16(header.PRGRAMSize&0x0F) << 8
	}

	switch {
	case header.Flags6&0x08 != 0:
		info.Mirror = MirrorFourScreen
	case header.Flags6&0x01 != 0:
		info.Mirror = MirrorVertical
	default:
		info.Mirror = MirrorHorizontal
	}

	need := 16 + info.PRGSize + info.CHRSize
	if info.Trainer {
		need += 512
	}
	if len(rom) < need {
		return Info{}, fmt.Errorf("truncated ROM: have %d bytes, header declares %d", len(rom), need)
	}

	return info, nil
}

// ROM is a raw image read from disk.
type ROM struct {
	Path string
	Name string
	Data []byte
	Info Info
}

// Load reads a ROM file, unpacking archives, and inspects its header.
// Images without an iNES header are passed through with a zero Info so
// cores that accept other formats still get them.
func Load(path string, extensions []string) (*ROM, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	data, name, err := romloader.Load(path, extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to load ROM %s: %w", path, err)
	}
	if name == "" {
		name = filepath.Base(path)
	}

	rom := &ROM{Path: path, Name: name, Data: data}
	info, err := Inspect(data)
	switch {
	case err == nil:
		rom.Info = info
	case errors.Is(err, ErrNotINES):
		// not an iNES image; the core decides
	default:
		return nil, fmt.Errorf("failed to load ROM %s: %w", path, err)
	}

	return rom, nil
}

// Open loads the file at path and builds a core cartridge from it.
func Open(factory engine.Factory, path string) (engine.Cartridge, *ROM, error) {
	rom, err := Load(path, factory.Extensions())
	if err != nil {
		return nil, nil, err
	}

	cart, err := factory.LoadCartridge(rom.Name, rom.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("core rejected %s: %w", rom.Name, err)
	}

	return cart, rom, nil
}
