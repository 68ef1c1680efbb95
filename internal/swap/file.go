package swap

import (
	"encoding/json"
	"fmt"
	"os"

	"tasnes/internal/engine"
)

// File is the on-disk form of a schedule: cartridges are ROM paths.
type File struct {
	Cycles   []uint64 `json:"cycles"`
	Targets  []int    `json:"targets"`
	ROMs     []string `json:"roms"`
	ColdBoot bool     `json:"cold_boot"`
}

// ReadFile parses a schedule file.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read swap schedule: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse swap schedule %s: %w", path, err)
	}
	return &f, nil
}

// Schedule builds a schedule using load to open each ROM. The result is
// validated.
func (f *File) Schedule(load func(path string) (engine.Cartridge, error)) (Schedule, error) {
	s := Schedule{Cycles: f.Cycles, Targets: f.Targets, ColdBoot: f.ColdBoot}
	for _, path := range f.ROMs {
		cart, err := load(path)
		if err != nil {
			return Schedule{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
		s.Cartridges = append(s.Cartridges, cart)
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}
