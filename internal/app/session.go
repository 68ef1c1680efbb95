package app

import (
	"tasnes/internal/cartridge"
	"tasnes/internal/engine"
)

// Session is one powered-on run of a core. A reset keeps the Session; a
// power cycle or new ROM replaces it.
type Session struct {
	Handle    engine.Handle
	Cartridge engine.Cartridge
	ROM       *cartridge.ROM
	Flags     *Flags
}

// Name returns the cartridge name.
func (s *Session) Name() string {
	if s.Cartridge == nil {
		return ""
	}
	return s.Cartridge.Name()
}
