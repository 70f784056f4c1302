package orchestrator

import (
	"fmt"
	"strings"
)

// Mode selects which workspace is active.
type Mode int

const (
	ModeSingle Mode = iota
	ModeMulti
	ModeAuto
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeMulti:
		return "multi"
	case ModeAuto:
		return "auto"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts the names returned by String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return ModeSingle, nil
	case "multi":
		return ModeMulti, nil
	case "auto":
		return ModeAuto, nil
	}
	return ModeSingle, fmt.Errorf("unknown mode %q", s)
}
