package domain

import (
	"fmt"
	"strings"
)

// Mode identifies which key table interprets incoming keys.
type Mode int

// ModeNormal and ModeInsert are the only valid modes.
const (
	ModeNormal Mode = iota
	ModeInsert
)

// Modes lists every valid mode in display order.
func Modes() []Mode {
	return []Mode{ModeNormal, ModeInsert}
}

// String returns the display label for the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeInsert:
		return "INSERT"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a config value such as "normal" into a Mode.
func ParseMode(raw string) (Mode, error) {
	for _, mode := range Modes() {
		if strings.EqualFold(strings.TrimSpace(raw), mode.String()) {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, raw)
}
