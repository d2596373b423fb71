package tui

import (
	"testing"

	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/domain"
)

// TestModeKeyMapSwitchesTables verifies the help bar follows the active mode.
func TestModeKeyMapSwitchesTables(t *testing.T) {
	keys := app.NewKeyMap()

	normal := modeKeyMap{keys: keys, mode: domain.ModeNormal}
	if got := len(normal.ShortHelp()); got != len(keys.ShortHelp()) {
		t.Fatalf("expected normal short help, got %d bindings", got)
	}
	if got := len(normal.FullHelp()); got != len(keys.FullHelp()) {
		t.Fatalf("expected normal full help groups, got %d", got)
	}

	insert := modeKeyMap{keys: keys, mode: domain.ModeInsert}
	short := insert.ShortHelp()
	if len(short) != 2 {
		t.Fatalf("expected two insert bindings, got %d", len(short))
	}
	if short[1].Help().Key != "esc" {
		t.Fatalf("expected esc exit binding, got %q", short[1].Help().Key)
	}
	if got := len(insert.FullHelp()); got != 1 {
		t.Fatalf("expected one insert help group, got %d", got)
	}
}
