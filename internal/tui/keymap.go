package tui

import (
	"charm.land/bubbles/v2/key"
	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/domain"
)

// modeKeyMap adapts the dispatcher key tables to the help bubble for one mode.
type modeKeyMap struct {
	keys app.KeyMap
	mode domain.Mode
}

// ShortHelp returns the bindings for the help bar.
func (k modeKeyMap) ShortHelp() []key.Binding {
	if k.mode == domain.ModeInsert {
		return k.keys.InsertHelp()
	}
	return k.keys.ShortHelp()
}

// FullHelp returns every binding grouped by column.
func (k modeKeyMap) FullHelp() [][]key.Binding {
	if k.mode == domain.ModeInsert {
		return [][]key.Binding{k.keys.InsertHelp()}
	}
	return k.keys.FullHelp()
}
