package app

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig holds optional single-key overrides for Normal-mode actions.
type KeyConfig struct {
	Toggle string
	Delete string
	Change string
	Append string
	Yank   string
	Save   string
	Help   string
}

// KeyMap holds the Normal- and Insert-mode key tables.
type KeyMap struct {
	Quit       key.Binding
	Down       key.Binding
	Up         key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Toggle     key.Binding
	AddBelow   key.Binding
	AddAbove   key.Binding
	Delete     key.Binding
	Change     key.Binding
	Append     key.Binding
	Yank       key.Binding
	PasteBelow key.Binding
	PasteAbove key.Binding
	Save       key.Binding
	Help       key.Binding
	ExitInsert key.Binding
	Backspace  key.Binding
}

// NewKeyMap constructs the default key tables.
func NewKeyMap() KeyMap {
	return KeyMap{
		Quit:       key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "quit")),
		Down:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Up:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Top:        key.NewBinding(key.WithKeys("g"), key.WithHelp("g g", "top")),
		Bottom:     key.NewBinding(key.WithKeys("G", "shift+g"), key.WithHelp("G", "bottom")),
		Toggle:     key.NewBinding(key.WithKeys("x", "space"), key.WithHelp("x", "toggle done")),
		AddBelow:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "add below")),
		AddAbove:   key.NewBinding(key.WithKeys("O", "shift+o"), key.WithHelp("O", "add above")),
		Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Change:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "change")),
		Append:     key.NewBinding(key.WithKeys("a", "i"), key.WithHelp("a", "append")),
		Yank:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yank")),
		PasteBelow: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "paste below")),
		PasteAbove: key.NewBinding(key.WithKeys("P", "shift+p"), key.WithHelp("P", "paste above")),
		Save:       key.NewBinding(key.WithKeys("w", "ctrl+s"), key.WithHelp("w", "save")),
		Help:       key.NewBinding(key.WithKeys("h", "?"), key.WithHelp("h", "help")),
		ExitInsert: key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "normal mode")),
		Backspace:  key.NewBinding(key.WithKeys("backspace"), key.WithHelp("⌫", "delete char")),
	}
}

// ChordTopKey returns the key that, pressed twice, selects the first task.
func (k KeyMap) ChordTopKey() string {
	if keys := k.Top.Keys(); len(keys) > 0 {
		return keys[0]
	}
	return "g"
}

// ShortHelp returns the Normal-mode bindings shown in the help bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Toggle, k.AddBelow, k.Delete, k.Change, k.Help, k.Quit}
}

// FullHelp returns every binding grouped for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.Top, k.Bottom},
		{k.Toggle, k.AddBelow, k.AddAbove, k.Delete, k.Change, k.Append},
		{k.Yank, k.PasteBelow, k.PasteAbove, k.Save, k.Help, k.Quit},
		{k.Backspace, k.ExitInsert},
	}
}

// InsertHelp returns the Insert-mode bindings shown in the help bar.
func (k KeyMap) InsertHelp() []key.Binding {
	return []key.Binding{k.Backspace, k.ExitInsert}
}

// Validate reports the first key that two Normal-mode actions would share once
// the overrides are applied over the defaults.
func (cfg KeyConfig) Validate() error {
	keys := NewKeyMap()
	keys.applyConfig(cfg)
	owners := map[string]string{}
	for _, action := range keys.normalActions() {
		for _, k := range action.binding.Keys() {
			if owner, ok := owners[k]; ok && owner != action.name {
				return fmt.Errorf("%w: %s and %s both bind %q", ErrKeyConflict, owner, action.name, k)
			}
			owners[k] = action.name
		}
	}
	return nil
}

type namedBinding struct {
	name    string
	binding key.Binding
}

// normalActions lists the Normal-mode bindings in dispatch order.
func (k KeyMap) normalActions() []namedBinding {
	return []namedBinding{
		{"quit", k.Quit},
		{"down", k.Down},
		{"up", k.Up},
		{"top", k.Top},
		{"bottom", k.Bottom},
		{"toggle", k.Toggle},
		{"add_below", k.AddBelow},
		{"add_above", k.AddAbove},
		{"delete", k.Delete},
		{"change", k.Change},
		{"append", k.Append},
		{"yank", k.Yank},
		{"paste_below", k.PasteBelow},
		{"paste_above", k.PasteAbove},
		{"save", k.Save},
		{"help", k.Help},
	}
}

// applyConfig replaces default keys with configured overrides.
func (k *KeyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.Toggle, cfg.Toggle, "x", "toggle done")
	configureBinding(&k.Delete, cfg.Delete, "d", "delete")
	configureBinding(&k.Change, cfg.Change, "c", "change")
	configureBinding(&k.Append, cfg.Append, "a", "append")
	configureBinding(&k.Yank, cfg.Yank, "y", "yank")
	configureBinding(&k.Save, cfg.Save, "w", "save")
	configureBinding(&k.Help, cfg.Help, "h", "help")
}

// configureBinding applies one override; blank values keep the binding untouched.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys normalizes one configured key into matcher keys and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = fallback
	}
	if strings.EqualFold(value, "space") || value == " " {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		if unicode.IsUpper(r) {
			return []string{value, "shift+" + string(unicode.ToLower(r))}, value
		}
		return []string{value}, value
	}
	return []string{strings.ToLower(value)}, value
}
