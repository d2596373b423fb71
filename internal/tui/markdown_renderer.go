package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"github.com/charmbracelet/glamour"
	"github.com/evanschultz/todoterm/internal/app"
)

// minHelpWrap keeps the help table readable on narrow terminals.
const minHelpWrap = 24

// markdownRenderer caches a glamour renderer and recreates it when the wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown into ANSI-styled text. Renderer failures fall back to the raw source.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, minHelpWrap)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.Trim(rendered, "\n")
}

// helpMarkdown lists every Normal- and Insert-mode binding as markdown tables.
func helpMarkdown(keys app.KeyMap) string {
	var b strings.Builder
	b.WriteString("# Keys\n\n## Normal mode\n\n")
	writeBindingTable(&b, normalHelpBindings(keys))
	b.WriteString("\n## Insert mode\n\n")
	writeBindingTable(&b, keys.InsertHelp())
	b.WriteString("| *any text* | type into the task |\n")
	fmt.Fprintf(&b, "\nPress **%s** or **%s** to close. Other keys are ignored while this is open.\n",
		keys.Help.Help().Key, keys.Quit.Help().Key)
	return b.String()
}

// normalHelpBindings flattens the Normal-mode groups of the full help.
func normalHelpBindings(keys app.KeyMap) []key.Binding {
	insert := map[string]bool{}
	for _, b := range keys.InsertHelp() {
		insert[b.Help().Desc] = true
	}
	var out []key.Binding
	for _, group := range keys.FullHelp() {
		for _, b := range group {
			if insert[b.Help().Desc] {
				continue
			}
			out = append(out, b)
		}
	}
	return out
}

// writeBindingTable writes enabled bindings as a two-column table.
func writeBindingTable(b *strings.Builder, bindings []key.Binding) {
	b.WriteString("| key | action |\n|---|---|\n")
	for _, binding := range bindings {
		if !binding.Enabled() {
			continue
		}
		h := binding.Help()
		fmt.Fprintf(b, "| `%s` | %s |\n", h.Key, h.Desc)
	}
}
