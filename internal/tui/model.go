package tui

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/domain"
	"github.com/evanschultz/todoterm/internal/keyseq"
	"github.com/mattn/go-runewidth"
)

// loadMsg asks Update to hydrate the store before the first key is handled.
type loadMsg struct{}

// tickMsg advances dispatcher timeouts.
type tickMsg time.Time

// insertCursor marks the edit position on the selected task in Insert mode.
const insertCursor = "█"

// Model renders a Dispatcher and feeds it terminal input.
type Model struct {
	ctx        context.Context
	dispatcher *app.Dispatcher
	help       help.Model
	md         *markdownRenderer

	appName      string
	storeLabel   string
	tickInterval time.Duration

	ready  bool
	loaded bool
	width  int
	height int
}

// NewModel constructs a model over dispatcher.
func NewModel(dispatcher *app.Dispatcher, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		ctx:          context.Background(),
		dispatcher:   dispatcher,
		help:         h,
		md:           &markdownRenderer{},
		appName:      "todoterm",
		tickInterval: DefaultTickInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init loads the task list and starts the tick loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(func() tea.Msg { return loadMsg{} }, m.tick())
}

// Update applies one message. Load, save, and key handling all run here so the
// dispatcher is only touched from the program loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadMsg:
		return m.ensureLoaded(), nil

	case tickMsg:
		m.dispatcher.Tick()
		return m, m.tick()

	case tea.KeyPressMsg:
		m = m.ensureLoaded()
		m.dispatcher.HandleKey(m.ctx, pressEvent(msg))
		return m, m.quitIfStopped()

	case tea.KeyReleaseMsg:
		m = m.ensureLoaded()
		m.dispatcher.HandleKey(m.ctx, releaseEvent(msg))
		return m, m.quitIfStopped()
	}
	return m, nil
}

// ensureLoaded hydrates the store once. A key that arrives before loadMsg
// loads first so its edit is not replaced by the stored lists.
func (m Model) ensureLoaded() Model {
	if !m.loaded {
		_ = m.dispatcher.Load(m.ctx)
		m.loaded = true
	}
	return m
}

// tick schedules the next idle tick.
func (m Model) tick() tea.Cmd {
	return tea.Tick(m.tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// quitIfStopped ends the program once the dispatcher stops running.
func (m Model) quitIfStopped() tea.Cmd {
	if m.dispatcher.Running() {
		return nil
	}
	return tea.Quit
}

// pressEvent converts a key press, marking auto-repeat separately.
func pressEvent(msg tea.KeyPressMsg) keyseq.KeyEvent {
	kind := keyseq.KindPress
	if msg.IsRepeat {
		kind = keyseq.KindRepeat
	}
	return keyseq.KeyEvent{Key: msg.String(), Text: msg.Text, Kind: kind}
}

// releaseEvent converts a key release.
func releaseEvent(msg tea.KeyReleaseMsg) keyseq.KeyEvent {
	return keyseq.KeyEvent{Key: msg.String(), Text: msg.Text, Kind: keyseq.KindRelease}
}

// View renders the header, task pane, footer, and help bar.
func (m Model) View() tea.View {
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Background(accent).Padding(0, 1)
	statusStyle := lipgloss.NewStyle().Foreground(dim)
	paneTitleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)

	header := titleStyle.Render(m.appName)
	if m.storeLabel != "" {
		labelWidth := max(0, m.width-lipgloss.Width(header)-4)
		header += statusStyle.Render("  @ " + runewidth.Truncate(m.storeLabel, labelWidth, "…"))
	}

	incomplete := m.dispatcher.Incomplete()
	complete := m.dispatcher.Complete()
	total := len(incomplete) + len(complete)
	paneTitle := paneTitleStyle.Render(fmt.Sprintf("Tasks (%d/%d)", len(complete), total))

	footer := m.renderFooter(accent, muted)
	helpLine := m.renderHelpLine(muted, dim)

	bodyHeight := max(1, m.height-lipgloss.Height(header)-lipgloss.Height(paneTitle)-lipgloss.Height(footer)-lipgloss.Height(helpLine)-1)
	var body string
	if total == 0 {
		body = m.renderEmptyState(muted)
	} else {
		body = m.renderTasks(incomplete, complete, bodyHeight)
	}
	body = fitLines(body, bodyHeight)

	content := strings.Join([]string{header, "", paneTitle, body, footer, helpLine}, "\n")
	if m.dispatcher.HelpVisible() {
		content = overlayOnContent(content, m.renderHelpOverlay(accent), max(1, m.width), max(1, m.height))
	}
	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

// renderTasks lists both lists in logical-index order, scrolled to keep the selection visible.
func (m Model) renderTasks(incomplete, complete []string, height int) string {
	selected, hasSelection := m.dispatcher.Selected()
	insert := m.dispatcher.Mode() == domain.ModeInsert
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	doneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Strikethrough(true)
	openStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	total := len(incomplete) + len(complete)
	start, end := windowBounds(total, selected, height)
	textWidth := max(1, m.width-8)
	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		done := i >= len(incomplete)
		var text string
		if done {
			text = complete[i-len(incomplete)]
		} else {
			text = incomplete[i]
		}
		isSelected := hasSelection && i == selected

		prefix := "   "
		if isSelected {
			prefix = " > "
			if insert {
				prefix = ">> "
			}
		}
		bullet := "[ ] "
		if done {
			bullet = "[x] "
		}
		if isSelected && insert {
			text = truncateLeft(text, textWidth-1) + insertCursor
		} else {
			text = runewidth.Truncate(text, textWidth, "…")
		}

		row := prefix + bullet + text
		switch {
		case isSelected:
			rows = append(rows, selectedStyle.Render(row))
		case done:
			rows = append(rows, doneStyle.Render(row))
		default:
			rows = append(rows, openStyle.Render(row))
		}
	}
	return strings.Join(rows, "\n")
}

// renderEmptyState renders hints for an empty list.
func (m Model) renderEmptyState(muted color.Color) string {
	keys := m.dispatcher.Keys()
	lines := []string{
		"No tasks yet.",
		fmt.Sprintf("Press %s to add a task, %s for help, %s to quit.",
			keys.AddBelow.Help().Key, keys.Help.Help().Key, keys.Quit.Help().Key),
	}
	return lipgloss.NewStyle().Foreground(muted).Render(strings.Join(lines, "\n"))
}

// renderFooter renders the mode on the left and the action message on the right.
func (m Model) renderFooter(accent, muted color.Color) string {
	mutedStyle := lipgloss.NewStyle().Foreground(muted)
	modeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(accent).Padding(0, 1)
	if m.dispatcher.Mode() == domain.ModeInsert {
		modeStyle = modeStyle.Background(lipgloss.Color("166"))
	}
	left := modeStyle.Render(m.dispatcher.Mode().String())
	if pending, ok := m.dispatcher.PendingChord(); ok && pending == m.dispatcher.Keys().ChordTopKey() && m.dispatcher.Mode() == domain.ModeNormal {
		left += mutedStyle.Render("  " + pending + "…")
	}
	action := m.dispatcher.Action()
	if action == "" {
		return left
	}
	room := max(0, m.width-lipgloss.Width(left)-1)
	right := mutedStyle.Render(runewidth.Truncate(action, room, "…"))
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

// renderHelpLine renders the short help bubble for the active mode.
func (m Model) renderHelpLine(muted, dim color.Color) string {
	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	keys := modeKeyMap{keys: m.dispatcher.Keys(), mode: m.dispatcher.Mode()}
	return lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(keys))
}

// renderHelpOverlay renders the full key reference in a bordered box.
func (m Model) renderHelpOverlay(accent color.Color) string {
	boxWidth := clamp(m.width-8, minHelpWrap, 72)
	rendered := m.md.render(helpMarkdown(m.dispatcher.Keys()), boxWidth-4)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Render(fitLines(rendered, max(1, min(lipgloss.Height(rendered), m.height-4))))
}

// windowBounds returns the visible [start, end) range that keeps selected in view.
func windowBounds(total, selected, windowSize int) (int, int) {
	if total <= 0 || windowSize <= 0 {
		return 0, 0
	}
	if total <= windowSize {
		return 0, total
	}
	selected = clamp(selected, 0, total-1)
	half := windowSize / 2
	start := selected - half
	if start < 0 {
		start = 0
	}
	end := start + windowSize
	if end > total {
		end = total
		start = max(0, end-windowSize)
	}
	return start, end
}

// clamp bounds v to [minV, maxV].
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines pads or truncates content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay above base on a width x height canvas.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncateLeft keeps the tail of s within width cells so the cursor end stays visible.
func truncateLeft(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	rs := []rune(s)
	out := make([]rune, 0, len(rs))
	used := 1
	for i := len(rs) - 1; i >= 0; i-- {
		w := runewidth.RuneWidth(rs[i])
		if used+w > width {
			break
		}
		used += w
		out = append(out, rs[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return "…" + string(out)
}
