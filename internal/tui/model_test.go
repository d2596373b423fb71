package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/domain"
	"github.com/evanschultz/todoterm/internal/keyseq"
)

// fakeRepo stores one snapshot in memory.
type fakeRepo struct {
	snap    domain.Snapshot
	saved   bool
	saves   int
	saveErr error
}

// Load returns the stored snapshot or app.ErrNotFound.
func (r *fakeRepo) Load(context.Context) (domain.Snapshot, error) {
	if !r.saved {
		return domain.Snapshot{}, app.ErrNotFound
	}
	return domain.Snapshot{
		CompleteTasks:   slices.Clone(r.snap.CompleteTasks),
		IncompleteTasks: slices.Clone(r.snap.IncompleteTasks),
	}, nil
}

// Save stores snap unless a failure is configured.
func (r *fakeRepo) Save(_ context.Context, snap domain.Snapshot) error {
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.snap = snap
	r.saved = true
	return nil
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;:?]*[A-Za-z]`)

// stripANSI removes terminal escape sequences from rendered output.
func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// newFakeRepo seeds a repository with incomplete and complete tasks.
func newFakeRepo(incomplete, complete []string) *fakeRepo {
	if incomplete == nil && complete == nil {
		return &fakeRepo{}
	}
	return &fakeRepo{
		snap:  domain.Snapshot{IncompleteTasks: incomplete, CompleteTasks: complete},
		saved: true,
	}
}

// loadReadyModel sizes the model and runs the initial load.
func loadReadyModel(t *testing.T, repo *fakeRepo, opts ...Option) Model {
	t.Helper()
	d := app.NewDispatcher(app.NewStore(repo), app.DispatcherConfig{})
	m := NewModel(d, opts...)
	m = applyMsg(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return applyMsg(t, m, loadMsg{})
}

// applyMsg runs one Update and returns the concrete model.
func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	out, _ := applyMsgCmd(t, m, msg)
	return out
}

// applyMsgCmd runs one Update and returns the concrete model and command.
func applyMsgCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return out, cmd
}

// keyRune builds a printable key press.
func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// render returns the plain text of the current view.
func render(m Model) string {
	return stripANSI(fmt.Sprint(m.View().Content))
}

// TestModelLoadingView verifies an unsized model renders a placeholder.
func TestModelLoadingView(t *testing.T) {
	d := app.NewDispatcher(app.NewStore(&fakeRepo{}), app.DispatcherConfig{})
	v := NewModel(d).View()
	if v.Content == nil || !v.AltScreen {
		t.Fatal("expected loading view on the alt screen")
	}
	if !strings.Contains(fmt.Sprint(v.Content), "loading") {
		t.Fatalf("expected loading text, got %q", fmt.Sprint(v.Content))
	}
}

// TestModelRendersTasksAndCounts verifies bullets, selection marker, and the pane title.
func TestModelRendersTasksAndCounts(t *testing.T) {
	m := loadReadyModel(t, newFakeRepo([]string{"write report", "call mom"}, []string{"buy milk"}),
		WithStoreLabel("/data/tasks.json"))
	out := render(m)
	for _, want := range []string{
		"todoterm",
		"@ /data/tasks.json",
		"Tasks (1/3)",
		"> [ ] write report",
		"[ ] call mom",
		"[x] buy milk",
		"NORMAL",
		"loaded 3 tasks",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
}

// TestModelEmptyState verifies hints render when there are no tasks.
func TestModelEmptyState(t *testing.T) {
	m := loadReadyModel(t, newFakeRepo(nil, nil))
	out := render(m)
	if !strings.Contains(out, "No tasks yet.") || !strings.Contains(out, "Tasks (0/0)") {
		t.Fatalf("expected empty state, got:\n%s", out)
	}
	if !strings.Contains(out, "new task list") {
		t.Fatalf("expected fresh-start action, got:\n%s", out)
	}
}

// TestModelInsertModeCursor verifies Insert mode shows the mode, marker, and cursor.
func TestModelInsertModeCursor(t *testing.T) {
	m := loadReadyModel(t, newFakeRepo(nil, nil))
	m = applyMsg(t, m, keyRune('o'))
	for _, r := range "milk" {
		m = applyMsg(t, m, keyRune(r))
	}
	out := render(m)
	if !strings.Contains(out, "INSERT") {
		t.Fatalf("expected insert mode label, got:\n%s", out)
	}
	if !strings.Contains(out, ">> [ ] milk"+insertCursor) {
		t.Fatalf("expected insert marker and cursor, got:\n%s", out)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyBackspace})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	out = render(m)
	if !strings.Contains(out, "> [ ] mil") || strings.Contains(out, insertCursor) {
		t.Fatalf("expected normal mode row without cursor, got:\n%s", out)
	}
	if !strings.Contains(out, "saved") {
		t.Fatalf("expected save message after insert exit, got:\n%s", out)
	}
}

// TestModelToggleUpdatesTitle verifies completing a task moves it and updates counts.
func TestModelToggleUpdatesTitle(t *testing.T) {
	m := loadReadyModel(t, newFakeRepo([]string{"a", "b"}, nil))
	m = applyMsg(t, m, keyRune('x'))
	out := render(m)
	if !strings.Contains(out, "Tasks (1/2)") || !strings.Contains(out, "[x] a") {
		t.Fatalf("expected completed task rendered, got:\n%s", out)
	}
	if !strings.Contains(out, "task completed") {
		t.Fatalf("expected toggle action, got:\n%s", out)
	}
}

// TestModelChordThroughKeyMessages verifies g g from terminal messages selects the top task.
func TestModelChordThroughKeyMessages(t *testing.T) {
	m := loadReadyModel(t, newFakeRepo([]string{"a", "b", "c"}, nil))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: 'g', ShiftedCode: 'G', Text: "G", Mod: tea.ModShift})
	if idx, _ := m.dispatcher.Selected(); idx != 2 {
		t.Fatalf("expected bottom selection, got %d", idx)
	}
	m = applyMsg(t, m, keyRune('g'))
	if out := render(m); !strings.Contains(out, "g…") {
		t.Fatalf("expected pending chord indicator, got:\n%s", out)
	}
	m = applyMsg(t, m, tea.KeyReleaseMsg{Code: 'g', Text: "g"})
	m = applyMsg(t, m, keyRune('g'))
	if idx, _ := m.dispatcher.Selected(); idx != 0 {
		t.Fatalf("expected top selection, got %d", idx)
	}
}

// TestModelRepeatDoesNotFireChord verifies auto-repeat is not a second chord key.
func TestModelRepeatDoesNotFireChord(t *testing.T) {
	m := loadReadyModel(t, newFakeRepo([]string{"a", "b", "c"}, nil))
	m = applyMsg(t, m, keyRune('G'))
	m = applyMsg(t, m, keyRune('g'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: 'g', Text: "g", IsRepeat: true})
	if idx, _ := m.dispatcher.Selected(); idx != 2 {
		t.Fatalf("expected selection unchanged by repeat, got %d", idx)
	}
}

// TestModelTickClearsAction verifies ticks expire the action message and reschedule.
func TestModelTickClearsAction(t *testing.T) {
	m := loadReadyModel(t, newFakeRepo([]string{"a"}, nil))
	m = applyMsg(t, m, keyRune('y'))
	if m.dispatcher.Action() != "task yanked" {
		t.Fatalf("unexpected action %q", m.dispatcher.Action())
	}
	var cmd tea.Cmd
	for i := 0; i < app.DefaultActionResetTicks; i++ {
		m, cmd = applyMsgCmd(t, m, tickMsg(time.Now()))
		if cmd == nil {
			t.Fatal("expected tick to reschedule")
		}
	}
	if m.dispatcher.Action() != "" {
		t.Fatalf("expected action cleared, got %q", m.dispatcher.Action())
	}
}

// TestModelHelpOverlay verifies the help overlay opens and closes.
func TestModelHelpOverlay(t *testing.T) {
	m := loadReadyModel(t, newFakeRepo([]string{"a"}, nil))
	m = applyMsg(t, m, keyRune('?'))
	if !m.dispatcher.HelpVisible() {
		t.Fatal("expected help visible")
	}
	if out := render(m); !strings.Contains(out, "Keys") {
		t.Fatalf("expected help overlay heading, got:\n%s", out)
	}
	m, cmd := applyMsgCmd(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd != nil {
		t.Fatal("expected esc to close help without quitting")
	}
	if m.dispatcher.HelpVisible() {
		t.Fatal("expected help hidden")
	}
}

// TestModelQuitSavesAndExits verifies q saves and returns tea.Quit.
func TestModelQuitSavesAndExits(t *testing.T) {
	repo := newFakeRepo([]string{"a"}, nil)
	m := loadReadyModel(t, repo)
	_, cmd := applyMsgCmd(t, m, keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit cmd")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if repo.saves != 1 {
		t.Fatalf("expected one save on quit, got %d", repo.saves)
	}
}

// TestModelQuitRefusedAfterSaveFailure verifies a failing save keeps the program running once.
func TestModelQuitRefusedAfterSaveFailure(t *testing.T) {
	repo := newFakeRepo([]string{"a"}, nil)
	repo.saveErr = errors.New("disk full")
	m := loadReadyModel(t, repo)
	m, cmd := applyMsgCmd(t, m, keyRune('q'))
	if cmd != nil {
		t.Fatal("expected first quit refused")
	}
	if out := render(m); !strings.Contains(out, "save failed: disk full") {
		t.Fatalf("expected save failure in footer, got:\n%s", out)
	}
	if _, cmd = applyMsgCmd(t, m, tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}); cmd == nil {
		t.Fatal("expected second quit to exit")
	}
}

// TestModelScrollsToSelection verifies long lists keep the selected row visible.
func TestModelScrollsToSelection(t *testing.T) {
	tasks := make([]string, 60)
	for i := range tasks {
		tasks[i] = fmt.Sprintf("task %02d", i)
	}
	m := loadReadyModel(t, newFakeRepo(tasks, nil))
	m = applyMsg(t, m, keyRune('G'))
	out := render(m)
	if !strings.Contains(out, "> [ ] task 59") {
		t.Fatalf("expected last task visible, got:\n%s", out)
	}
	if strings.Contains(out, "task 00") {
		t.Fatalf("expected first task scrolled out, got:\n%s", out)
	}
}

// TestKeyEventConversion verifies press, repeat, and release translation.
func TestKeyEventConversion(t *testing.T) {
	ev := pressEvent(tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	if ev.Key != "space" || ev.Text != " " || ev.Kind != keyseq.KindPress {
		t.Fatalf("unexpected space event %#v", ev)
	}
	ev = pressEvent(tea.KeyPressMsg{Code: 'j', Text: "j", IsRepeat: true})
	if ev.Kind != keyseq.KindRepeat {
		t.Fatalf("expected repeat kind, got %#v", ev)
	}
	ev = releaseEvent(tea.KeyReleaseMsg{Code: 'j', Text: "j"})
	if ev.Key != "j" || ev.Kind != keyseq.KindRelease {
		t.Fatalf("unexpected release event %#v", ev)
	}
}

// TestHelpMarkdownListsBindings verifies the help document covers both tables.
func TestHelpMarkdownListsBindings(t *testing.T) {
	doc := helpMarkdown(app.NewKeyMap())
	for _, want := range []string{
		"## Normal mode",
		"| `x` | toggle done |",
		"| `g g` | top |",
		"## Insert mode",
		"| `esc` | normal mode |",
		"| *any text* | type into the task |",
		"Press **h** or **q/esc** to close. Other keys are ignored",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("expected %q in help markdown:\n%s", want, doc)
		}
	}
	normal := doc[:strings.Index(doc, "## Insert mode")]
	if strings.Contains(normal, "delete char") {
		t.Fatalf("expected insert bindings kept out of the normal table:\n%s", normal)
	}
}

// TestTruncateLeftKeepsTail verifies long insert text keeps its end visible.
func TestTruncateLeftKeepsTail(t *testing.T) {
	if got := truncateLeft("abcdef", 4); got != "…def" {
		t.Fatalf("truncateLeft() = %q", got)
	}
	if got := truncateLeft("abc", 4); got != "abc" {
		t.Fatalf("truncateLeft() = %q", got)
	}
	if got := truncateLeft("abc", 0); got != "" {
		t.Fatalf("truncateLeft() = %q", got)
	}
}

// TestWindowBounds verifies scroll windows around the selection.
func TestWindowBounds(t *testing.T) {
	cases := []struct {
		total, selected, size, start, end int
	}{
		{total: 5, selected: 4, size: 10, start: 0, end: 5},
		{total: 20, selected: 0, size: 5, start: 0, end: 5},
		{total: 20, selected: 10, size: 5, start: 8, end: 13},
		{total: 20, selected: 19, size: 5, start: 15, end: 20},
		{total: 0, selected: 0, size: 5, start: 0, end: 0},
	}
	for _, tc := range cases {
		start, end := windowBounds(tc.total, tc.selected, tc.size)
		if start != tc.start || end != tc.end {
			t.Fatalf("windowBounds(%d, %d, %d) = %d, %d; want %d, %d", tc.total, tc.selected, tc.size, start, end, tc.start, tc.end)
		}
	}
}

// TestModelKeyBeforeLoadIsKept verifies a key handled ahead of loadMsg survives the load.
func TestModelKeyBeforeLoadIsKept(t *testing.T) {
	repo := newFakeRepo([]string{"a", "b"}, nil)
	d := app.NewDispatcher(app.NewStore(repo), app.DispatcherConfig{})
	m := NewModel(d)
	m = applyMsg(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = applyMsg(t, m, keyRune('o'))
	m = applyMsg(t, m, keyRune('x'))
	m = applyMsg(t, m, loadMsg{})

	if got := d.Incomplete(); !slices.Equal(got, []string{"a", "x", "b"}) {
		t.Fatalf("expected early edit kept after load, got %#v", got)
	}
	if d.Mode() != domain.ModeInsert {
		t.Fatalf("expected insert mode, got %s", d.Mode())
	}
	if !m.loaded {
		t.Fatal("expected model marked loaded")
	}
}
