package tui

import (
	"slices"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/exp/teatest/v2"
	"github.com/evanschultz/todoterm/internal/app"
)

// TestModelWithTeatest verifies a full program run loads, toggles, and saves on quit.
func TestModelWithTeatest(t *testing.T) {
	repo := newFakeRepo([]string{"buy milk", "walk dog"}, nil)
	d := app.NewDispatcher(app.NewStore(repo), app.DispatcherConfig{})
	m := NewModel(d, WithTickInterval(10*time.Millisecond))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "buy milk")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'x', Text: "x"})
	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final, ok := tm.FinalModel(t).(Model)
	if !ok {
		t.Fatalf("expected final Model, got %T", tm.FinalModel(t))
	}
	if final.dispatcher.Running() {
		t.Fatal("expected dispatcher stopped")
	}
	if !slices.Equal(repo.snap.IncompleteTasks, []string{"walk dog"}) || !slices.Equal(repo.snap.CompleteTasks, []string{"buy milk"}) {
		t.Fatalf("unexpected saved snapshot %#v", repo.snap)
	}
}

// TestModelWithTeatestChordAndInsert verifies g g and Insert editing through the program loop.
func TestModelWithTeatestChordAndInsert(t *testing.T) {
	repo := newFakeRepo([]string{"first", "second", "third"}, nil)
	d := app.NewDispatcher(app.NewStore(repo), app.DispatcherConfig{})
	m := NewModel(d, WithTickInterval(time.Hour))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "third")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'g', ShiftedCode: 'G', Text: "G", Mod: tea.ModShift})
	tm.Send(tea.KeyPressMsg{Code: 'g', Text: "g"})
	tm.Send(tea.KeyPressMsg{Code: 'g', Text: "g"})
	tm.Send(tea.KeyPressMsg{Code: 'a', Text: "a"})
	tm.Send(tea.KeyPressMsg{Code: '!', Text: "!"})
	tm.Send(tea.KeyPressMsg{Code: tea.KeyEscape})
	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	if !slices.Equal(repo.snap.IncompleteTasks, []string{"first!", "second", "third"}) {
		t.Fatalf("unexpected saved tasks %#v", repo.snap.IncompleteTasks)
	}
	if repo.saves != 2 {
		t.Fatalf("expected saves on insert exit and quit, got %d", repo.saves)
	}
}

// TestModelWithTeatestHelpOverlay verifies the help overlay renders through the program.
func TestModelWithTeatestHelpOverlay(t *testing.T) {
	repo := newFakeRepo([]string{"only task"}, nil)
	d := app.NewDispatcher(app.NewStore(repo), app.DispatcherConfig{})
	tm := teatest.NewTestModel(t, NewModel(d), teatest.WithInitialTermSize(100, 40))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "only task")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: '?', Text: "?"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(stripANSI(string(out)), "Normal mode")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: tea.KeyEscape})
	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}
